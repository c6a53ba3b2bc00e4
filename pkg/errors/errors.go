package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur during a run
type ErrorType string

const (
	ErrorTypeAuth              ErrorType = "auth"
	ErrorTypeDiscovery         ErrorType = "discovery"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeNavigationTimeout ErrorType = "navigation_timeout"
	ErrorTypeFetchFailure      ErrorType = "fetch_failure"
	ErrorTypeConfig            ErrorType = "config"
	ErrorTypeUnknown           ErrorType = "unknown"
)

// Error represents a harvest error with type information
type Error struct {
	Type    ErrorType
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Type)
	if e.Op != "" {
		msg += " (" + e.Op + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a typed error wrapping an optional cause
func New(errorType ErrorType, op, message string, cause error) *Error {
	return &Error{Type: errorType, Op: op, Message: message, Err: cause}
}

// Auth returns a fatal session bootstrap error
func Auth(op, message string, cause error) *Error {
	return New(ErrorTypeAuth, op, message, cause)
}

// Discovery returns a fatal listing error
func Discovery(op, message string, cause error) *Error {
	return New(ErrorTypeDiscovery, op, message, cause)
}

// NotFound returns a recoverable lookup error
func NotFound(op, message string, cause error) *Error {
	return New(ErrorTypeNotFound, op, message, cause)
}

// NavigationTimeout returns a recoverable navigation error
func NavigationTimeout(op, message string, cause error) *Error {
	return New(ErrorTypeNavigationTimeout, op, message, cause)
}

// FetchFailure returns a per-item terminal error
func FetchFailure(op, message string, cause error) *Error {
	return New(ErrorTypeFetchFailure, op, message, cause)
}

// TypeOf reports the type of the outermost typed error in the chain
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsFatal checks if an error type aborts the whole run
func IsFatal(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeAuth, ErrorTypeDiscovery, ErrorTypeConfig:
		return true
	default:
		return false
	}
}

// IsRecoverable checks if an error type escalates to an item failure rather than an abort
func IsRecoverable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNotFound, ErrorTypeNavigationTimeout, ErrorTypeFetchFailure:
		return true
	default:
		return false
	}
}
