package remote

import (
	"context"
	"errors"
	"time"

	"replharvest/pkg/selector"
)

var (
	// ErrNotFound is returned when no element matches within the timeout
	ErrNotFound = errors.New("element not found")
	// ErrTimeout is returned when a wait condition never became true
	ErrTimeout = errors.New("wait timed out")
	// ErrNavigation is returned when the view could not load a location
	ErrNavigation = errors.New("navigation failed")
)

// Remote is the capability surface of a single remote-controlled view.
// Implementations need not be safe for concurrent use.
type Remote interface {
	Navigate(ctx context.Context, url string) error
	CurrentLocation(ctx context.Context) (string, error)

	// Locate waits up to timeout for the first element matching sel
	Locate(ctx context.Context, sel selector.Selector, timeout time.Duration) (Element, error)
	// LocateAll returns every element currently matching sel, without waiting
	LocateAll(ctx context.Context, sel selector.Selector) ([]Element, error)

	Act(ctx context.Context, el Element, action Action) error
	EvaluateScript(ctx context.Context, code string) (any, error)

	// WaitUntil polls pred until it holds or timeout elapses (ErrTimeout)
	WaitUntil(ctx context.Context, pred Predicate, timeout time.Duration) error
	Sleep(ctx context.Context, d time.Duration) error

	Close() error
}

// Element is a handle on a rendered element
type Element interface {
	Text(ctx context.Context) (string, error)
	// Attribute returns the value and whether the attribute is present
	Attribute(ctx context.Context, name string) (string, bool, error)
	// Find looks up a descendant without waiting (ErrNotFound)
	Find(ctx context.Context, sel selector.Selector) (Element, error)
}

// Predicate is a condition evaluated against the view
type Predicate func(ctx context.Context) (bool, error)

// ActionKind enumerates the supported interactions
type ActionKind string

const (
	ActionClick ActionKind = "click"
	ActionType  ActionKind = "type"
)

// Action is one interaction with an element
type Action struct {
	Kind ActionKind
	Text string
}

// Click returns a click action
func Click() Action { return Action{Kind: ActionClick} }

// TypeText returns an action that types s into the element
func TypeText(s string) Action { return Action{Kind: ActionType, Text: s} }

// Poll evaluates pred every interval until it holds, ctx ends, or timeout passes.
// Errors from pred are treated as "not yet".
func Poll(ctx context.Context, pred Predicate, timeout, interval time.Duration) error {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)

	for {
		ok, err := pred(ctx)
		if err == nil && ok {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !time.Now().Before(deadline) {
			return ErrTimeout
		}
		if err := SleepContext(ctx, interval); err != nil {
			return err
		}
	}
}

// SleepContext sleeps for d or until ctx is done
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
