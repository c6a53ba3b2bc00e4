package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"replharvest/pkg/config"
)

// Version is stamped into every log line
var Version = "dev"

// Logger defines the interface for logging operations
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Fatal(msg string)

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger
	WithContext(ctx context.Context) Logger

	DebugWithFields(msg string, fields map[string]interface{})
	InfoWithFields(msg string, fields map[string]interface{})
	WarnWithFields(msg string, fields map[string]interface{})
	ErrorWithFields(msg string, fields map[string]interface{})

	// GetZerolog exposes the underlying zerolog instance
	GetZerolog() *zerolog.Logger
}

// zerologLogger implements Logger; fields live in the zerolog context
type zerologLogger struct {
	logger *zerolog.Logger
}

// New creates a new Logger instance based on the provided configuration.
// Entries are also written to every extra writer.
func New(cfg *config.LoggingConfig, extra ...io.Writer) (Logger, error) {
	level, err := parseLogLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	zerolog.TimeFieldFormat = time.RFC3339

	// Logs go to stderr so stdout stays free for the summary
	var console io.Writer = os.Stderr
	switch {
	case cfg.Quiet:
		console = io.Discard
	case !strings.EqualFold(cfg.Format, "json"):
		console = newConsoleWriter(os.Stderr)
	}

	writers := []io.Writer{console}
	if cfg.File != "" {
		fileOutput, err := setupFileOutput(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to setup file output: %w", err)
		}
		writers = append(writers, fileOutput)
	}
	writers = append(writers, extra...)

	output := console
	if len(writers) > 1 {
		output = zerolog.MultiLevelWriter(writers...)
	}

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("app", "replharvest").
		Str("version", Version).
		Logger()

	return &zerologLogger{logger: &zlog}, nil
}

// newConsoleWriter builds the human readable writer, coloured only on a terminal
func newConsoleWriter(out *os.File) zerolog.ConsoleWriter {
	colour := isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())

	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    !colour,
		TimeFormat: "15:04:05",
		FieldsExclude: []string{
			"app", "version",
		},
		FormatLevel: func(i interface{}) string {
			if i == nil {
				return ""
			}
			level := strings.ToUpper(fmt.Sprintf("%s", i))
			short := map[string]string{
				"DEBUG": "DEBG", "INFO": "INFO", "WARN": "WARN", "ERROR": "ERRO", "FATAL": "FATL",
			}[level]
			if short == "" {
				short = level
			}
			if !colour {
				return short
			}
			switch level {
			case "DEBUG":
				return "\033[37m" + short + "\033[0m"
			case "INFO":
				return "\033[32m" + short + "\033[0m"
			case "WARN":
				return "\033[33m" + short + "\033[0m"
			case "ERROR":
				return "\033[31m" + short + "\033[0m"
			default:
				return "\033[35m" + short + "\033[0m"
			}
		},
		FormatMessage: func(i interface{}) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("| %s", i)
		},
	}
}

// setupFileOutput opens the append-only log file
func setupFileOutput(cfg *config.LoggingConfig) (io.Writer, error) {
	dir := filepath.Dir(cfg.File)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

// parseLogLevel converts string log level to zerolog.Level
func parseLogLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "fatal":
		return zerolog.FatalLevel, nil
	case "disabled":
		return zerolog.Disabled, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level: %s", level)
	}
}

func (l *zerologLogger) Debug(msg string) { l.logger.Debug().Msg(msg) }
func (l *zerologLogger) Info(msg string)  { l.logger.Info().Msg(msg) }
func (l *zerologLogger) Warn(msg string)  { l.logger.Warn().Msg(msg) }
func (l *zerologLogger) Error(msg string) { l.logger.Error().Msg(msg) }

// Fatal logs and exits the process
func (l *zerologLogger) Fatal(msg string) { l.logger.Fatal().Msg(msg) }

// WithField returns a child logger carrying key
func (l *zerologLogger) WithField(key string, value interface{}) Logger {
	return l.child(func(c zerolog.Context) zerolog.Context { return withValue(c, key, value) })
}

// WithFields returns a child logger carrying every entry of fields
func (l *zerologLogger) WithFields(fields map[string]interface{}) Logger {
	return l.child(func(c zerolog.Context) zerolog.Context {
		for k, v := range fields {
			c = withValue(c, k, v)
		}
		return c
	})
}

// WithError records err as the "error" field; a nil err returns l itself
func (l *zerologLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.child(func(c zerolog.Context) zerolog.Context { return c.Str("error", err.Error()) })
}

// WithContext attaches ctx so hooks can read it
func (l *zerologLogger) WithContext(ctx context.Context) Logger {
	return l.child(func(c zerolog.Context) zerolog.Context { return c.Ctx(ctx) })
}

func (l *zerologLogger) child(build func(zerolog.Context) zerolog.Context) Logger {
	zl := build(l.logger.With()).Logger()
	return &zerologLogger{logger: &zl}
}

func (l *zerologLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	withFields(l.logger.Debug(), fields).Msg(msg)
}

func (l *zerologLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	withFields(l.logger.Info(), fields).Msg(msg)
}

func (l *zerologLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	withFields(l.logger.Warn(), fields).Msg(msg)
}

func (l *zerologLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	withFields(l.logger.Error(), fields).Msg(msg)
}

// GetZerolog returns the underlying zerolog instance
func (l *zerologLogger) GetZerolog() *zerolog.Logger {
	return l.logger
}

func withFields(e *zerolog.Event, fields map[string]interface{}) *zerolog.Event {
	for k, v := range fields {
		e = e.Interface(k, normalizeValue(v))
	}
	return e
}

// withValue adds one typed field to a logger context
func withValue(c zerolog.Context, key string, value interface{}) zerolog.Context {
	switch v := value.(type) {
	case string:
		return c.Str(key, v)
	case int:
		return c.Int(key, v)
	case bool:
		return c.Bool(key, v)
	case time.Duration:
		return c.Dur(key, v)
	case time.Time:
		return c.Time(key, v)
	case error:
		return c.AnErr(key, v)
	default:
		return c.Interface(key, normalizeValue(v))
	}
}

// normalizeValue renders values the JSON encoder would otherwise mangle:
// durations become milliseconds and errors their message
func normalizeValue(v interface{}) interface{} {
	switch x := v.(type) {
	case time.Duration:
		return float64(x) / float64(time.Millisecond)
	case error:
		return x.Error()
	default:
		return v
	}
}

var globalLogger Logger

// Initialize sets up the global logger
func Initialize(cfg *config.LoggingConfig, extra ...io.Writer) error {
	logger, err := New(cfg, extra...)
	if err != nil {
		return err
	}
	globalLogger = logger
	log.Logger = *logger.GetZerolog()
	return nil
}

// GetLogger returns the global logger instance
func GetLogger() Logger {
	if globalLogger == nil {
		globalLogger, _ = New(&config.LoggingConfig{Level: "info"})
	}
	return globalLogger
}
