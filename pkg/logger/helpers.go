package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogStateTransition records a run moving between lifecycle states
func LogStateTransition(l Logger, from, to string) {
	l.WithFields(map[string]interface{}{
		"from": from,
		"to":   to,
	}).Debug("State transition")
}

// LogItemOutcome logs the terminal outcome of a single item
func LogItemOutcome(l Logger, key, name, outcome string, attempts int, err error) {
	entry := l.WithFields(map[string]interface{}{
		"key":      key,
		"item":     name,
		"outcome":  outcome,
		"attempts": attempts,
	})

	switch {
	case err != nil:
		entry.WithError(err).Warn("Item failed")
	case outcome == "skipped":
		entry.Info("Item skipped")
	default:
		entry.Info("Item fetched")
	}
}

// LogDiscoveryProgress logs one pass of listing expansion
func LogDiscoveryProgress(l Logger, pass, discovered int, extent float64) {
	l.WithFields(map[string]interface{}{
		"pass":       pass,
		"discovered": discovered,
		"extent":     extent,
	}).Debug("Listing pass")
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	entry := l.WithField("component", component)
	if len(config) > 0 {
		entry = entry.WithFields(config)
	}
	entry.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// LogMetrics logs the run summary counters
func LogMetrics(l Logger, operation string, elapsed time.Duration, metrics map[string]interface{}) {
	fields := map[string]interface{}{
		"operation": operation,
		"elapsed":   elapsed,
	}
	for k, v := range metrics {
		fields[k] = v
	}
	l.InfoWithFields("Run metrics", fields)
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
