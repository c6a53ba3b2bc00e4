package logger

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"
)

// EventFunc receives one log entry rendered as a single short line
type EventFunc func(level, message string)

// eventWriter hands entries at or above min to fn
type eventWriter struct {
	min zerolog.Level
	fn  EventFunc
}

// NewEventWriter returns a zerolog writer that forwards entries at or above
// min to fn. It lets a full-screen UI show warnings while console output is off.
func NewEventWriter(min zerolog.Level, fn EventFunc) zerolog.LevelWriter {
	return &eventWriter{min: min, fn: fn}
}

func (w *eventWriter) Write(p []byte) (int, error) { return len(p), nil }

func (w *eventWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if w.fn == nil || level < w.min || level == zerolog.NoLevel {
		return len(p), nil
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(p, &entry); err != nil {
		return len(p), nil
	}

	msg, _ := entry[zerolog.MessageFieldName].(string)
	if item, ok := entry["item"].(string); ok && item != "" {
		msg += " [" + item + "]"
	}
	if e, ok := entry[zerolog.ErrorFieldName].(string); ok && e != "" {
		msg += ": " + e
	}
	w.fn(strings.ToUpper(level.String()), msg)
	return len(p), nil
}
