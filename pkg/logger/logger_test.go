package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"replharvest/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug json", &config.LoggingConfig{Level: "debug", Format: "json"}, false},
		{"invalid level", &config.LoggingConfig{Level: "loud"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "run.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func newBufferLogger(buf *bytes.Buffer) *zerologLogger {
	zlog := zerolog.New(buf).Level(zerolog.DebugLevel)
	return &zerologLogger{logger: &zlog}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestWithFieldsDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	base := newBufferLogger(&buf)

	child := base.WithField("item", "todo-app")
	child.Info("fetching")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "todo-app", entry["item"])

	buf.Reset()
	base.Info("plain")
	entry = decodeLine(t, &buf)
	_, ok := entry["item"]
	assert.False(t, ok)
}

func TestFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.InfoWithFields("typed", map[string]interface{}{
		"attempts": 3,
		"ok":       true,
		"wait":     2 * time.Second,
		"names":    []string{"a", "b"},
	})

	entry := decodeLine(t, &buf)
	assert.Equal(t, float64(3), entry["attempts"])
	assert.Equal(t, true, entry["ok"])
	assert.Equal(t, float64(2000), entry["wait"])
	assert.Len(t, entry["names"], 2)
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.WithError(errors.New("boom")).Error("failed")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "boom", entry["error"])

	assert.Same(t, l, l.WithError(nil))
}

func TestTestLoggerCapturesOutcome(t *testing.T) {
	tl := NewTestLogger()

	LogItemOutcome(tl, "todoapp", "Todo App", "failure", 3, errors.New("export missing"))
	LogItemOutcome(tl, "chat", "Chat", "skipped", 0, nil)

	warns := tl.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.Equal(t, "Item failed", warns[0].Message)
	assert.Equal(t, "todoapp", warns[0].Fields["key"])
	assert.Equal(t, "export missing", warns[0].Error)
	assert.True(t, tl.HasMessage("Item skipped"))

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestEventWriterForwardsWarnings(t *testing.T) {
	type event struct{ level, message string }
	var got []event
	sink := NewEventWriter(zerolog.WarnLevel, func(level, message string) {
		got = append(got, event{level, message})
	})

	log, err := New(&config.LoggingConfig{Level: "debug", Quiet: true}, sink)
	require.NoError(t, err)

	log.Info("Listing complete")
	log.WithField("item", "Todo").WithError(errors.New("covered")).Warn("Item failed")
	log.Error("Could not return to the listing")

	assert.Equal(t, []event{
		{"WARN", "Item failed [Todo]: covered"},
		{"ERROR", "Could not return to the listing"},
	}, got)
}
