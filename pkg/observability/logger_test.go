package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/openshelf/critique/pkg/contextkeys"
)

type logEntry struct {
	Level     string `json:"level"`
	Message   string `json:"msg"`
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) logEntry {
	t.Helper()
	var entry logEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to unmarshal log entry %q: %v", buf.String(), err)
	}
	return entry
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.Debug("hidden")
	if buf.Len() > 0 {
		t.Error("debug message logged at info level")
	}

	logger.Info("visible")
	entry := decodeEntry(t, &buf)
	if entry.Level != "INFO" || entry.Message != "visible" {
		t.Errorf("entry = %+v", entry)
	}

	buf.Reset()
	logger.Errorf("failed after %d tries", 3)
	entry = decodeEntry(t, &buf)
	if entry.Level != "ERROR" || entry.Message != "failed after 3 tries" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug": DebugLevel,
		"info":  InfoLevel,
		"warn":  WarnLevel,
		"error": ErrorLevel,
		"":      InfoLevel,
		"bogus": InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithError(errors.New("boom")).Error("operation failed")
	entry := decodeEntry(t, &buf)
	if entry.Error != "boom" {
		t.Errorf("error field = %q", entry.Error)
	}

	// Nil error adds nothing.
	buf.Reset()
	logger.WithError(nil).Info("fine")
	entry = decodeEntry(t, &buf)
	if entry.Error != "" {
		t.Errorf("error field = %q, want empty", entry.Error)
	}
}

func TestLoggerWithRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	ctx := contextkeys.WithRequestID(context.Background(), "req-42")
	logger.WithRequest(ctx).Info("handled")
	entry := decodeEntry(t, &buf)
	if entry.RequestID != "req-42" {
		t.Errorf("request_id = %q", entry.RequestID)
	}

	buf.Reset()
	logger.WithRequest(context.Background()).Info("handled")
	entry = decodeEntry(t, &buf)
	if entry.RequestID != "" {
		t.Errorf("request_id = %q, want empty", entry.RequestID)
	}
}
