package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestLogger(buf *bytes.Buffer, level LogLevel, format LogFormat) *Logger {
	l := New(Config{Level: level, Format: format, Output: buf, Component: "test"})
	l.state.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return l
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry LogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("line is not valid JSON: %v (%s)", err, line)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, DEBUG, JSONFormat)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message", nil)

	entries := decodeLines(t, &buf)
	if len(entries) != 4 {
		t.Fatalf("Expected 4 log lines, got %d", len(entries))
	}
	want := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	for i, e := range entries {
		if e.Level != want[i] {
			t.Errorf("entry %d: expected level %s, got %s", i, want[i], e.Level)
		}
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, WARN, JSONFormat)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message", nil)

	if got := len(decodeLines(t, &buf)); got != 2 {
		t.Errorf("Expected 2 log lines with WARN level, got %d", got)
	}
	if logger.Enabled(INFO) {
		t.Error("INFO should be disabled at WARN level")
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, INFO, JSONFormat)

	logger.Error("fetch failed", errors.New("connection refused"), map[string]interface{}{
		"slot":    "records",
		"attempt": 2,
	})

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Message != "fetch failed" || e.Component != "test" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.Error != "connection refused" {
		t.Errorf("Expected error text, got %q", e.Error)
	}
	if e.Fields["slot"] != "records" {
		t.Errorf("Expected slot field, got %v", e.Fields)
	}
	if e.Timestamp != "2024-03-01T12:00:00Z" {
		t.Errorf("unexpected timestamp %s", e.Timestamp)
	}
	if !strings.Contains(e.Caller, "logger_test.go") {
		t.Errorf("caller should point at the test file, got %q", e.Caller)
	}
}

func TestTextFormatSortsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, INFO, TextFormat)

	logger.Info("poll", map[string]interface{}{"b": 2, "a": 1})

	line := buf.String()
	if !strings.HasPrefix(line, "[2024-03-01T12:00:00Z] INFO [test] poll a=1 b=2") {
		t.Errorf("unexpected text line: %s", line)
	}
}

func TestWithMergesFields(t *testing.T) {
	var buf bytes.Buffer
	base := newTestLogger(&buf, INFO, JSONFormat)

	child := base.With(Fields{"request_id": "abc", "scope": "day"}).WithComponent("aggregator")
	child.Info("settled", map[string]interface{}{"scope": "month"})

	entries := decodeLines(t, &buf)
	e := entries[0]
	if e.Component != "aggregator" {
		t.Errorf("Expected aggregator component, got %s", e.Component)
	}
	if e.Fields["request_id"] != "abc" {
		t.Errorf("bound field missing: %v", e.Fields)
	}
	if e.Fields["scope"] != "month" {
		t.Errorf("call fields should override bound fields: %v", e.Fields)
	}

	// parent is unaffected
	base.Info("plain")
	entries = decodeLines(t, &buf)
	if len(entries[1].Fields) != 0 {
		t.Errorf("parent logger picked up child fields: %v", entries[1].Fields)
	}
}

func TestChildSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	base := newTestLogger(&buf, INFO, JSONFormat)
	child := base.WithComponent("poller")

	base.SetLevel(ERROR)
	child.Warn("dropped")
	if buf.Len() != 0 {
		t.Errorf("child should follow parent level, got %s", buf.String())
	}
}

func TestUnencodableFieldsFallBack(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, INFO, JSONFormat)

	logger.Info("odd", map[string]interface{}{"ch": make(chan int)})

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("Expected entry despite unencodable field, got %d", len(entries))
	}
	if _, ok := entries[0].Fields["ch"].(string); !ok {
		t.Errorf("Expected stringified field, got %T", entries[0].Fields["ch"])
	}
}

func TestParseLevelAndFormat(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		err  bool
	}{
		{"debug", DEBUG, false},
		{"WARNING", WARN, false},
		{" error ", ERROR, false},
		{"verbose", INFO, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}

	formats := []struct {
		format, env string
		want        LogFormat
	}{
		{"json", "local", JSONFormat},
		{"text", "production", TextFormat},
		{"auto", "development", TextFormat},
		{"auto", "production", JSONFormat},
	}
	for _, tt := range formats {
		got, err := ParseFormat(tt.format, tt.env)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q, %q) = %v, %v", tt.format, tt.env, got, err)
		}
	}
	if _, err := ParseFormat("xml", ""); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	original := GetGlobalLogger()
	defer SetGlobalLogger(original)

	SetGlobalLogger(newTestLogger(&buf, DEBUG, JSONFormat))
	if err := Configure("warn", "json", ""); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	Info("hidden")
	Component("server").Warn("shown")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 || entries[0].Component != "server" {
		t.Errorf("unexpected global output: %+v", entries)
	}

	if err := Configure("loud", "", ""); err == nil {
		t.Error("Expected error for invalid level")
	}
}
