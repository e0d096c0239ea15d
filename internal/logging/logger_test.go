package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"unknown", LevelInfo}, // default
		{"", LevelInfo},        // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
			if ValidLevel(tt.input) != (tt.input != "unknown" && tt.input != "") {
				t.Errorf("ValidLevel(%q) = %v", tt.input, ValidLevel(tt.input))
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{Level(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := tt.level.String()
			if result != tt.expected {
				t.Errorf("Level.String() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
		valid    bool
	}{
		{"json", FormatJSON, true},
		{"text", FormatText, true},
		{"unknown", FormatText, false}, // default
		{"", FormatText, false},        // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseFormat(tt.input)
			if result != tt.expected {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, result, tt.expected)
			}
			if ValidFormat(tt.input) != tt.valid {
				t.Errorf("ValidFormat(%q) = %v, want %v", tt.input, ValidFormat(tt.input), tt.valid)
			}
		})
	}
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON output %q: %v", buf.String(), err)
	}
	return entry
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "debug", Format: "json"}, &buf)

	l.Info("test message", "key1", "value1", "key2", 42)

	entry := decodeEntry(t, &buf)
	if entry["level"] != "info" {
		t.Errorf("Expected level=info, got %v", entry["level"])
	}
	if entry["msg"] != "test message" {
		t.Errorf("Expected msg='test message', got %v", entry["msg"])
	}
	if entry["key1"] != "value1" {
		t.Errorf("Expected key1=value1, got %v", entry["key1"])
	}
	if entry["key2"] != float64(42) { // JSON numbers are float64
		t.Errorf("Expected key2=42, got %v", entry["key2"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Error("Expected ts field")
	}
}

func TestLoggerText(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "debug", Format: "text"}, &buf)

	l.Info("test message", "key1", "value1")

	output := buf.String()
	for _, want := range []string{"info", "test message", "key1", "value1"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output, got: %s", want, output)
		}
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "warn", Format: "text"}, &buf)

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Error("Debug message should be filtered")
	}
	if strings.Contains(output, "info message") {
		t.Error("Info message should be filtered")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("Warn message should be present")
	}
	if !strings.Contains(output, "error message") {
		t.Error("Error message should be present")
	}
}

func TestLoggerWithSession(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "debug", Format: "json"}, &buf)

	id := NewSessionID()
	l.WithSession(id).Info("test message")

	entry := decodeEntry(t, &buf)
	if entry["session_id"] != id {
		t.Errorf("Expected session_id=%s, got %v", id, entry["session_id"])
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "debug", Format: "json"}, &buf)

	l.WithFields("index", "names", "duplicates", true).Info("test message")

	entry := decodeEntry(t, &buf)
	if entry["index"] != "names" {
		t.Errorf("Expected index=names, got %v", entry["index"])
	}
	if entry["duplicates"] != true {
		t.Errorf("Expected duplicates=true, got %v", entry["duplicates"])
	}
}

func TestLoggerCloneIsolation(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "debug", Format: "json"}, &buf)

	child := l.WithFields("child_field", "value")

	l.Info("parent message")
	parentEntry := decodeEntry(t, &buf)
	if _, ok := parentEntry["child_field"]; ok {
		t.Error("Parent logger should not have child's fields")
	}

	buf.Reset()
	child.Info("child message")
	childEntry := decodeEntry(t, &buf)
	if childEntry["child_field"] != "value" {
		t.Errorf("Child logger should have its fields, got %v", childEntry["child_field"])
	}
}

func TestLoggerAllLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "debug", Format: "json"}, &buf)

	tests := []struct {
		logFunc func(string, ...interface{})
		level   string
	}{
		{l.Debug, "debug"},
		{l.Info, "info"},
		{l.Warn, "warn"},
		{l.Error, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf.Reset()
			tt.logFunc("test message")

			entry := decodeEntry(t, &buf)
			if entry["level"] != tt.level {
				t.Errorf("Expected level=%s, got %v", tt.level, entry["level"])
			}
		})
	}
}

func TestNewLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obaidx.log")

	l := New(Config{Level: "info", Format: "json", Output: path})
	l.Info("written to file", "n", 1)
	if err := l.Sync(); err != nil {
		t.Fatalf("failed to sync: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file does not contain the entry: %s", data)
	}
}

func TestNewDefault(t *testing.T) {
	if l := NewDefault(); l == nil {
		t.Fatal("NewDefault returned nil")
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNop()
	if l == nil {
		t.Fatal("NewNop returned nil")
	}

	// These should not panic
	l.Debug("test")
	l.Info("test")
	l.Warn("test", "k", "v")
	l.Error("test")

	if l.WithSession("s") == nil {
		t.Error("WithSession returned nil")
	}
	if l.WithFields("key", "value") == nil {
		t.Error("WithFields returned nil")
	}
	if err := l.Sync(); err != nil {
		t.Errorf("Sync returned %v", err)
	}
}

func TestNewSessionID(t *testing.T) {
	id1 := NewSessionID()
	id2 := NewSessionID()

	if id1 == id2 {
		t.Errorf("NewSessionID returned duplicate IDs: %s", id1)
	}
	if _, err := uuid.Parse(id1); err != nil {
		t.Errorf("NewSessionID returned %q, not a UUID: %v", id1, err)
	}
}
