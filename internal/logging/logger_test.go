package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{" error ", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLogger_WritesJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(LevelInfo, &buf)

	logger.Info("Product created", WithFields(map[string]interface{}{
		"id":    "p-1",
		"count": 3,
	}))
	_ = logger.Sync()

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "Product created" {
		t.Errorf("msg = %v, want %q", entry["msg"], "Product created")
	}
	if entry["id"] != "p-1" {
		t.Errorf("id = %v, want p-1", entry["id"])
	}
	if entry["count"] != float64(3) {
		t.Errorf("count = %v, want 3", entry["count"])
	}
}

func TestLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(LevelWarn, &buf)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	_ = logger.Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("expected debug/info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("expected warn entry, got %q", out)
	}
}

func TestLogger_ErrorValuesAndChild(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(LevelDebug, &buf).With(WithField("component", "blog"))

	logger.Error("Failed", WithField("error", errors.New("boom")))
	_ = logger.Sync()

	out := buf.String()
	if !strings.Contains(out, `"component":"blog"`) {
		t.Errorf("child fields missing: %q", out)
	}
	if !strings.Contains(out, `"error":"boom"`) {
		t.Errorf("error field missing: %q", out)
	}
}
