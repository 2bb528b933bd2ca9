package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("Level(%d).String() = %q, expected %q", tt.level, got, tt.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"Warning", LevelWarn},
		{"error", LevelError},
		{" error ", LevelError},
		{"unknown", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func newTestLogger(level Level, format Format) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{Level: level, Output: &buf, Prefix: "test", Format: format}), &buf
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newTestLogger(LevelWarn, FormatText)

	logger.Debug("debug message")
	logger.Info("info message")
	if buf.Len() != 0 {
		t.Errorf("expected no output below warn, got %q", buf.String())
	}

	logger.Warn("warn %d", 42)
	if !strings.Contains(buf.String(), "warn 42") {
		t.Errorf("expected formatted warn message, got %q", buf.String())
	}
}

func TestLogger_WithFields(t *testing.T) {
	logger, buf := newTestLogger(LevelDebug, FormatLogfmt)

	child := logger.WithComponent("registry").WithField("plugin", "com.acme.tools")
	child.Error("hook failed")

	out := buf.String()
	for _, want := range []string{"hook failed", "component=registry", "plugin=com.acme.tools"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}

	if _, ok := logger.Fields()["component"]; ok {
		t.Error("parent logger should not gain child fields")
	}
	if got := child.Fields()["plugin"]; got != "com.acme.tools" {
		t.Errorf("child field plugin = %v", got)
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	logger, buf := newTestLogger(LevelInfo, FormatJSON)
	logger.WithField("entry", "a.b").Info("done")

	out := buf.String()
	if !strings.Contains(out, `"msg":"done"`) || !strings.Contains(out, `"entry":"a.b"`) {
		t.Errorf("unexpected json output %q", out)
	}
}

func TestLogger_SetLevel(t *testing.T) {
	logger, buf := newTestLogger(LevelError, FormatText)
	logger.Info("hidden")
	logger.SetLevel(LevelInfo)
	logger.Info("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "visible") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestLogger_DisableEnable(t *testing.T) {
	logger, buf := newTestLogger(LevelDebug, FormatText)
	logger.Disable()
	logger.Error("suppressed")
	if buf.Len() != 0 {
		t.Errorf("expected no output while disabled, got %q", buf.String())
	}
	logger.Enable()
	logger.Error("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected output after enable, got %q", buf.String())
	}
}

func TestNull(t *testing.T) {
	logger := Null()
	logger.Error("nothing %s", "here")
	logger.WithComponent("x").Warn("still nothing")

	if OrNull(nil) == nil {
		t.Fatal("OrNull(nil) returned nil")
	}
	if OrNull(logger) != logger {
		t.Error("OrNull should return the given logger")
	}
}
