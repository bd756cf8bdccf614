package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_ValidatesConfig(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("New() accepted an invalid level")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("New() accepted an invalid format")
	}
	if _, err := New(Config{}); err != nil {
		t.Errorf("New() with defaults error = %v", err)
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("below threshold")
	logger.Warn("at threshold")

	out := buf.String()
	if strings.Contains(out, "below threshold") {
		t.Error("info record emitted at warn level")
	}
	if !strings.Contains(out, "at threshold") {
		t.Error("warn record missing")
	}
}

func TestNew_RedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("provider call", "api_key", "sk-live-abcdef123456", "provider", "openai")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got := record["api_key"]; got != "sk-l...3456" {
		t.Errorf("api_key = %q, want masked sk-l...3456", got)
	}
	if got := record["provider"]; got != "openai" {
		t.Errorf("provider = %q, want untouched openai", got)
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: FormatText, Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("hello", "api_key", "short")
	out := buf.String()
	if strings.Contains(out, "short") {
		t.Error("short credential leaked into text output")
	}
	if !strings.Contains(out, "****") {
		t.Errorf("output %q missing mask", out)
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"sk-live-abcdef123456", "sk-l...3456"},
		{"12345678", "****"},
		{"", "****"},
		{"123456789", "1234...6789"},
	}
	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
