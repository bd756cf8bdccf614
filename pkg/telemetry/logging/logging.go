// Package logging builds the gateway's structured loggers.
//
// Every component logs through log/slog; this package owns handler
// construction and credential redaction so raw API keys can never reach
// a log line, whatever a call site passes.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// redactedKeys are attribute keys whose values are masked before
// emission.
var redactedKeys = map[string]bool{
	"api_key":       true,
	"api_keys":      true,
	"authorization": true,
	"credential":    true,
}

// Config contains configuration for logger construction.
type Config struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string

	// Format is the output format ("json", "text").
	// Default: "json"
	Format string

	// AddSource includes file and line number in log records.
	AddSource bool

	// Writer is the output destination.
	// Default: os.Stderr
	Writer io.Writer
}

// New builds a slog.Logger from the configuration.
func New(cfg Config) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: redactAttr,
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatText:
		handler = slog.NewTextHandler(writer, opts)
	case FormatJSON, "":
		handler = slog.NewJSONHandler(writer, opts)
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
	return slog.New(handler), nil
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q", level)
	}
}

// redactAttr masks the values of credential-bearing attributes. Masking
// matches the resource guard's convention: enough of the value to
// correlate, never enough to use.
func redactAttr(groups []string, a slog.Attr) slog.Attr {
	if !redactedKeys[a.Key] {
		return a
	}
	if a.Value.Kind() != slog.KindString {
		return slog.String(a.Key, "****")
	}
	return slog.String(a.Key, Mask(a.Value.String()))
}

// Mask shortens a secret to its first and last four characters. Values
// of eight characters or fewer mask entirely.
func Mask(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
