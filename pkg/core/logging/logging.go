// Package logging provides structured logging setup using Go's standard library log/slog package.
//
// The logging package configures slog with logfmt format (human-readable key=value pairs)
// or JSON format, and maps string log levels (ERROR, WARNING, INFO, DEBUG) to slog levels.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the output encoding of a logger.
type Format int

const (
	// FormatText emits logfmt-style key=value lines.
	FormatText Format = iota

	// FormatJSON emits one JSON object per record.
	FormatJSON
)

// NewLogger creates a new structured logger with the specified log level.
// Supported levels (case-insensitive): ERROR, WARNING, INFO, DEBUG.
// Invalid levels default to INFO. Uses logfmt format for output.
func NewLogger(level string) *slog.Logger {
	return NewLoggerWithFormat(os.Stdout, level, FormatText)
}

// NewLoggerWithFormat creates a structured logger writing to w with the given
// level and output format.
func NewLoggerWithFormat(w io.Writer, level string, format Format) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// ComponentLogger derives a logger tagged with a component name. Components
// receive their logger through constructor injection rather than reading a
// process-global one, so a nil parent falls back to slog.Default().
func ComponentLogger(parent *slog.Logger, component string) *slog.Logger {
	if parent == nil {
		parent = slog.Default()
	}
	return parent.With("component", component)
}

// ParseLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for invalid or empty levels (safe default).
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "ERROR":
		return slog.LevelError
	case "WARNING", "WARN":
		return slog.LevelWarn
	case "INFO":
		return slog.LevelInfo
	case "DEBUG":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
