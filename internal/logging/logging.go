package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Formats lists the accepted log formats.
var Formats = []string{"text", "json", "tint"}

// NewLogger creates a logger writing to stderr.
// Stdout is left to program output.
func NewLogger(level slog.Level, format string) *slog.Logger {
	return New(level, format, os.Stderr)
}

// New creates a logger writing to w.
//
// format: "text" (key=value), "json" (structured), or "tint"
// (colourised text for a terminal). Anything else means text.
func New(level slog.Level, format string, w io.Writer) *slog.Logger {
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "tint":
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.StampMicro,
		})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

// ValidFormat reports whether format is one of Formats.
func ValidFormat(format string) bool {
	for _, f := range Formats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

// ParseLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func ParseLevel(s string) slog.Level {
	l, _ := LookupLevel(s)
	return l
}

// LookupLevel is ParseLevel that also reports whether s was recognized.
func LookupLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
