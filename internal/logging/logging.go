package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds the service logger: JSON lines in production, text otherwise.
func New(level string, production bool) *slog.Logger {
	return newLogger(os.Stderr, level, production)
}

// Nop discards everything. Use in tests.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newLogger(w io.Writer, level string, production bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if production {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
