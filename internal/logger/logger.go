package logger

import (
	"io"
	"os"

	"github.com/jeanpaul/dosely/internal/config"
	"golang.org/x/exp/slog"
)

// New builds the process logger for env, writing to stderr.
func New(env string) *slog.Logger {
	return NewWithWriter(env, os.Stderr)
}

// NewWithWriter is New with an explicit destination; the TUI points it at a
// log file so output does not corrupt the screen.
func NewWithWriter(env string, w io.Writer) *slog.Logger {
	switch env {
	case config.EnvLocal:
		return slog.New(NewPrettyHandler(w, slog.LevelDebug))
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

func setupPrettySlog() *slog.Logger {
	return slog.New(NewPrettyHandler(os.Stdout, slog.LevelDebug))
}

// Discard drops everything. Used by tests and by commands run with logging off.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
