package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps LOG_LEVEL style names to a slog level.
// Unknown names fall back to errors only.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	default:
		return slog.LevelError // production only shows errors
	}
}

// New builds a text logger writing to w at the level named by LOG_LEVEL.
func New(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(os.Getenv("LOG_LEVEL")),
	}))
}

// Init installs the default logger. The dashboard owns the terminal, so
// LOG_FILE redirects output away from stderr when set. The returned func
// closes that file.
func Init() func() {
	var w io.Writer = os.Stderr
	closeFn := func() {}

	if path := os.Getenv("LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			w = f
			closeFn = func() { _ = f.Close() }
		}
	}

	slog.SetDefault(New(w))
	return closeFn
}

// Writer adapts logger into an io.Writer for libraries that log through one.
// Each write becomes a single record at level.
func Writer(logger *slog.Logger, level slog.Level, attrs ...any) io.Writer {
	return &lineWriter{log: logger.With(attrs...), level: level}
}

type lineWriter struct {
	log   *slog.Logger
	level slog.Level
}

func (w *lineWriter) Write(p []byte) (int, error) {
	if msg := strings.TrimSpace(string(p)); msg != "" {
		w.log.Log(context.Background(), w.level, msg)
	}
	return len(p), nil
}
