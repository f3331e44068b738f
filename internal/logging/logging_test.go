package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("dev"))
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("prod"))
	assert.Equal(t, slog.LevelError, ParseLevel(""))
}

func TestNewHonoursLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")

	var buf bytes.Buffer
	log := New(&buf)
	log.Info("hidden")
	log.Warn("shown", "room", "ABCD12")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "room=ABCD12")
}

func TestWriterLogsEachLine(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	w := Writer(log, slog.LevelWarn, "component", "pion")
	n, err := w.Write([]byte("ice: candidate gathering failed\n"))
	assert.NoError(t, err)
	assert.Equal(t, 32, n)

	_, _ = w.Write([]byte("  \n"))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "level=WARN"))
	assert.Contains(t, out, `msg="ice: candidate gathering failed"`)
	assert.Contains(t, out, "component=pion")
}
