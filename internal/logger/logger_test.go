package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for name, want := range tests {
		assert.Equal(t, want, ParseLevel(name), "level %q", name)
	}
}

func TestNewTextLowercasesLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Options{Level: "info", Format: FormatAuto})

	log.Warn("port listed twice", "port", 3)
	log.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "level=warn")
	assert.Contains(t, out, "port=3")
	assert.NotContains(t, out, "hidden")
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Options{Level: "debug", Format: FormatJSON})
	log.Debug("subnet processed", "subnet", "fe80:0000:0000:0000")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "subnet processed", rec["msg"])
	assert.Equal(t, "fe80:0000:0000:0000", rec["subnet"])
}

func TestNewTintWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Options{Format: FormatTint})
	log.Info("hello", "k", "v")

	assert.Contains(t, buf.String(), "hello")
	assert.NotContains(t, buf.String(), "\x1b[", "no colour when not a terminal")
}
