package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("whatever"))
}

func TestNew_FileOutput(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	l, err := New(Options{Level: "info", Format: "json", Output: "file", File: path, Service: "test"})
	require.NoError(t, err)

	l.Info("hello", slog.Int("n", 1))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"hello"`)
	assert.Contains(t, string(b), `"service":"test"`)
}

func TestOr(t *testing.T) {
	assert.Same(t, slog.Default(), Or(nil))
	l := slog.New(slog.NewTextHandler(os.Stderr, nil))
	assert.Same(t, l, Or(l))
}
