package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestNewWritesJSONToBoth(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "propbot.log")

	l, closer := New(Options{Level: "info", File: path, Stdout: &buf})
	Component(l, "engine").Info("kill switch", "critical", true)
	l.Debug("hidden")
	require.NoError(t, closer.Close())

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "kill switch", rec["msg"])
	assert.Equal(t, "engine", rec["component"])
	assert.Equal(t, true, rec["critical"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"engine"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestNewStdoutOnly(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, closer := New(Options{Level: "debug", Stdout: &buf})
	l.Debug("visible")
	assert.NoError(t, closer.Close())
	assert.Contains(t, buf.String(), "visible")
}
