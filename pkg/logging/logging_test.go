package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, slog.LevelInfo, FormatJSON).Info("Payout executed", "group_id", 7)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Payout executed", line["msg"])
	assert.Equal(t, 7.0, line["group_id"])
}

func TestNewTextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn, FormatText)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("Contribute failed", "group_id", 3)
	assert.Contains(t, buf.String(), "Contribute failed")
	assert.Contains(t, buf.String(), "group_id=3")
	assert.NotContains(t, buf.String(), "\x1b[", "no color codes for non-terminal writers")
}

func TestEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "JSON")
	assert.Equal(t, slog.LevelDebug, levelFromEnv())
	assert.Equal(t, FormatJSON, formatFromEnv())

	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	assert.Equal(t, slog.LevelInfo, levelFromEnv())
	assert.Equal(t, FormatText, formatFromEnv())
}
