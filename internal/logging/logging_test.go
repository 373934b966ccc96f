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
	logger, err := New(&buf, Options{Level: "debug", Format: "json"})
	require.NoError(t, err)

	For(logger, ChannelRender).Debug("pass done", "cols", 80)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "render", rec["component"])
	assert.Equal(t, "pass done", rec["msg"])
	assert.EqualValues(t, 80, rec["cols"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Level: "warn"})
	require.NoError(t, err)

	logger.Info("hidden")
	assert.Zero(t, buf.Len())
	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)

	_, err = New(&bytes.Buffer{}, Options{Format: "xml"})
	assert.Error(t, err)
}

func TestForNil(t *testing.T) {
	assert.NotPanics(t, func() { For(nil, ChannelFetch).Info("ok") })
}
