package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ble-proximity.klederson.com/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		cfg  config.LogConfig
		want zerolog.Level
	}{
		{config.LogConfig{}, zerolog.InfoLevel},
		{config.LogConfig{Level: "debug"}, zerolog.DebugLevel},
		{config.LogConfig{Level: "WARN"}, zerolog.WarnLevel},
		{config.LogConfig{Level: "error"}, zerolog.ErrorLevel},
		{config.LogConfig{Level: "error", Debug: true}, zerolog.DebugLevel},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.cfg)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "level %q", tt.cfg.Level)
	}

	_, err := parseLevel(config.LogConfig{Level: "loud"})
	require.Error(t, err)
}

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proximity.log")

	l, closer, err := New(config.LogConfig{Level: "info", Output: path})
	require.NoError(t, err)

	Component(l, "engine").Info().Str("reason", "close").Msg("presence changed")
	Component(l, "engine").Debug().Msg("filtered out")
	require.NoError(t, closer())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "presence changed", entry["message"])
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "close", entry["reason"])
	assert.Equal(t, "info", entry["level"])
}

func TestNewRejectsBadOutput(t *testing.T) {
	_, _, err := New(config.LogConfig{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	require.Error(t, err)
}

func TestNewDiscard(t *testing.T) {
	l, closer, err := New(config.LogConfig{Output: "none"})
	require.NoError(t, err)
	require.NoError(t, closer())
	l.Info().Msg("dropped")
}
