package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServeDefaults(t *testing.T) {
	cfg, err := LoadServe()
	require.NoError(t, err)

	assert.Equal(t, Serve{
		LogLevel:             "info",
		LogFormat:            LogFormatText,
		MaxReconnectAttempts: 10,
		ReconnectDelay:       3 * time.Second,
		SettleTimeout:        5 * time.Second,
		PushTimeout:          15 * time.Second,
	}, cfg)
}

func TestLoadServeFromEnvironment(t *testing.T) {
	t.Setenv("GSG_WORLD_FILE", " /srv/world.json ")
	t.Setenv("GSG_LOG_LEVEL", "DEBUG")
	t.Setenv("GSG_LOG_FORMAT", "json")
	t.Setenv("GSG_MAX_RECONNECT_ATTEMPTS", "2")
	t.Setenv("GSG_RECONNECT_DELAY", "250ms")
	t.Setenv("GSG_SETTLE_TIMEOUT", "1s")
	t.Setenv("GSG_PUSH_TIMEOUT", "30s")

	cfg, err := LoadServe()
	require.NoError(t, err)

	assert.Equal(t, "/srv/world.json", cfg.WorldFile)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, LogFormatJSON, cfg.LogFormat)
	assert.Equal(t, 2, cfg.MaxReconnectAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.ReconnectDelay)
	assert.Equal(t, time.Second, cfg.SettleTimeout)
	assert.Equal(t, 30*time.Second, cfg.PushTimeout)
}

func TestLoadServeRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{name: "not an int", key: "GSG_MAX_RECONNECT_ATTEMPTS", value: "many", want: "parse env:"},
		{name: "negative attempts", key: "GSG_MAX_RECONNECT_ATTEMPTS", value: "-1", want: "GSG_MAX_RECONNECT_ATTEMPTS"},
		{name: "bad duration", key: "GSG_RECONNECT_DELAY", value: "soon", want: "parse env:"},
		{name: "zero settle", key: "GSG_SETTLE_TIMEOUT", value: "0s", want: "GSG_SETTLE_TIMEOUT"},
		{name: "zero push", key: "GSG_PUSH_TIMEOUT", value: "0s", want: "GSG_PUSH_TIMEOUT"},
		{name: "unknown format", key: "GSG_LOG_FORMAT", value: "xml", want: "GSG_LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := LoadServe()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
