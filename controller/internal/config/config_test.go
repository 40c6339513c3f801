package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "./data/state.json", cfg.DataFile)
	assert.Equal(t, "255.255.255.255", cfg.DefaultBroadcast)
	assert.Equal(t, 9, cfg.DefaultWoLPort)
	assert.Equal(t, 5*time.Second, cfg.RelayTimeout)
	assert.Equal(t, 3*time.Second, cfg.ProbeTimeout)
	assert.False(t, cfg.AdminAuthEnabled())
	assert.False(t, cfg.RedisEnabled)
	assert.Equal(t, []string{"nats://localhost:4222"}, cfg.NATSURLs)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DATA_FILE", "/var/lib/wol/state.json")
	t.Setenv("RELAY_TIMEOUT_SECONDS", "2")
	t.Setenv("ADMIN_PASSWORD", "hunter2")
	t.Setenv("NATS_URLS", "nats://a:4222, nats://b:4222")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "/var/lib/wol/state.json", cfg.DataFile)
	assert.Equal(t, 2*time.Second, cfg.RelayTimeout)
	assert.True(t, cfg.AdminAuthEnabled())
	assert.Equal(t, []string{"nats://a:4222", "nats://b:4222"}, cfg.NATSURLs)
}

func TestLoadConfigRejectsBadPort(t *testing.T) {
	t.Setenv("DEFAULT_WOL_PORT", "70000")

	_, err := LoadConfig()
	assert.Error(t, err)
}
