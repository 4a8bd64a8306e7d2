package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_NoBackendIsNotAnError(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	t.Setenv("BACKEND_KEY", "")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.False(t, cfg.BackendConfigured())
	assert.Equal(t, RealtimeDriverPostgres, cfg.RealtimeDriver)
	assert.Equal(t, "alert-images", cfg.StorageBucket)
}

func TestLoadConfig_ParsesValues(t *testing.T) {
	t.Setenv("BACKEND_URL", "postgres://app@db.example.com:5432/postgres")
	t.Setenv("BACKEND_KEY", "secret")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_POOL_SIZE", "2")
	t.Setenv("REALTIME_DRIVER", "redis")
	t.Setenv("STORAGE_USE_SSL", "true")
	t.Setenv("API_KEYS", " a , b")
	t.Setenv("RELAY_RETRY_DELAY", "250ms")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.True(t, cfg.BackendConfigured())
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 2, cfg.RedisPoolSize)
	assert.Equal(t, RealtimeDriverRedis, cfg.RealtimeDriver)
	assert.True(t, cfg.StorageUseSSL)
	assert.Equal(t, []string{"a", "b"}, cfg.APIKeys)
	assert.Equal(t, 250*time.Millisecond, cfg.RelayRetryDelay)
}

func TestLoadConfig_UnknownRealtimeDriver(t *testing.T) {
	t.Setenv("REALTIME_DRIVER", "kafka")

	_, err := LoadConfig()

	assert.ErrorContains(t, err, "unsupported REALTIME_DRIVER")
}

func TestBackendConfigured_Placeholders(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"both set", Config{BackendURL: "postgres://x", BackendKey: "k"}, true},
		{"missing key", Config{BackendURL: "postgres://x"}, false},
		{"missing url", Config{BackendKey: "k"}, false},
		{"placeholder url", Config{BackendURL: PlaceholderBackendURL, BackendKey: "k"}, false},
		{"placeholder key", Config{BackendURL: "postgres://x", BackendKey: PlaceholderBackendKey}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.BackendConfigured())
		})
	}
}
