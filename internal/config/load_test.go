package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 2, cfg.Engine.MaxConcurrent)
	assert.Equal(t, 4, cfg.Engine.PoolSize)
	assert.Equal(t, time.Minute, cfg.Engine.IdleTimeout)
	assert.Equal(t, 10*time.Second, cfg.Engine.HealthCheckTimeout)
	assert.Equal(t, 5*time.Second, cfg.Engine.CancelGrace)
	assert.Equal(t, 100, cfg.Engine.MaxQueueDepth)
	assert.True(t, cfg.Engine.EnableProgressReporting)
	assert.Equal(t, 16, cfg.Engine.ProgressBufferSize)
	assert.Equal(t, "memory", cfg.Cache.Backend)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SONIX_SERVER_PORT", "9090")
	t.Setenv("SONIX_SERVER_LOG_LEVEL", "debug")
	t.Setenv("SONIX_ENGINE_MAX_CONCURRENT", "6")
	t.Setenv("SONIX_ENGINE_POOL_SIZE", "8")
	t.Setenv("SONIX_ENGINE_IDLE_TIMEOUT", "90s")
	t.Setenv("SONIX_CACHE_BACKEND", "none")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 6, cfg.Engine.MaxConcurrent)
	assert.Equal(t, 8, cfg.Engine.PoolSize)
	assert.Equal(t, 90*time.Second, cfg.Engine.IdleTimeout)
	assert.Equal(t, "none", cfg.Cache.Backend)
}

func TestLoadValidation(t *testing.T) {
	t.Run("invalid log level", func(t *testing.T) {
		t.Setenv("SONIX_SERVER_LOG_LEVEL", "verbose")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validating config")
	})

	t.Run("pool smaller than concurrency bound", func(t *testing.T) {
		t.Setenv("SONIX_ENGINE_POOL_SIZE", "1")
		t.Setenv("SONIX_ENGINE_MAX_CONCURRENT", "4")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validating config")
	})

	t.Run("redis backend requires a url", func(t *testing.T) {
		t.Setenv("SONIX_CACHE_BACKEND", "redis")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validating config")
	})

	t.Run("redis backend with url", func(t *testing.T) {
		t.Setenv("SONIX_CACHE_BACKEND", "redis")
		t.Setenv("SONIX_CACHE_REDIS_URL", "redis://localhost:6379/0")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "redis", cfg.Cache.Backend)
	})
}
