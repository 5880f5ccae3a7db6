package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxworks/studio-api/internal/config"
)

// setRequiredEnv sets the environment variables without which Load fails
// validation. Tests override individual keys on top of this baseline.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STUDIO_DATABASE_URL", "postgres://localhost:5432/studio?sslmode=disable")
	t.Setenv("STUDIO_AUTH_JWT_SECRET", "0123456789abcdef0123456789abcdef")
}

func TestLoad_DefaultsApplied(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "dispatch:jobs", cfg.Redis.QueueKey)
	assert.Equal(t, 60, cfg.Auth.TokenLifetimeMinutes)
	assert.Equal(t, 4, cfg.Executor.WorkerCount)
	assert.Equal(t, 3, cfg.Executor.MaxAttempts)
	assert.Equal(t, 60, cfg.Executor.RetryDelaySeconds)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STUDIO_SERVER_PORT", "9090")
	t.Setenv("STUDIO_SERVER_LOG_LEVEL", "debug")
	t.Setenv("STUDIO_EXECUTOR_WORKER_COUNT", "8")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 8, cfg.Executor.WorkerCount)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("STUDIO_AUTH_JWT_SECRET", "0123456789abcdef0123456789abcdef")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoad_ShortJWTSecret(t *testing.T) {
	t.Setenv("STUDIO_DATABASE_URL", "postgres://localhost:5432/studio?sslmode=disable")
	t.Setenv("STUDIO_AUTH_JWT_SECRET", "too-short")

	_, err := config.Load()
	require.Error(t, err)
}

func TestLoad_RejectsInvalidLogLevel(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STUDIO_SERVER_LOG_LEVEL", "verbose")

	_, err := config.Load()
	require.Error(t, err)
}
