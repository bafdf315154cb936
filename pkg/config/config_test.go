package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/decision-gate/core/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("RUN_LOCK_URL", "")
	t.Setenv("RUNPACK_STORE_URL", "")
	t.Setenv("MAX_CANONICAL_BYTES", "")
	t.Setenv("STEP_TIMEOUT_MS", "")
	t.Setenv("DEV_PERMISSIVE", "")

	cfg := config.Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Contains(t, cfg.DatabaseURL, "localhost")
	assert.Equal(t, int64(1<<20), cfg.MaxCanonicalBytes)
	assert.Equal(t, 30*time.Second, cfg.StepTimeout)
	assert.False(t, cfg.DevPermissive)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DATABASE_URL", "postgres://production:5432/db")
	t.Setenv("MAX_CANONICAL_BYTES", "2097152")
	t.Setenv("STEP_TIMEOUT_MS", "5000")
	t.Setenv("DEV_PERMISSIVE", "true")

	cfg := config.Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "postgres://production:5432/db", cfg.DatabaseURL)
	assert.Equal(t, int64(2097152), cfg.MaxCanonicalBytes)
	assert.Equal(t, 5*time.Second, cfg.StepTimeout)
	assert.True(t, cfg.DevPermissive)
}
