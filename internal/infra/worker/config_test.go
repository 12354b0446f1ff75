package worker

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// promauto panics on duplicate registration, so every test shares one
// Metrics instance.
var testMetrics = NewMetrics()

func clearWorkerEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"RUN_SCHEDULE", "CLEANUP_SCHEDULE", "WORKER_TIMEZONE", "RUN_TIMEOUT", "WORKER_HEALTH_PORT"} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "0 6 * * *", cfg.RunSchedule)
	assert.Equal(t, "0 3 * * *", cfg.CleanupSchedule)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 30*time.Minute, cfg.RunTimeout)
	assert.Equal(t, 9091, cfg.HealthPort)

	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad run schedule", func(c *Config) { c.RunSchedule = "every day" }, "run schedule"},
		{"bad cleanup schedule", func(c *Config) { c.CleanupSchedule = "* * *" }, "cleanup schedule"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "timezone"},
		{"zero run timeout", func(c *Config) { c.RunTimeout = 0 }, "run timeout"},
		{"privileged health port", func(c *Config) { c.HealthPort = 80 }, "health port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	clearWorkerEnv(t)
	t.Setenv("RUN_SCHEDULE", "0 */6 * * *")
	t.Setenv("CLEANUP_SCHEDULE", "30 2 * * *")
	t.Setenv("WORKER_TIMEZONE", "Europe/Berlin")
	t.Setenv("RUN_TIMEOUT", "1h")
	t.Setenv("WORKER_HEALTH_PORT", "9200")

	cfg, err := LoadConfigFromEnv(slog.Default(), testMetrics)
	require.NoError(t, err)

	assert.Equal(t, "0 */6 * * *", cfg.RunSchedule)
	assert.Equal(t, "30 2 * * *", cfg.CleanupSchedule)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
	assert.Equal(t, time.Hour, cfg.RunTimeout)
	assert.Equal(t, 9200, cfg.HealthPort)
}

func TestLoadConfigFromEnv_InvalidValuesFallBack(t *testing.T) {
	clearWorkerEnv(t)
	t.Setenv("RUN_SCHEDULE", "whenever")
	t.Setenv("WORKER_TIMEZONE", "Nowhere/Fast")
	t.Setenv("RUN_TIMEOUT", "10h")
	t.Setenv("WORKER_HEALTH_PORT", "99999")

	cfg, err := LoadConfigFromEnv(slog.Default(), testMetrics)
	require.NoError(t, err)

	defaults := DefaultConfig()
	assert.Equal(t, defaults.RunSchedule, cfg.RunSchedule)
	assert.Equal(t, defaults.Timezone, cfg.Timezone)
	assert.Equal(t, defaults.RunTimeout, cfg.RunTimeout)
	assert.Equal(t, defaults.HealthPort, cfg.HealthPort)

	require.NoError(t, cfg.Validate())
}
