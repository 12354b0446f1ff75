package worker

import (
	"fmt"
	"log/slog"
	"time"

	"intelwire/internal/pkg/config"
)

// Config holds the scheduling configuration for the worker process.
//
// Loading follows a fail-open strategy: invalid environment values fall back
// to defaults with a warning and a metric instead of refusing to start, so a
// typo in one variable never takes the whole worker down.
type Config struct {
	// RunSchedule is the cron expression for intelligence runs.
	// Format: "minute hour day month weekday"
	// Default: "0 6 * * *" (every day at 06:00)
	RunSchedule string

	// CleanupSchedule is the cron expression for log retention cleanup.
	// Default: "0 3 * * *" (every day at 03:00)
	CleanupSchedule string

	// Timezone is the IANA timezone name used for cron scheduling.
	// Default: "UTC"
	Timezone string

	// RunTimeout bounds a single intelligence run. A run that exceeds it is
	// cancelled through its context.
	// Default: 30 minutes
	RunTimeout time.Duration

	// HealthPort is the port for the worker health check server.
	// Range: 1024-65535
	// Default: 9091
	HealthPort int
}

// DefaultConfig returns a Config with production defaults: a daily morning
// run, pre-run log cleanup and a bounded run duration.
func DefaultConfig() Config {
	return Config{
		RunSchedule:     "0 6 * * *",
		CleanupSchedule: "0 3 * * *",
		Timezone:        "UTC",
		RunTimeout:      30 * time.Minute,
		HealthPort:      9091,
	}
}

// Validate checks the configuration values. All failures are aggregated so a
// single pass reports every bad field.
func (c *Config) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.RunSchedule); err != nil {
		errs = append(errs, fmt.Errorf("run schedule: %w", err))
	}

	if err := config.ValidateCronSchedule(c.CleanupSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cleanup schedule: %w", err))
	}

	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}

	if err := config.ValidatePositiveDuration(c.RunTimeout); err != nil {
		errs = append(errs, fmt.Errorf("run timeout: %w", err))
	}

	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}

	return nil
}

// LoadConfigFromEnv loads worker configuration from environment variables.
//
// Environment variables:
//   - RUN_SCHEDULE: Cron expression (default: "0 6 * * *")
//   - CLEANUP_SCHEDULE: Cron expression (default: "0 3 * * *")
//   - WORKER_TIMEZONE: IANA timezone name (default: "UTC")
//   - RUN_TIMEOUT: Duration string, e.g. "30m" (default: 30 minutes)
//   - WORKER_HEALTH_PORT: Integer 1024-65535 (default: 9091)
//
// Each invalid value falls back to its default, logs a warning and updates
// the fallback metrics. The returned config is always valid and the error is
// always nil.
func LoadConfigFromEnv(logger *slog.Logger, metrics *Metrics) (*Config, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	apply := func(field string, r config.LoadResult) {
		if r.Fallback {
			fallbackApplied = true
			metrics.RecordValidationError(field)
			metrics.RecordFallback(field)
			logger.Warn("configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", r.Warning))
		}
	}

	var r config.LoadResult
	cfg.RunSchedule, r = config.LoadEnv("RUN_SCHEDULE", cfg.RunSchedule, config.ValidateCronSchedule)
	apply("run_schedule", r)

	cfg.CleanupSchedule, r = config.LoadEnv("CLEANUP_SCHEDULE", cfg.CleanupSchedule, config.ValidateCronSchedule)
	apply("cleanup_schedule", r)

	cfg.Timezone, r = config.LoadEnv("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	apply("timezone", r)

	cfg.RunTimeout, r = config.LoadEnvDuration("RUN_TIMEOUT", cfg.RunTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Minute, 4*time.Hour)
	})
	apply("run_timeout", r)

	cfg.HealthPort, r = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	apply("health_port", r)

	metrics.SetFallbackActive(fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
