package worker

import (
	"feedctl/internal/pkg/config"
	"fmt"
	"log/slog"
	"time"
)

// WorkerConfig holds the configuration for the cmd/worker process: the
// auto-analysis pump's cron-style dispatch cadence, the run watchdog's
// stuck-run cutoff, and the process's own health port.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// All fields have sensible defaults and validation rules so the worker can
// operate safely even with invalid or missing configuration (fail-open).
type WorkerConfig struct {
	// AutoPumpCronSchedule is the cron expression driving the auto-analysis
	// pump's batch-dispatch cadence (robfig/cron/v3 format, 5 fields).
	// Default: "*/2 * * * *" (every 2 minutes).
	AutoPumpCronSchedule string

	// Timezone is the IANA timezone name used to interpret CronSchedule.
	// Default: "UTC".
	Timezone string

	// RunWatchdogInterval is how often the watchdog sweeps for RUNNING
	// analysis runs stuck past RunWatchdogTimeout.
	// Default: 5 minutes.
	RunWatchdogInterval time.Duration

	// RunWatchdogTimeout is how long a run may stay RUNNING before the
	// watchdog force-fails it.
	// Default: 30 minutes.
	RunWatchdogTimeout time.Duration

	// HealthPort is the port for the worker's own liveness/readiness HTTP
	// server, separate from the API process's.
	// Range: 1024-65535.
	// Default: 9091.
	HealthPort int
}

// DefaultConfig returns a WorkerConfig with sensible default values.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		AutoPumpCronSchedule: "*/2 * * * *",
		Timezone:             "UTC",
		RunWatchdogInterval:  5 * time.Minute,
		RunWatchdogTimeout:   30 * time.Minute,
		HealthPort:           9091,
	}
}

// Validate checks if the configuration values are valid, collecting every
// field error rather than failing on the first.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.AutoPumpCronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("auto pump cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.RunWatchdogInterval); err != nil {
		errs = append(errs, fmt.Errorf("run watchdog interval: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.RunWatchdogTimeout); err != nil {
		errs = append(errs, fmt.Errorf("run watchdog timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads worker configuration from environment variables
// with validation and automatic fallback to default values on failure
// (fail-open: always returns a valid configuration, never an error).
//
// Environment variables:
//   - AUTOPUMP_CRON_SCHEDULE: cron expression (default: "*/2 * * * *")
//   - WORKER_TIMEZONE: IANA timezone name (default: "UTC")
//   - RUN_WATCHDOG_INTERVAL: duration string (default: "5m")
//   - RUN_WATCHDOG_TIMEOUT: duration string (default: "30m")
//   - WORKER_HEALTH_PORT: integer 1024-65535 (default: 9091)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	applyString := func(field, envKey, current string, validate func(string) error) string {
		result := config.LoadEnvWithFallback(envKey, current, validate)
		if result.FallbackApplied {
			fallbackApplied = true
			metrics.RecordValidationError(field)
			metrics.RecordFallback(field, "default")
			for _, warning := range result.Warnings {
				logger.Warn("Configuration fallback applied",
					slog.String("field", field), slog.String("warning", warning))
			}
		}
		return result.Value.(string)
	}

	applyDuration := func(field, envKey string, current, min, max time.Duration) time.Duration {
		result := config.LoadEnvDuration(envKey, current, func(d time.Duration) error {
			return config.ValidateDuration(d, min, max)
		})
		if result.FallbackApplied {
			fallbackApplied = true
			metrics.RecordValidationError(field)
			metrics.RecordFallback(field, "default")
			for _, warning := range result.Warnings {
				logger.Warn("Configuration fallback applied",
					slog.String("field", field), slog.String("warning", warning))
			}
		}
		return result.Value.(time.Duration)
	}

	cfg.AutoPumpCronSchedule = applyString("auto_pump_cron_schedule", "AUTOPUMP_CRON_SCHEDULE", cfg.AutoPumpCronSchedule, config.ValidateCronSchedule)
	cfg.Timezone = applyString("timezone", "WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.RunWatchdogInterval = applyDuration("run_watchdog_interval", "RUN_WATCHDOG_INTERVAL", cfg.RunWatchdogInterval, time.Second, time.Hour)
	cfg.RunWatchdogTimeout = applyDuration("run_watchdog_timeout", "RUN_WATCHDOG_TIMEOUT", cfg.RunWatchdogTimeout, time.Minute, 4*time.Hour)

	result := config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("health_port")
		metrics.RecordFallback("health_port", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "HealthPort"), slog.String("warning", warning))
		}
	}

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
