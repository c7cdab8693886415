package worker

import (
	"fmt"
	"log/slog"
	"time"

	"ticker-news/internal/pkg/config"
)

// WorkerConfig holds the scheduling settings of the warm-up worker.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// Every field has a default, so an invalid value never prevents the worker
// from starting. Database and provider settings are not part of this struct;
// they are loaded fail-closed by internal/config.
type WorkerConfig struct {
	// CronSchedule is the cron expression for warm-up runs.
	// Format: "minute hour day month weekday"
	// Default: "*/30 * * * *" (every 30 minutes)
	CronSchedule string

	// Timezone is the IANA timezone name used by the scheduler.
	// Default: "UTC"
	Timezone string

	// Symbols are the watch symbols from WARMUP_SYMBOLS, as given.
	// Normalization happens when the run is planned.
	Symbols []string

	// WatchlistFile is an optional YAML file with additional watchlists.
	WatchlistFile string

	// ChunkSize is the number of symbols per reconcile call.
	// Range: 1-100
	// Default: 20
	ChunkSize int

	// Concurrency is the number of chunks reconciled at once.
	// Range: 1-16
	// Default: 2
	Concurrency int

	// JobTimeout bounds one warm-up run.
	// Range: 10s-1h
	// Default: 5 minutes
	JobTimeout time.Duration

	// HealthPort is the port for /health, /health/ready and /metrics.
	// Range: 1024-65535
	// Default: 9091
	HealthPort int
}

// DefaultConfig returns a WorkerConfig with default values.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule: "*/30 * * * *",
		Timezone:     "UTC",
		ChunkSize:    20,
		Concurrency:  2,
		JobTimeout:   5 * time.Minute,
		HealthPort:   9091,
	}
}

// Validate checks every field and returns all failures together.
//
// Example:
//
//	cfg := DefaultConfig()
//	cfg.ChunkSize = 0
//	err := cfg.Validate()
//	// err contains: "validation failed: [chunk size: value 0 out of range [1, 100]]"
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := chunkSizeRange(c.ChunkSize); err != nil {
		errs = append(errs, fmt.Errorf("chunk size: %w", err))
	}
	if err := concurrencyRange(c.Concurrency); err != nil {
		errs = append(errs, fmt.Errorf("concurrency: %w", err))
	}
	if err := jobTimeoutRange(c.JobTimeout); err != nil {
		errs = append(errs, fmt.Errorf("job timeout: %w", err))
	}
	if err := healthPortRange(c.HealthPort); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

var (
	chunkSizeRange   = config.IntRange(1, 100)
	concurrencyRange = config.IntRange(1, 16)
	jobTimeoutRange  = config.DurationRange(10*time.Second, time.Hour)
	healthPortRange  = config.IntRange(1024, 65535)
)

// LoadConfigFromEnv loads worker configuration from environment variables
// with validation and fallback to default values.
//
// Fail-open strategy:
//  1. Start with DefaultConfig()
//  2. Load and validate each field
//  3. On failure keep the default, log a warning and record config metrics
//  4. Never return an error
//
// Environment variables:
//   - WARMUP_SCHEDULE: cron expression (default: "*/30 * * * *")
//   - WARMUP_TIMEZONE: IANA timezone name (default: "UTC")
//   - WARMUP_SYMBOLS: comma separated symbols (default: none)
//   - WARMUP_WATCHLIST_FILE: YAML watchlist path (default: none)
//   - WARMUP_CHUNK_SIZE: 1-100 (default: 20)
//   - WARMUP_CONCURRENCY: 1-16 (default: 2)
//   - WARMUP_TIMEOUT: duration 10s-1h (default: 5m)
//   - WORKER_HEALTH_PORT: 1024-65535 (default: 9091)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()

	var cm *config.ConfigMetrics
	if metrics != nil {
		cm = metrics.ConfigMetrics
	}
	l := config.NewLoader(cm)

	cfg.CronSchedule = l.String("WARMUP_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.Timezone = l.String("WARMUP_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Symbols = l.List("WARMUP_SYMBOLS")
	cfg.WatchlistFile = l.String("WARMUP_WATCHLIST_FILE", "", nil)
	cfg.ChunkSize = l.Int("WARMUP_CHUNK_SIZE", cfg.ChunkSize, chunkSizeRange)
	cfg.Concurrency = l.Int("WARMUP_CONCURRENCY", cfg.Concurrency, concurrencyRange)
	cfg.JobTimeout = l.Duration("WARMUP_TIMEOUT", cfg.JobTimeout, jobTimeoutRange)
	cfg.HealthPort = l.Int("WORKER_HEALTH_PORT", cfg.HealthPort, healthPortRange)

	for _, w := range l.Warnings() {
		logger.Warn("Configuration fallback applied", slog.String("warning", w))
	}
	if cm != nil {
		cm.SetFallbackActive(l.FallbackApplied())
		cm.RecordLoadTimestamp()
	}

	// fail-open: 常に有効な設定を返す
	return &cfg, nil
}
