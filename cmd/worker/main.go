package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"ticker-news/internal/config"
	"ticker-news/internal/handler/http/respond"
	pgRepo "ticker-news/internal/infra/adapter/persistence/postgres"
	"ticker-news/internal/infra/db"
	"ticker-news/internal/infra/provider/marketaux"
	workerPkg "ticker-news/internal/infra/worker"
	"ticker-news/internal/observability/logging"
	"ticker-news/internal/observability/tracing"
	pkgconfig "ticker-news/internal/pkg/config"
	"ticker-news/internal/usecase/news"
	"ticker-news/internal/usecase/warmup"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("worker failed", slog.Any("error", respond.SanitizeError(err)))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	// DB とプロバイダ設定は fail-closed
	newsCfg, err := config.LoadNewsConfig()
	if err != nil {
		return err
	}

	// スケジューラ設定は fail-open
	workerMetrics := workerPkg.NewWorkerMetrics(prometheus.DefaultRegisterer)
	workerCfg, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		return fmt.Errorf("load worker configuration: %w", err)
	}

	// 調整用パラメータは fail-open
	env := pkgconfig.NewLoader(workerMetrics.ConfigMetrics)
	sampleRatio := env.Float("OTEL_TRACES_SAMPLER_ARG", 1, pkgconfig.NonNegativeFloat)
	poolCfg := db.ConnectionConfigFromEnv(env)
	for _, w := range env.Warnings() {
		logger.Warn("Configuration fallback applied", slog.String("warning", w))
	}

	shutdownTracing := tracing.Init("ticker-news-worker", version(), sampleRatio)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", slog.Any("error", err))
		}
	}()

	database, err := db.Open(ctx, newsCfg.DatabaseURL, poolCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()
	if err := db.MigrateUp(ctx, database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	provider, err := marketaux.New(newsCfg.Marketaux)
	if err != nil {
		return err
	}
	svc := news.NewService(pgRepo.NewArticleRepo(database), provider, news.Config{Horizon: newsCfg.Horizon})

	job := warmup.NewJob(svc, watchSymbols(logger, workerCfg), warmup.Config{
		ChunkSize:   workerCfg.ChunkSize,
		Concurrency: workerCfg.Concurrency,
	}, logger)
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerCfg.CronSchedule),
		slog.String("timezone", workerCfg.Timezone),
		slog.Int("symbols", len(job.Symbols())),
		slog.Int("chunk_size", workerCfg.ChunkSize),
		slog.Int("concurrency", workerCfg.Concurrency),
		slog.Duration("job_timeout", workerCfg.JobTimeout),
		slog.Int("health_port", workerCfg.HealthPort))

	healthAddr := fmt.Sprintf(":%d", workerCfg.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger, prometheus.DefaultGatherer)
	go func() {
		if err := healthServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	loc, err := time.LoadLocation(workerCfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", workerCfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(workerCfg.CronSchedule, func() {
		runWarmup(ctx, logger, job, workerCfg.JobTimeout, workerMetrics)
	}); err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}
	c.Start()

	healthServer.SetReady(true)
	logger.Info("worker started", slog.String("schedule", workerCfg.CronSchedule), slog.String("timezone", workerCfg.Timezone))

	<-ctx.Done()
	logger.Info("shutting down worker...")
	healthServer.SetReady(false)

	// 実行中のジョブの完了を待つ
	<-c.Stop().Done()
	logger.Info("worker stopped")
	return nil
}

// watchSymbols merges WARMUP_SYMBOLS with the watchlist file. A broken file
// is reported and ignored so the env symbols still get warmed.
func watchSymbols(logger *slog.Logger, cfg *workerPkg.WorkerConfig) []string {
	symbols := append([]string(nil), cfg.Symbols...)
	if cfg.WatchlistFile == "" {
		return symbols
	}
	wf, err := config.LoadWatchlistFile(cfg.WatchlistFile)
	if err != nil {
		logger.Warn("watchlist file ignored",
			slog.String("path", cfg.WatchlistFile),
			slog.Any("error", err))
		return symbols
	}
	logger.Info("watchlist file loaded",
		slog.String("path", cfg.WatchlistFile),
		slog.Int("watchlists", len(wf.Watchlists)))
	return append(symbols, wf.Symbols()...)
}

// runWarmup executes a single warm-up pass with timeout and metrics.
func runWarmup(parent context.Context, logger *slog.Logger, job *warmup.Job, timeout time.Duration, m *workerPkg.WorkerMetrics) {
	if parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	logger.Info("warm-up started", slog.Int("symbols", len(job.Symbols())))
	stats, err := job.Run(ctx)
	m.RecordDuration(stats.Duration.Seconds())

	switch {
	case errors.Is(err, warmup.ErrNoSymbols):
		logger.Warn("warm-up skipped: no symbols configured")
		m.RecordRun("skipped")
		return
	case err != nil:
		logger.Error("warm-up failed",
			slog.Any("error", respond.SanitizeError(err)),
			slog.Int("failed_chunks", stats.Failed),
			slog.Int("skipped_chunks", stats.Skipped))
		m.RecordRun("failure")
		return
	}

	m.RecordRun("success")
	m.RecordSymbols(stats.Symbols)
	m.RecordLastSuccess()

	logger.Info("warm-up completed",
		slog.Int("symbols", stats.Symbols),
		slog.Int("chunks", stats.Chunks),
		slog.Int("fresh", stats.Fresh),
		slog.Int("fetched", stats.Fetched),
		slog.Int("inserted", stats.Inserted),
		slog.Int("conflicts", stats.Conflicts),
		slog.Int("provider_failures", stats.ProviderFailures),
		slog.Duration("duration", stats.Duration))
}

func version() string {
	if v := os.Getenv("VERSION"); v != "" {
		return v
	}
	return "dev"
}
