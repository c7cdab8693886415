package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticker-news/internal/config"
	hhttp "ticker-news/internal/handler/http"
	hauth "ticker-news/internal/handler/http/auth"
	hnews "ticker-news/internal/handler/http/news"
	"ticker-news/internal/handler/http/requestid"
	"ticker-news/internal/handler/http/respond"
	pgRepo "ticker-news/internal/infra/adapter/persistence/postgres"
	"ticker-news/internal/infra/db"
	"ticker-news/internal/infra/provider/marketaux"
	"ticker-news/internal/observability/logging"
	"ticker-news/internal/observability/tracing"
	pkgconfig "ticker-news/internal/pkg/config"
	"ticker-news/internal/usecase/news"
)

// @title           Ticker News API
// @version         1.0
// @description     銘柄ニュースのキャッシュアサイド API
// @description     保存済みの記事が古い銘柄だけをプロバイダから取得します。

// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT_SECRET 設定時のみ必須。"Bearer {token}" 形式で指定してください。

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("api failed", slog.Any("error", respond.SanitizeError(err)))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		return err
	}
	if !cfg.AuthEnabled() {
		logger.Warn("JWT_SECRET not set, /news is served without authentication")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ver := version()
	// 調整用パラメータは fail-open
	env := pkgconfig.NewLoader(nil)
	sampleRatio := env.Float("OTEL_TRACES_SAMPLER_ARG", 1, pkgconfig.NonNegativeFloat)
	poolCfg := db.ConnectionConfigFromEnv(env)
	for _, w := range env.Warnings() {
		logger.Warn("Configuration fallback applied", slog.String("warning", w))
	}

	shutdownTracing := tracing.Init("ticker-news-api", ver, sampleRatio)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", slog.Any("error", err))
		}
	}()

	database, err := db.Open(ctx, cfg.DatabaseURL, poolCfg)
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

	provider, err := marketaux.New(cfg.Marketaux)
	if err != nil {
		return err
	}
	svc := news.NewService(pgRepo.NewArticleRepo(database), provider, news.Config{Horizon: cfg.Horizon})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newHandler(logger, cfg, database, svc, provider, ver),
		ReadHeaderTimeout: 10 * time.Second, // Slowloris 対策
		ReadTimeout:       15 * time.Second,
		// /news のタイムアウトより長くする
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("version", ver),
			slog.Duration("horizon", cfg.Horizon),
			slog.Bool("auth_enabled", cfg.AuthEnabled()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-quit:
	}
	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
	return nil
}

// newHandler registers routes and applies the middleware chain:
// recover → request id → tracing → logging → metrics → body limit.
func newHandler(logger *slog.Logger, cfg *config.APIConfig, database *sql.DB, svc hnews.Reconciler, provider *marketaux.Client, ver string) http.Handler {
	mux := http.NewServeMux()

	// ヘルスチェックエンドポイント（認証不要）
	mux.Handle("GET /health", &hhttp.HealthHandler{DB: database, Version: ver, Circuit: provider.Circuit()})
	mux.Handle("GET /ready", &hhttp.ReadyHandler{DB: database})
	mux.Handle("GET /live", hhttp.LiveHandler{})
	mux.Handle("GET /metrics", hhttp.MetricsHandler())

	newsMW := []hhttp.Middleware{hhttp.Timeout(cfg.RequestTimeout)}
	if cfg.AuthEnabled() {
		newsMW = append([]hhttp.Middleware{hauth.Middleware([]byte(cfg.JWTSecret))}, newsMW...)
	}
	hnews.Register(mux, svc, func(h http.Handler) http.Handler {
		return hhttp.Chain(h, newsMW...)
	})

	return hhttp.Chain(mux,
		hhttp.Recover(logger),
		requestid.Middleware,
		tracing.Middleware,
		hhttp.Logging(logger),
		hhttp.MetricsMiddleware,
		hhttp.LimitRequest(0),
	)
}

func version() string {
	if v := os.Getenv("VERSION"); v != "" {
		return v
	}
	return "dev"
}
