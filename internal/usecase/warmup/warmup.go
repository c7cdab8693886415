// Package warmup reconciles a watchlist on a schedule so that user
// requests for those symbols are served from the store.
package warmup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"ticker-news/internal/domain/entity"
	"ticker-news/internal/usecase/news"
)

// ErrNoSymbols is returned by Run when the watchlist is empty.
var ErrNoSymbols = errors.New("warmup: no symbols configured")

// Reconciler is the part of news.Service used by the job.
type Reconciler interface {
	Reconcile(ctx context.Context, symbols []string) (news.Result, error)
}

// Config controls chunking and parallelism.
type Config struct {
	ChunkSize   int
	Concurrency int
}

// Stats summarizes one run.
type Stats struct {
	Symbols   int
	Chunks    int
	Failed    int // chunks whose reconcile returned an error
	Skipped   int // chunks not started after a failure
	Fresh     int
	Fetched   int
	Inserted  int
	Conflicts int
	// ProviderFailures counts chunks served from the store because the
	// provider call failed.
	ProviderFailures int
	Duration         time.Duration
}

// Job runs warm-up passes over a fixed watchlist.
type Job struct {
	svc     Reconciler
	symbols []string
	cfg     Config
	logger  *slog.Logger
}

// NewJob normalizes symbols once. Non-positive config values become 1.
func NewJob(svc Reconciler, symbols []string, cfg Config, logger *slog.Logger) *Job {
	if cfg.ChunkSize < 1 {
		cfg.ChunkSize = 1
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{
		svc:     svc,
		symbols: entity.NormalizeSymbols(symbols),
		cfg:     cfg,
		logger:  logger,
	}
}

// Symbols returns the normalized watchlist.
func (j *Job) Symbols() []string {
	return append([]string(nil), j.symbols...)
}

// Run reconciles every chunk. The first chunk error fails the run: chunks
// already running finish, chunks not yet started are skipped.
func (j *Job) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	stats := Stats{Symbols: len(j.symbols)}
	if len(j.symbols) == 0 {
		return stats, ErrNoSymbols
	}

	chunks := Chunk(j.symbols, j.cfg.ChunkSize)
	stats.Chunks = len(chunks)

	// A plain Group: Wait reports the first chunk error without canceling
	// chunks that are already running.
	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed atomic.Bool
	)
	g.SetLimit(j.cfg.Concurrency)

	for i, chunk := range chunks {
		g.Go(func() error {
			if failed.Load() || ctx.Err() != nil {
				mu.Lock()
				stats.Skipped++
				mu.Unlock()
				return nil
			}

			res, err := j.svc.Reconcile(ctx, chunk)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed.Store(true)
				stats.Failed++
				j.logger.Error("warm-up chunk failed",
					slog.Int("chunk", i),
					slog.Any("symbols", chunk),
					slog.Any("error", err))
				return fmt.Errorf("chunk %d (%d symbols): %w", i, len(chunk), err)
			}
			stats.Fresh += res.Stats.Fresh
			stats.Fetched += res.Stats.Fetched
			stats.Inserted += res.Stats.Inserted
			stats.Conflicts += res.Stats.Conflicts
			if res.Stats.ProviderFailed {
				stats.ProviderFailures++
			}
			return nil
		})
	}
	err := g.Wait()

	stats.Duration = time.Since(start)
	if err == nil {
		err = ctx.Err()
	}
	return stats, err
}

// Chunk splits symbols into slices of at most size elements.
func Chunk(symbols []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	out := make([][]string, 0, (len(symbols)+size-1)/size)
	for len(symbols) > 0 {
		n := min(size, len(symbols))
		out = append(out, symbols[:n:n])
		symbols = symbols[n:]
	}
	return out
}
