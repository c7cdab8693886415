package news

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"ticker-news/internal/domain/entity"
	"ticker-news/internal/observability/logging"
	"ticker-news/internal/observability/metrics"
	"ticker-news/internal/observability/tracing"
	"ticker-news/internal/repository"
)

// DefaultHorizon is how long cached coverage is trusted without re-fetching.
const DefaultHorizon = 6 * time.Hour

// Provider fetches articles for several symbols in a single upstream call.
type Provider interface {
	FetchBySymbols(ctx context.Context, symbols []string) ([]*entity.Article, error)
}

// Config holds the reconciler settings.
type Config struct {
	Horizon time.Duration
}

// DefaultConfig returns the configuration with a 6 hour horizon.
func DefaultConfig() Config {
	return Config{Horizon: DefaultHorizon}
}

// Stats summarizes one reconcile run.
type Stats struct {
	Requested      int
	Fresh          int
	NeedsFetch     int
	Fetched        int
	ProviderFailed bool
	BatchDupes     int // repeated identities inside one provider response
	Existing       int // identities already in the store before insert
	Conflicts      int // identities lost to a concurrent writer
	Inserted       int
	Returned       int
}

// Result is the outcome of Reconcile.
type Result struct {
	Articles []*entity.Article
	Stats    Stats
}

// Service provides the cache-aside news lookup.
type Service struct {
	Repo     repository.ArticleRepository
	Provider Provider
	Config   Config
	// Now returns the query instant. Defaults to time.Now.
	Now func() time.Time
}

// NewService creates a Service. A non-positive horizon is replaced by DefaultHorizon.
func NewService(repo repository.ArticleRepository, provider Provider, cfg Config) *Service {
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultHorizon
	}
	return &Service{
		Repo:     repo,
		Provider: provider,
		Config:   cfg,
		Now:      time.Now,
	}
}

// GetNews returns the fresh articles tagged with any of symbols, newest first.
func (s *Service) GetNews(ctx context.Context, symbols []string) ([]*entity.Article, error) {
	res, err := s.Reconcile(ctx, symbols)
	if err != nil {
		return nil, err
	}
	return res.Articles, nil
}

// Reconcile classifies symbols, fetches the stale or missing ones, persists
// new articles and re-queries the store with the same query instant.
//
// Provider failures and identity conflicts are recovered. Store failures
// are returned; a failed insert wraps repository.ErrPersistence.
func (s *Service) Reconcile(ctx context.Context, symbols []string) (Result, error) {
	start := time.Now()
	logger := logging.FromContext(ctx)

	requested := entity.NormalizeSymbols(symbols)
	if len(requested) == 0 {
		metrics.RecordReconcile("empty", time.Since(start))
		return Result{Articles: []*entity.Article{}}, nil
	}

	ctx, span := tracing.Tracer().Start(ctx, "news.Reconcile")
	defer span.End()
	span.SetAttributes(attribute.StringSlice("news.symbols", requested))

	now := s.now().UTC()
	stats := Stats{Requested: len(requested)}

	fail := func(err error) (Result, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordReconcile("error", time.Since(start))
		logger.Error("news reconcile failed",
			slog.Any("symbols", requested),
			slog.Any("error", err))
		return Result{Stats: stats}, err
	}

	cls, err := Classify(ctx, s.Repo, requested, now, s.Config.Horizon)
	if err != nil {
		return fail(fmt.Errorf("classify symbols: %w", err))
	}
	stats.Fresh = len(cls.Fresh)
	stats.NeedsFetch = len(cls.NeedsFetch)
	metrics.RecordClassification(stats.Fresh, stats.NeedsFetch)

	if len(cls.NeedsFetch) > 0 {
		fetched, err := s.fetch(ctx, cls.NeedsFetch)
		if err != nil {
			stats.ProviderFailed = true
			span.AddEvent("provider unavailable")
			logger.Warn("news provider call failed, serving cached coverage",
				slog.Any("symbols", cls.NeedsFetch),
				slog.Any("error", err))
		}
		stats.Fetched = len(fetched)

		if err := s.persist(ctx, fetched, &stats); err != nil {
			return fail(fmt.Errorf("persist fetched articles: %w", err))
		}
	}

	articles, err := s.Repo.Query(ctx, repository.ArticleFilter{
		Symbols:        requested,
		PublishedSince: entity.FreshSince(now, s.Config.Horizon),
	})
	if err != nil {
		return fail(fmt.Errorf("query fresh articles: %w", err))
	}
	SortNewestFirst(articles)
	stats.Returned = len(articles)

	duration := time.Since(start)
	metrics.RecordReconcile("ok", duration)
	logger.Info("news reconcile completed",
		slog.Int("requested", stats.Requested),
		slog.Int("fresh", stats.Fresh),
		slog.Int("needs_fetch", stats.NeedsFetch),
		slog.Int("fetched", stats.Fetched),
		slog.Bool("provider_failed", stats.ProviderFailed),
		slog.Int("duplicates", stats.Existing+stats.BatchDupes),
		slog.Int("conflicts", stats.Conflicts),
		slog.Int("inserted", stats.Inserted),
		slog.Int("returned", stats.Returned),
		slog.Duration("duration", duration),
	)

	return Result{Articles: articles, Stats: stats}, nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// fetch makes the single batched provider call.
func (s *Service) fetch(ctx context.Context, symbols []string) ([]*entity.Article, error) {
	ctx, span := tracing.Tracer().Start(ctx, "news.FetchBySymbols")
	defer span.End()

	start := time.Now()
	articles, err := s.Provider.FetchBySymbols(ctx, symbols)
	metrics.RecordProviderCall(err == nil, time.Since(start))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	return articles, nil
}

// persist drops identities already stored and inserts the rest in one
// transaction. A unique violation that aborted the transaction means a
// concurrent writer won the race for some id; the batch is checked again
// and retried once without the ids that now exist.
func (s *Service) persist(ctx context.Context, fetched []*entity.Article, stats *Stats) error {
	batch, batchDupes := dedupeBatch(fetched)
	stats.BatchDupes = batchDupes
	if len(batch) == 0 {
		metrics.RecordPersisted(0, 0, 0, batchDupes)
		return nil
	}

	for attempt := 1; ; attempt++ {
		fresh, existing, err := s.dropExisting(ctx, batch)
		if err != nil {
			return err
		}
		stats.Existing = existing

		res, err := s.Repo.BulkInsert(ctx, fresh)
		if errors.Is(err, repository.ErrDuplicateIdentity) && attempt == 1 {
			logging.FromContext(ctx).Info("identity conflict on insert, retrying with refreshed existence check",
				slog.Any("error", err))
			continue
		}
		if err != nil {
			return err
		}

		stats.Inserted = len(res.Inserted)
		stats.Conflicts = len(res.Conflicts)
		metrics.RecordPersisted(stats.Inserted, stats.Existing, stats.Conflicts, batchDupes)
		return nil
	}
}

// dropExisting runs one batched existence check and filters stored ids out.
func (s *Service) dropExisting(ctx context.Context, batch []*entity.Article) ([]*entity.Article, int, error) {
	ids := make([]string, 0, len(batch))
	for _, a := range batch {
		ids = append(ids, a.ID)
	}
	exists, err := s.Repo.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("check existing ids: %w", err)
	}

	out := make([]*entity.Article, 0, len(batch))
	for _, a := range batch {
		if exists[a.ID] {
			continue
		}
		out = append(out, a)
	}
	return out, len(batch) - len(out), nil
}

// dedupeBatch normalizes provider articles and keeps the first occurrence
// of each identity. It reports how many repeats were dropped.
func dedupeBatch(fetched []*entity.Article) ([]*entity.Article, int) {
	seen := make(map[string]struct{}, len(fetched))
	out := make([]*entity.Article, 0, len(fetched))
	dupes := 0
	for _, a := range fetched {
		if a == nil {
			continue
		}
		if _, ok := seen[a.ID]; ok {
			dupes++
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a.Normalize())
	}
	return out, dupes
}

// SortNewestFirst orders articles by publish time descending, ties by id.
func SortNewestFirst(articles []*entity.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		a, b := articles[i], articles[j]
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.ID < b.ID
	})
}
