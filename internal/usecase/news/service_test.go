package news_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticker-news/internal/domain/entity"
	"ticker-news/internal/repository"
	"ticker-news/internal/usecase/news"
)

func newService(store *memStore, provider *stubProvider) *news.Service {
	svc := news.NewService(store, provider, news.DefaultConfig())
	svc.Now = fixedNow
	return svc
}

/* ───────── 1. empty / boundary ───────── */

func TestReconcile_EmptySymbolsMakeNoCalls(t *testing.T) {
	for _, in := range [][]string{nil, {}, {"", "  "}} {
		store := newMemStore()
		provider := &stubProvider{}

		res, err := newService(store, provider).Reconcile(context.Background(), in)

		require.NoError(t, err)
		assert.Empty(t, res.Articles)
		assert.NotNil(t, res.Articles)
		assert.Zero(t, store.freshCalls+store.queryCalls+store.existsCalls+store.insertCalls)
		assert.Zero(t, provider.callCount())
	}
}

/* ───────── 2. cold store ───────── */

func TestReconcile_ColdStoreFetchesExactlyRequestedSymbols(t *testing.T) {
	store := newMemStore()
	provider := &stubProvider{}

	_, err := newService(store, provider).Reconcile(context.Background(), []string{" nvda", "AAPL", "nvda", "msft "})

	require.NoError(t, err)
	require.Equal(t, 1, provider.callCount())
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, provider.calls[0])
	assert.Equal(t, 1, store.freshCalls)
}

func TestReconcile_PartialProviderCoverage(t *testing.T) {
	store := newMemStore()
	provider := &stubProvider{articles: []*entity.Article{
		article("n1", "Nvidia beats estimates", 30*time.Minute, "NVDA"),
	}}

	res, err := newService(store, provider).Reconcile(context.Background(), []string{"NVDA", "AAPL"})

	require.NoError(t, err)
	assert.Equal(t, []string{"n1"}, ids(res.Articles))
	assert.Equal(t, 1, provider.callCount())
	assert.Equal(t, 1, res.Stats.Inserted)
	assert.Equal(t, 2, res.Stats.NeedsFetch)
}

/* ───────── 3. fully fresh ───────── */

func TestReconcile_FreshCoverageSkipsProvider(t *testing.T) {
	store := newMemStore(article("stored-1", "Nvidia is doing great", time.Hour, "NVDA"))
	provider := &stubProvider{}

	res, err := newService(store, provider).Reconcile(context.Background(), []string{"NVDA"})

	require.NoError(t, err)
	assert.Zero(t, provider.callCount())
	require.Len(t, res.Articles, 1)
	assert.Equal(t, "Nvidia is doing great", res.Articles[0].Title)
	assert.Zero(t, store.existsCalls+store.insertCalls)
}

func TestReconcile_FreshCoverageSortedNewestFirst(t *testing.T) {
	store := newMemStore(
		article("a", "older", 5*time.Hour, "aapl"),
		article("b", "newest", 10*time.Minute, "NVDA"),
		article("c", "middle", 2*time.Hour, "NVDA", "AAPL"),
		article("d", "stale", 7*time.Hour, "NVDA"),
		article("e", "other symbol", time.Minute, "TSLA"),
	)
	provider := &stubProvider{}

	res, err := newService(store, provider).Reconcile(context.Background(), []string{"nvda", "AAPL"})

	require.NoError(t, err)
	assert.Zero(t, provider.callCount())
	assert.Equal(t, []string{"b", "c", "a"}, ids(res.Articles))
}

func TestReconcile_TieBrokenByID(t *testing.T) {
	store := newMemStore(
		article("z", "z", time.Hour, "NVDA"),
		article("m", "m", time.Hour, "NVDA"),
	)

	res, err := newService(store, &stubProvider{}).Reconcile(context.Background(), []string{"NVDA"})

	require.NoError(t, err)
	assert.Equal(t, []string{"m", "z"}, ids(res.Articles))
}

/* ───────── 4. mixed fresh and missing ───────── */

func TestReconcile_FetchesOnlyStaleOrMissing(t *testing.T) {
	store := newMemStore(
		article("n-old", "fresh nvda", time.Hour, "NVDA"),
		article("t-old", "stale tsla", 8*time.Hour, "TSLA"),
	)
	provider := &stubProvider{articles: []*entity.Article{
		article("t-new", "new tsla", 20*time.Minute, "TSLA"),
		article("a-new", "new aapl", 40*time.Minute, "AAPL"),
	}}

	res, err := newService(store, provider).Reconcile(context.Background(), []string{"NVDA", "TSLA", "AAPL"})

	require.NoError(t, err)
	require.Equal(t, 1, provider.callCount())
	assert.Equal(t, []string{"AAPL", "TSLA"}, provider.calls[0])
	assert.Equal(t, []string{"t-new", "a-new", "n-old"}, ids(res.Articles))
	assert.Equal(t, 1, res.Stats.Fresh)
	assert.Equal(t, 2, res.Stats.NeedsFetch)
}

func TestReconcile_ExcludesArticlesOnlyTaggedOutsideRequest(t *testing.T) {
	store := newMemStore()
	provider := &stubProvider{articles: []*entity.Article{
		article("x", "sector piece", time.Minute, "AMD"),
		article("y", "nvda piece", time.Minute, "NVDA", "AMD"),
	}}

	res, err := newService(store, provider).Reconcile(context.Background(), []string{"NVDA"})

	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, ids(res.Articles))
	assert.Equal(t, 2, store.count(), "all fetched articles are cached")
}

/* ───────── 5. idempotence and dedup ───────── */

func TestReconcile_IdempotentAcrossCalls(t *testing.T) {
	store := newMemStore()
	provider := &stubProvider{articles: []*entity.Article{
		article("old-1", "stale elsewhere", 9*time.Hour, "GOOG"),
	}}
	svc := newService(store, provider)

	for i := 0; i < 2; i++ {
		_, err := svc.Reconcile(context.Background(), []string{"GOOG"})
		require.NoError(t, err)
	}

	assert.Equal(t, 2, provider.callCount(), "stale-only coverage is re-fetched")
	assert.Equal(t, 1, store.count())
	assert.Equal(t, 1, store.insertRows)
}

func TestReconcile_ExistingIdentityNotReinserted(t *testing.T) {
	stored := article("dup", "first copy", 7*time.Hour, "NVDA")
	store := newMemStore(stored)
	resent := article("dup", "resent copy", 30*time.Minute, "NVDA")
	provider := &stubProvider{articles: []*entity.Article{
		resent,
		article("new", "brand new", 10*time.Minute, "NVDA"),
	}}

	res, err := newService(store, provider).Reconcile(context.Background(), []string{"NVDA"})

	require.NoError(t, err)
	assert.Equal(t, 1, store.existsCalls, "one batched existence check")
	assert.Equal(t, 1, store.insertCalls, "one bulk insert")
	assert.Equal(t, 1, store.insertRows)
	assert.Equal(t, 1, res.Stats.Existing)
	assert.Equal(t, []string{"new"}, ids(res.Articles))
	assert.Equal(t, "first copy", store.articles["dup"].Title)
}

func TestReconcile_DuplicateWithinProviderBatch(t *testing.T) {
	store := newMemStore()
	provider := &stubProvider{articles: []*entity.Article{
		article("same", "one", time.Minute, "NVDA"),
		article("same", "one again", time.Minute, "NVDA"),
	}}

	res, err := newService(store, provider).Reconcile(context.Background(), []string{"NVDA"})

	require.NoError(t, err)
	assert.Equal(t, []string{"same"}, ids(res.Articles))
	assert.Equal(t, 1, res.Stats.BatchDupes)
	assert.Equal(t, "one", res.Articles[0].Title)
}

// A stale row whose identity the provider sends again is not duplicated,
// and because it is outside the horizon it is not returned either.
func TestReconcile_StaleDuplicateIsNeitherStoredTwiceNorReturned(t *testing.T) {
	stale := article("tsla-1", "Tesla recall", 8*time.Hour, "TSLA")
	store := newMemStore(stale)
	provider := &stubProvider{articles: []*entity.Article{
		article("tsla-1", "Tesla recall", 8*time.Hour, "TSLA"),
	}}

	res, err := newService(store, provider).Reconcile(context.Background(), []string{"TSLA"})

	require.NoError(t, err)
	require.Equal(t, 1, provider.callCount())
	assert.Equal(t, []string{"TSLA"}, provider.calls[0])
	assert.Equal(t, 1, store.count())
	assert.Zero(t, store.insertRows)
	assert.Empty(t, res.Articles)
}

/* ───────── 6. provider failure ───────── */

func TestReconcile_ProviderFailureServesExistingCoverage(t *testing.T) {
	store := newMemStore(article("n", "fresh nvda", time.Hour, "NVDA"))
	provider := &stubProvider{err: errors.New("dial tcp: i/o timeout")}

	res, err := newService(store, provider).Reconcile(context.Background(), []string{"NVDA", "AAPL"})

	require.NoError(t, err)
	assert.True(t, res.Stats.ProviderFailed)
	assert.Equal(t, []string{"n"}, ids(res.Articles))
	assert.Zero(t, store.insertCalls)
}

func TestReconcile_ProviderReturnsNothing(t *testing.T) {
	store := newMemStore()
	provider := &stubProvider{articles: nil}

	res, err := newService(store, provider).Reconcile(context.Background(), []string{"AAPL"})

	require.NoError(t, err)
	assert.Empty(t, res.Articles)
	assert.Zero(t, store.existsCalls+store.insertCalls)
}

/* ───────── 7. persistence failures ───────── */

func TestReconcile_PersistenceFailureIsReturned(t *testing.T) {
	store := newMemStore()
	store.insertErr = []error{fmt.Errorf("%w: connection lost", repository.ErrPersistence)}
	provider := &stubProvider{articles: []*entity.Article{article("n", "n", time.Minute, "NVDA")}}

	_, err := newService(store, provider).GetNews(context.Background(), []string{"NVDA"})

	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrPersistence)
	assert.Zero(t, store.queryCalls)
}

func TestReconcile_MalformedArticleFailsWholeBatch(t *testing.T) {
	store := newMemStore()
	bad := article("bad", "", time.Minute, "NVDA")
	provider := &stubProvider{articles: []*entity.Article{
		article("good", "good", time.Minute, "NVDA"),
		bad,
	}}

	_, err := newService(store, provider).Reconcile(context.Background(), []string{"NVDA"})

	assert.ErrorIs(t, err, repository.ErrPersistence)
	assert.Zero(t, store.count(), "sibling articles are not silently kept or dropped")
}

func TestReconcile_StoreReadFailureIsReturned(t *testing.T) {
	store := newMemStore()
	store.queryErr = errors.New("connection refused")

	_, err := newService(store, &stubProvider{}).Reconcile(context.Background(), []string{"NVDA"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "classify symbols")
}

/* ───────── 8. concurrency ───────── */

// The winner of a race inserts; the loser sees a conflict and still answers
// with the row exactly once.
func TestReconcile_ConflictFromConcurrentWriterIsRecovered(t *testing.T) {
	store := newMemStore()
	winner := article("race", "winner copy", time.Minute, "NVDA")
	store.beforeInsert = func(batch []*entity.Article) {
		store.put(winner)
		store.beforeInsert = nil
	}
	provider := &stubProvider{articles: []*entity.Article{
		article("race", "loser copy", time.Minute, "NVDA"),
	}}

	res, err := newService(store, provider).Reconcile(context.Background(), []string{"NVDA"})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Conflicts)
	assert.Zero(t, res.Stats.Inserted)
	require.Len(t, res.Articles, 1)
	assert.Equal(t, "winner copy", res.Articles[0].Title)
}

func TestReconcile_UniqueViolationRetriedOnce(t *testing.T) {
	store := newMemStore()
	store.insertErr = []error{fmt.Errorf("%w: 23505", repository.ErrDuplicateIdentity)}
	provider := &stubProvider{articles: []*entity.Article{
		article("a", "a", time.Minute, "NVDA"),
		article("b", "b", 2*time.Minute, "NVDA"),
	}}

	res, err := newService(store, provider).Reconcile(context.Background(), []string{"NVDA"})

	require.NoError(t, err)
	assert.Equal(t, 2, store.insertCalls)
	assert.Equal(t, 2, store.existsCalls)
	assert.Equal(t, []string{"a", "b"}, ids(res.Articles))
}

func TestReconcile_UniqueViolationTwiceFails(t *testing.T) {
	store := newMemStore()
	dup := fmt.Errorf("%w: 23505", repository.ErrDuplicateIdentity)
	store.insertErr = []error{dup, dup}
	provider := &stubProvider{articles: []*entity.Article{article("a", "a", time.Minute, "NVDA")}}

	_, err := newService(store, provider).Reconcile(context.Background(), []string{"NVDA"})

	assert.ErrorIs(t, err, repository.ErrDuplicateIdentity)
}

func TestReconcile_ConcurrentOverlappingRequests(t *testing.T) {
	store := newMemStore()
	provider := &stubProvider{respond: func(symbols []string) ([]*entity.Article, error) {
		var out []*entity.Article
		for _, s := range symbols {
			out = append(out, article("shared-"+s, s+" news", time.Minute, s))
		}
		out = append(out, article("shared-market", "market wrap", 2*time.Minute, symbols...))
		return out, nil
	}}
	svc := newService(store, provider)

	requests := [][]string{{"NVDA", "AAPL"}, {"AAPL", "TSLA"}, {"NVDA", "TSLA"}, {"AAPL"}}
	var wg sync.WaitGroup
	errs := make(chan error, len(requests)*5)
	for i := 0; i < 5; i++ {
		for _, req := range requests {
			wg.Add(1)
			go func(req []string) {
				defer wg.Done()
				res, err := svc.Reconcile(context.Background(), req)
				if err != nil {
					errs <- err
					return
				}
				seen := map[string]bool{}
				for _, a := range res.Articles {
					if seen[a.ID] {
						errs <- fmt.Errorf("duplicate %s in result", a.ID)
					}
					seen[a.ID] = true
				}
			}(req)
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Equal(t, 4, store.count(), "one row per identity")
}

/* ───────── 9. config / time ───────── */

func TestReconcile_UsesConfiguredHorizon(t *testing.T) {
	store := newMemStore(article("n", "two hours old", 2*time.Hour, "NVDA"))
	provider := &stubProvider{}
	svc := news.NewService(store, provider, news.Config{Horizon: time.Hour})
	svc.Now = fixedNow

	res, err := svc.Reconcile(context.Background(), []string{"NVDA"})

	require.NoError(t, err)
	assert.Equal(t, 1, provider.callCount())
	assert.Empty(t, res.Articles)
}

func TestNewService_DefaultsHorizon(t *testing.T) {
	svc := news.NewService(newMemStore(), &stubProvider{}, news.Config{})
	assert.Equal(t, news.DefaultHorizon, svc.Config.Horizon)
}

func TestReconcile_NormalizesFetchedArticles(t *testing.T) {
	store := newMemStore()
	ny := time.FixedZone("EST", -5*60*60)
	a := article("tz", "eastern", 0, "nvda")
	a.PublishedAt = baseNow.Add(-time.Hour).In(ny)
	provider := &stubProvider{articles: []*entity.Article{a}}

	res, err := newService(store, provider).Reconcile(context.Background(), []string{"NVDA"})

	require.NoError(t, err)
	require.Len(t, res.Articles, 1)
	assert.Equal(t, time.UTC, res.Articles[0].PublishedAt.Location())
	assert.Equal(t, "NVDA", res.Articles[0].Entities[0].Symbol)
}

func TestReconcile_ContextCanceledPropagatesToProvider(t *testing.T) {
	store := newMemStore()
	ctx, cancel := context.WithCancel(context.Background())
	var seen error
	provider := &stubProvider{respond: func([]string) ([]*entity.Article, error) {
		cancel()
		seen = ctx.Err()
		return nil, ctx.Err()
	}}

	res, err := newService(store, provider).Reconcile(ctx, []string{"NVDA"})

	assert.ErrorIs(t, seen, context.Canceled)
	assert.NoError(t, err, "the in-memory store ignores cancellation")
	assert.True(t, res.Stats.ProviderFailed)
}
