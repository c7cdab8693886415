package news_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"ticker-news/internal/domain/entity"
	"ticker-news/internal/repository"
)

/* ───────── in-memory store ───────── */

// memStore enforces id uniqueness the way the primary key does.
type memStore struct {
	mu       sync.Mutex
	articles map[string]*entity.Article

	freshCalls  int
	queryCalls  int
	existsCalls int
	insertCalls int
	insertRows  int

	// hooks
	beforeInsert func(batch []*entity.Article)
	insertErr    []error // consumed one per BulkInsert call
	queryErr     error
}

func newMemStore(seed ...*entity.Article) *memStore {
	s := &memStore{articles: map[string]*entity.Article{}}
	for _, a := range seed {
		s.articles[a.ID] = a.Normalize()
	}
	return s
}

func (s *memStore) matches(a *entity.Article, f repository.ArticleFilter) bool {
	if a.PublishedAt.Before(f.PublishedSince) {
		return false
	}
	for _, sym := range f.Symbols {
		if a.HasSymbol(sym) {
			return true
		}
	}
	return false
}

func (s *memStore) FreshSymbols(_ context.Context, f repository.ArticleFilter) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freshCalls++
	if s.queryErr != nil {
		return nil, s.queryErr
	}

	want := map[string]bool{}
	for _, sym := range f.Symbols {
		want[entity.NormalizeSymbol(sym)] = true
	}
	found := map[string]bool{}
	for _, a := range s.articles {
		if a.PublishedAt.Before(f.PublishedSince) {
			continue
		}
		for _, tag := range a.Entities {
			sym := entity.NormalizeSymbol(tag.Symbol)
			if want[sym] {
				found[sym] = true
			}
		}
	}
	out := make([]string, 0, len(found))
	for sym := range found {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out, nil
}

func (s *memStore) Query(_ context.Context, f repository.ArticleFilter) ([]*entity.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryCalls++
	if s.queryErr != nil {
		return nil, s.queryErr
	}

	out := []*entity.Article{}
	for _, a := range s.articles {
		if s.matches(a, f) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) ExistingIDs(_ context.Context, ids []string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.existsCalls++

	out := map[string]bool{}
	for _, id := range ids {
		if _, ok := s.articles[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (s *memStore) BulkInsert(_ context.Context, batch []*entity.Article) (repository.InsertResult, error) {
	if s.beforeInsert != nil {
		s.beforeInsert(batch)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++

	if len(s.insertErr) > 0 {
		err := s.insertErr[0]
		s.insertErr = s.insertErr[1:]
		if err != nil {
			return repository.InsertResult{}, err
		}
	}

	for _, a := range batch {
		if err := entity.ValidateArticle(a); err != nil {
			return repository.InsertResult{}, errors.Join(repository.ErrPersistence, err)
		}
	}

	var res repository.InsertResult
	for _, a := range batch {
		if _, ok := s.articles[a.ID]; ok {
			res.Conflicts = append(res.Conflicts, a.ID)
			continue
		}
		s.articles[a.ID] = a
		s.insertRows++
		res.Inserted = append(res.Inserted, a.ID)
	}
	return res, nil
}

// put stores an article directly, bypassing counters.
func (s *memStore) put(a *entity.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles[a.ID] = a.Normalize()
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.articles)
}

/* ───────── provider stub ───────── */

type stubProvider struct {
	mu       sync.Mutex
	calls    [][]string
	articles []*entity.Article
	err      error
	// respond overrides articles/err when set
	respond func(symbols []string) ([]*entity.Article, error)
}

func (p *stubProvider) FetchBySymbols(_ context.Context, symbols []string) ([]*entity.Article, error) {
	p.mu.Lock()
	p.calls = append(p.calls, append([]string(nil), symbols...))
	respond := p.respond
	articles, err := p.articles, p.err
	p.mu.Unlock()

	if respond != nil {
		return respond(symbols)
	}
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Article, 0, len(articles))
	for _, a := range articles {
		cp := *a
		cp.Entities = append([]entity.EntityTag(nil), a.Entities...)
		out = append(out, &cp)
	}
	return out, nil
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

/* ───────── fixtures ───────── */

var baseNow = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return baseNow }

func article(id, title string, age time.Duration, symbols ...string) *entity.Article {
	tags := make([]entity.EntityTag, 0, len(symbols))
	for _, s := range symbols {
		tags = append(tags, entity.EntityTag{Symbol: s, Name: s})
	}
	return &entity.Article{
		ID:          id,
		Title:       title,
		URL:         "https://news.example.com/" + id,
		Language:    "en",
		PublishedAt: baseNow.Add(-age),
		Entities:    tags,
	}
}

func ids(articles []*entity.Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.ID)
	}
	return out
}
