package news

import (
	"context"
	"fmt"
	"time"

	"ticker-news/internal/domain/entity"
	"ticker-news/internal/repository"
)

// Classification partitions requested symbols by cached coverage.
// Both slices are sorted and disjoint; together they are the normalized request.
type Classification struct {
	Fresh      []string
	NeedsFetch []string
}

// Classify normalizes symbols and asks the store, in one query, which of
// them have an article published at or after now-horizon. An empty request
// returns an empty Classification without touching the store.
func Classify(ctx context.Context, repo repository.ArticleRepository, symbols []string, now time.Time, horizon time.Duration) (Classification, error) {
	requested := entity.NormalizeSymbols(symbols)
	if len(requested) == 0 {
		return Classification{Fresh: []string{}, NeedsFetch: []string{}}, nil
	}

	covered, err := repo.FreshSymbols(ctx, repository.ArticleFilter{
		Symbols:        requested,
		PublishedSince: entity.FreshSince(now, horizon),
	})
	if err != nil {
		return Classification{}, fmt.Errorf("query fresh symbols: %w", err)
	}

	fresh := make(map[string]struct{}, len(covered))
	for _, s := range covered {
		fresh[entity.NormalizeSymbol(s)] = struct{}{}
	}

	out := Classification{
		Fresh:      make([]string, 0, len(fresh)),
		NeedsFetch: make([]string, 0, len(requested)),
	}
	for _, s := range requested {
		if _, ok := fresh[s]; ok {
			out.Fresh = append(out.Fresh, s)
		} else {
			out.NeedsFetch = append(out.NeedsFetch, s)
		}
	}
	return out, nil
}
