package repository

import (
	"context"
	"errors"
	"time"

	"ticker-news/internal/domain/entity"
)

var (
	// ErrDuplicateIdentity indicates that an article with the same provider
	// identity is already stored. Usually the loser of a concurrent insert.
	ErrDuplicateIdentity = errors.New("duplicate article identity")

	// ErrPersistence indicates that a write failed for a reason other than a
	// duplicate identity. Callers must surface it.
	ErrPersistence = errors.New("persistence failure")
)

// ArticleFilter is the predicate pushed down to the store.
// Symbols are matched case-insensitively against entity tags.
type ArticleFilter struct {
	Symbols        []string
	PublishedSince time.Time // articles with published_at >= PublishedSince
}

// InsertResult reports the outcome of a BulkInsert.
type InsertResult struct {
	Inserted  []string // ids actually written
	Conflicts []string // ids rejected by the uniqueness constraint
}

// ArticleRepository is the article store used by the news reconciler.
type ArticleRepository interface {
	// FreshSymbols returns the distinct uppercase symbols in filter.Symbols
	// that have at least one article published at or after filter.PublishedSince.
	FreshSymbols(ctx context.Context, filter ArticleFilter) ([]string, error)
	// Query returns articles matching filter, with all their entity tags,
	// ordered by published_at DESC.
	Query(ctx context.Context, filter ArticleFilter) ([]*entity.Article, error)
	// ExistingIDs はバッチで ID 存在チェックを行う
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
	// BulkInsert writes articles and their tags in one transaction.
	// Rows that lose a uniqueness race are reported in InsertResult.Conflicts;
	// any other failure rolls back and wraps ErrPersistence.
	BulkInsert(ctx context.Context, articles []*entity.Article) (InsertResult, error)
}
