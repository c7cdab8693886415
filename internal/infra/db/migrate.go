package db

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`
CREATE TABLE IF NOT EXISTS news_articles (
    id           TEXT PRIMARY KEY,
    title        TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    url          TEXT NOT NULL,
    language     TEXT NOT NULL DEFAULT '',
    source       TEXT NOT NULL DEFAULT '',
    image_url    TEXT NOT NULL DEFAULT '',
    published_at TIMESTAMPTZ NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`
CREATE TABLE IF NOT EXISTS news_article_entities (
    id         UUID PRIMARY KEY,
    article_id TEXT NOT NULL REFERENCES news_articles(id) ON DELETE CASCADE,
    symbol     TEXT NOT NULL,
    name       TEXT NOT NULL DEFAULT '',
    type       TEXT NOT NULL DEFAULT '',
    country    TEXT NOT NULL DEFAULT '',
    industry   TEXT NOT NULL DEFAULT ''
)`,
	// 鮮度判定と再クエリの published_at >= $1 で使用
	`CREATE INDEX IF NOT EXISTS idx_news_articles_published_at ON news_articles(published_at DESC)`,
	// 大文字小文字を無視したシンボル照合
	`CREATE INDEX IF NOT EXISTS idx_news_article_entities_symbol ON news_article_entities(UPPER(symbol))`,
	`CREATE INDEX IF NOT EXISTS idx_news_article_entities_article_id ON news_article_entities(article_id)`,
}

// MigrateUp creates the news tables and indexes. Every statement is
// idempotent so it runs on each start-up.
func MigrateUp(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
