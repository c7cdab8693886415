package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"ticker-news/internal/domain/entity"
	"ticker-news/internal/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	freshSymbolsQuery = `
SELECT DISTINCT UPPER(e.symbol)
FROM news_article_entities e
INNER JOIN news_articles a ON a.id = e.article_id
WHERE a.published_at >= $1
  AND UPPER(e.symbol) = ANY($2)`

	queryArticles = `
SELECT a.id, a.title, a.description, a.url, a.language, a.source, a.image_url, a.published_at
FROM news_articles a
WHERE a.published_at >= $1
  AND EXISTS (
      SELECT 1 FROM news_article_entities e
      WHERE e.article_id = a.id AND UPPER(e.symbol) = ANY($2)
  )
ORDER BY a.published_at DESC, a.id`

	queryEntities = `
SELECT article_id, id, symbol, name, type, country, industry
FROM news_article_entities
WHERE article_id = ANY($1)
ORDER BY article_id, symbol`

	existingIDsQuery = `SELECT id FROM news_articles WHERE id = ANY($1)`

	insertArticle = `
INSERT INTO news_articles
       (id, title, description, url, language, source, image_url, published_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING
RETURNING id`

	insertEntity = `
INSERT INTO news_article_entities
       (id, article_id, symbol, name, type, country, industry)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

type ArticleRepo struct {
	db *sql.DB
}

func NewArticleRepo(db *sql.DB) repository.ArticleRepository {
	return &ArticleRepo{db: db}
}

func (repo *ArticleRepo) FreshSymbols(ctx context.Context, filter repository.ArticleFilter) ([]string, error) {
	symbols := entity.NormalizeSymbols(filter.Symbols)
	if len(symbols) == 0 {
		return []string{}, nil
	}

	rows, err := repo.db.QueryContext(ctx, freshSymbolsQuery, filter.PublishedSince.UTC(), pq.Array(symbols))
	if err != nil {
		return nil, fmt.Errorf("FreshSymbols: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]string, 0, len(symbols))
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("FreshSymbols: Scan: %w", err)
		}
		result = append(result, symbol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("FreshSymbols: rows.Err: %w", err)
	}
	return result, nil
}

func (repo *ArticleRepo) Query(ctx context.Context, filter repository.ArticleFilter) ([]*entity.Article, error) {
	symbols := entity.NormalizeSymbols(filter.Symbols)
	if len(symbols) == 0 {
		return []*entity.Article{}, nil
	}

	rows, err := repo.db.QueryContext(ctx, queryArticles, filter.PublishedSince.UTC(), pq.Array(symbols))
	if err != nil {
		return nil, fmt.Errorf("Query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles := make([]*entity.Article, 0, 32)
	byID := make(map[string]*entity.Article)
	for rows.Next() {
		var a entity.Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.URL,
			&a.Language, &a.Source, &a.ImageURL, &a.PublishedAt); err != nil {
			return nil, fmt.Errorf("Query: Scan: %w", err)
		}
		a.PublishedAt = a.PublishedAt.UTC()
		a.Entities = []entity.EntityTag{}
		articles = append(articles, &a)
		byID[a.ID] = &a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Query: rows.Err: %w", err)
	}
	if len(articles) == 0 {
		return articles, nil
	}

	if err := repo.loadEntities(ctx, byID); err != nil {
		return nil, fmt.Errorf("Query: %w", err)
	}
	return articles, nil
}

// loadEntities attaches every tag of the given articles in a single query.
func (repo *ArticleRepo) loadEntities(ctx context.Context, byID map[string]*entity.Article) error {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows, err := repo.db.QueryContext(ctx, queryEntities, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("loadEntities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			articleID string
			tag       entity.EntityTag
		)
		if err := rows.Scan(&articleID, &tag.ID, &tag.Symbol, &tag.Name,
			&tag.Type, &tag.Country, &tag.Industry); err != nil {
			return fmt.Errorf("loadEntities: Scan: %w", err)
		}
		if a, ok := byID[articleID]; ok {
			a.Entities = append(a.Entities, tag)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loadEntities: rows.Err: %w", err)
	}
	return nil
}

// ExistingIDs はバッチで ID 存在チェックを行い、N+1問題を解消する
func (repo *ArticleRepo) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	if len(ids) == 0 {
		return make(map[string]bool), nil
	}

	rows, err := repo.db.QueryContext(ctx, existingIDsQuery, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("ExistingIDs: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ExistingIDs: Scan: %w", err)
		}
		result[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ExistingIDs: rows.Err: %w", err)
	}

	return result, nil
}

// BulkInsert writes all articles in one transaction. Articles are inserted
// in id order so that concurrent writers lock overlapping keys in the same
// order. A row skipped by ON CONFLICT is a lost race and is reported as a
// conflict; its tags are not written.
func (repo *ArticleRepo) BulkInsert(ctx context.Context, articles []*entity.Article) (repository.InsertResult, error) {
	var result repository.InsertResult
	if len(articles) == 0 {
		return result, nil
	}

	for _, a := range articles {
		if err := entity.ValidateArticle(a); err != nil {
			return result, fmt.Errorf("BulkInsert: %w: article %q: %w", repository.ErrPersistence, idOf(a), err)
		}
	}

	ordered := make([]*entity.Article, len(articles))
	copy(ordered, articles)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("BulkInsert: BeginTx: %w: %w", repository.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, a := range ordered {
		inserted, err := insertOne(ctx, tx, a)
		if err != nil {
			return repository.InsertResult{}, classify(fmt.Errorf("BulkInsert: article %q: %w", a.ID, err))
		}
		if inserted {
			result.Inserted = append(result.Inserted, a.ID)
		} else {
			result.Conflicts = append(result.Conflicts, a.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return repository.InsertResult{}, classify(fmt.Errorf("BulkInsert: Commit: %w", err))
	}
	return result, nil
}

// insertOne inserts one article and, when the row was new, its tags.
// It reports false when the id was already present.
func insertOne(ctx context.Context, tx *sql.Tx, a *entity.Article) (bool, error) {
	var id string
	err := tx.QueryRowContext(ctx, insertArticle,
		a.ID, a.Title, a.Description, a.URL,
		a.Language, a.Source, a.ImageURL, a.PublishedAt.UTC(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}

	for _, tag := range a.Entities {
		tagID := tag.ID
		if tagID == uuid.Nil {
			tagID = uuid.New()
		}
		if _, err := tx.ExecContext(ctx, insertEntity,
			tagID, a.ID, tag.Symbol, tag.Name,
			tag.Type, tag.Country, tag.Industry,
		); err != nil {
			return false, fmt.Errorf("insert entity %q: %w", tag.Symbol, err)
		}
	}
	return true, nil
}

// classify tags a write error as a duplicate identity or a generic
// persistence failure.
func classify(err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %w", repository.ErrDuplicateIdentity, err)
	}
	return fmt.Errorf("%w: %w", repository.ErrPersistence, err)
}

func idOf(a *entity.Article) string {
	if a == nil {
		return ""
	}
	return a.ID
}
