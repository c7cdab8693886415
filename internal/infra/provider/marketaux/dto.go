package marketaux

import (
	"fmt"
	"strings"
	"time"

	"ticker-news/internal/domain/entity"
)

// newsResponse is the body of GET news/all.
type newsResponse struct {
	Data []newsItem `json:"data"`
}

type newsItem struct {
	UUID        string       `json:"uuid"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	URL         string       `json:"url"`
	ImageURL    string       `json:"image_url"`
	Language    string       `json:"language"`
	PublishedAt string       `json:"published_at"`
	Source      string       `json:"source"`
	Entities    []entityItem `json:"entities"`
}

type entityItem struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Country  string `json:"country"`
	Industry string `json:"industry"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// toArticle maps one item onto the domain, converting the publish time to UTC.
func (it newsItem) toArticle() (*entity.Article, error) {
	published, err := time.Parse(time.RFC3339Nano, it.PublishedAt)
	if err != nil {
		return nil, fmt.Errorf("article %q: parse published_at: %w", it.UUID, err)
	}

	tags := make([]entity.EntityTag, 0, len(it.Entities))
	for _, e := range it.Entities {
		if strings.TrimSpace(e.Symbol) == "" {
			continue
		}
		tags = append(tags, entity.EntityTag{
			Symbol:   entity.NormalizeSymbol(e.Symbol),
			Name:     e.Name,
			Type:     e.Type,
			Country:  e.Country,
			Industry: e.Industry,
		})
	}

	return &entity.Article{
		ID:          it.UUID,
		Title:       it.Title,
		Description: it.Description,
		URL:         it.URL,
		Language:    it.Language,
		Source:      it.Source,
		ImageURL:    it.ImageURL,
		PublishedAt: published.UTC(),
		Entities:    tags,
	}, nil
}
