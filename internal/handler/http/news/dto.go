// Package news provides the HTTP handler for ticker news lookups.
package news

import (
	"time"

	"ticker-news/internal/domain/entity"
)

// DTO represents one article in the /news response.
type DTO struct {
	ID          string      `json:"id" example:"1f7e1a8e-8d0e-4b0a-9f5e-4a1c2a0b9d11"`
	Title       string      `json:"title" example:"Nvidia is doing great"`
	Description string      `json:"description" example:"GPU demand keeps climbing"`
	URL         string      `json:"url" example:"https://example.com/nvda"`
	Language    string      `json:"language" example:"en"`
	Source      string      `json:"source" example:"example.com"`
	ImageURL    string      `json:"image_url"`
	PublishedAt time.Time   `json:"published_at" example:"2026-03-02T13:30:00Z"`
	Entities    []EntityDTO `json:"entities"`
}

// EntityDTO is a ticker tag attached to an article.
type EntityDTO struct {
	Symbol   string `json:"symbol" example:"NVDA"`
	Name     string `json:"name" example:"NVIDIA Corporation"`
	Type     string `json:"type" example:"equity"`
	Country  string `json:"country" example:"us"`
	Industry string `json:"industry" example:"Technology"`
}

func toDTO(a *entity.Article) DTO {
	tags := make([]EntityDTO, 0, len(a.Entities))
	for _, e := range a.Entities {
		tags = append(tags, EntityDTO{
			Symbol:   e.Symbol,
			Name:     e.Name,
			Type:     e.Type,
			Country:  e.Country,
			Industry: e.Industry,
		})
	}
	return DTO{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		URL:         a.URL,
		Language:    a.Language,
		Source:      a.Source,
		ImageURL:    a.ImageURL,
		PublishedAt: a.PublishedAt.UTC(),
		Entities:    tags,
	}
}

func toDTOs(articles []*entity.Article) []DTO {
	out := make([]DTO, 0, len(articles))
	for _, a := range articles {
		out = append(out, toDTO(a))
	}
	return out
}
