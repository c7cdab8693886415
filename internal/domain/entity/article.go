// Package entity defines the core domain entities for the ticker news cache:
// provider articles, the entity tags that relate them to ticker symbols,
// symbol normalization and the domain errors shared across layers.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Article is a news article delivered by the upstream provider.
// ID is the provider-assigned identity and doubles as the primary key.
// Articles are immutable once stored.
type Article struct {
	ID          string
	Title       string
	Description string
	URL         string
	Language    string
	Source      string
	ImageURL    string
	PublishedAt time.Time
	Entities    []EntityTag
}

// EntityTag relates an Article to one ticker symbol.
type EntityTag struct {
	ID       uuid.UUID
	Symbol   string
	Name     string
	Type     string
	Country  string
	Industry string
}

// HasSymbol reports whether any tag of the article matches symbol,
// compared case-insensitively.
func (a *Article) HasSymbol(symbol string) bool {
	want := NormalizeSymbol(symbol)
	for _, tag := range a.Entities {
		if NormalizeSymbol(tag.Symbol) == want {
			return true
		}
	}
	return false
}

// FreshSince returns the oldest publish time still fresh at now.
func FreshSince(now time.Time, horizon time.Duration) time.Time {
	return now.Add(-horizon).UTC()
}

// IsFresh reports whether the article was published at or after
// FreshSince(now, horizon), matching the store predicate.
func (a *Article) IsFresh(now time.Time, horizon time.Duration) bool {
	return !a.PublishedAt.Before(FreshSince(now, horizon))
}

// Normalize returns a copy with the publish time in UTC and tag symbols
// uppercased. Tags without an id get a new random one.
func (a *Article) Normalize() *Article {
	out := *a
	out.PublishedAt = a.PublishedAt.UTC()
	out.Entities = make([]EntityTag, 0, len(a.Entities))
	for _, tag := range a.Entities {
		tag.Symbol = NormalizeSymbol(tag.Symbol)
		if tag.ID == uuid.Nil {
			tag.ID = uuid.New()
		}
		out.Entities = append(out.Entities, tag)
	}
	return &out
}
