package entity

import (
	"fmt"
	"net/url"
)

// maxURLLength defines the maximum allowed length for URLs.
const maxURLLength = 2048

// ValidateArticle checks the fields the store requires before persisting.
func ValidateArticle(a *Article) error {
	if a == nil {
		return &ValidationError{Field: "article", Message: "article is nil"}
	}
	if a.ID == "" {
		return &ValidationError{Field: "id", Message: "id is required"}
	}
	if a.Title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if a.PublishedAt.IsZero() {
		return &ValidationError{Field: "published_at", Message: "published_at is required"}
	}
	if err := ValidateURL(a.URL); err != nil {
		return err
	}
	for i, tag := range a.Entities {
		if NormalizeSymbol(tag.Symbol) == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("entities[%d].symbol", i),
				Message: "symbol is required",
			}
		}
	}
	return nil
}

// ValidateURL validates that a URL is present, bounded in length and uses
// an http or https scheme with a host.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Field: "url", Message: "URL is required"}
	}

	if len(rawURL) > maxURLLength {
		return &ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("url must not exceed %d characters", maxURLLength),
		}
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Field: "url", Message: "URL is malformed"}
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "URL must use http or https scheme"}
	}

	if parsedURL.Host == "" {
		return &ValidationError{Field: "url", Message: "URL must have a valid host"}
	}

	return nil
}
