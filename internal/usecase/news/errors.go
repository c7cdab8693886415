// Package news implements the freshness aware cache-aside lookup of ticker
// news: classify the requested symbols against the store, fetch only the
// stale or missing ones from the provider in one batch, persist what is new
// and answer from a single re-query of the store.
package news

import "errors"

// Sentinel errors for news use case operations.
var (
	// ErrProviderUnavailable wraps any failure of the batched provider call.
	// The service recovers from it and answers with existing coverage.
	ErrProviderUnavailable = errors.New("news provider unavailable")
)
