package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ticker-news/internal/domain/entity"
)

// WatchlistFile is the YAML document listing symbols kept warm by the worker.
//
//	watchlists:
//	  - name: megacaps
//	    symbols: [AAPL, MSFT, NVDA]
type WatchlistFile struct {
	Watchlists []Watchlist `yaml:"watchlists"`
}

// Watchlist is a named group of ticker symbols.
type Watchlist struct {
	Name    string   `yaml:"name"`
	Symbols []string `yaml:"symbols"`
}

// LoadWatchlistFile reads and validates a watchlist file.
func LoadWatchlistFile(path string) (*WatchlistFile, error) {
	// #nosec G304 -- path comes from WARMUP_WATCHLIST_FILE set by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read watchlist file: %w", err)
	}

	var wf WatchlistFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse watchlist file: %w", err)
	}

	for i, w := range wf.Watchlists {
		if w.Name == "" {
			return nil, fmt.Errorf("watchlist %d: name is required", i)
		}
	}
	return &wf, nil
}

// Symbols returns every symbol across all watchlists, normalized.
func (wf *WatchlistFile) Symbols() []string {
	var all []string
	for _, w := range wf.Watchlists {
		all = append(all, w.Symbols...)
	}
	return entity.NormalizeSymbols(all)
}
