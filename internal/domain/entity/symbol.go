package entity

import (
	"sort"
	"strings"
)

// NormalizeSymbol trims and uppercases a ticker symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeSymbols trims, uppercases and deduplicates symbols.
// Blank entries are dropped. The result is sorted so that callers get
// a deterministic order for logging and provider requests.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		n := NormalizeSymbol(s)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ParseSymbolList splits comma separated lists into normalized symbols.
// Each raw value may itself contain several comma separated symbols.
// It returns ErrInvalidRequest when nothing usable remains.
func ParseSymbolList(raw ...string) ([]string, error) {
	var parts []string
	for _, r := range raw {
		parts = append(parts, strings.Split(r, ",")...)
	}
	symbols := NormalizeSymbols(parts)
	if len(symbols) == 0 {
		return nil, ErrInvalidRequest
	}
	return symbols, nil
}
