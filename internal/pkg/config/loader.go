// Package config provides fail-open environment loading for long-running
// components. An invalid value never stops the process: the default is
// used, a warning is collected and the fallback is recorded in metrics.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Loader reads environment variables with validation and fallback.
// The zero value is usable; Metrics may be nil.
type Loader struct {
	Metrics  *ConfigMetrics
	warnings []string
}

// NewLoader returns a Loader reporting fallbacks to m.
func NewLoader(m *ConfigMetrics) *Loader {
	return &Loader{Metrics: m}
}

// Warnings returns one message per fallback applied so far.
func (l *Loader) Warnings() []string {
	return append([]string(nil), l.warnings...)
}

// FallbackApplied reports whether any value fell back to its default.
func (l *Loader) FallbackApplied() bool {
	return len(l.warnings) > 0
}

func (l *Loader) fallback(envKey, raw string, err error, def any) {
	l.warnings = append(l.warnings, fmt.Sprintf(
		"Invalid %s='%s': %v, falling back to default '%v'", envKey, raw, err, def))
	if l.Metrics != nil {
		field := strings.ToLower(envKey)
		l.Metrics.RecordValidationError(field)
		l.Metrics.RecordFallback(field)
		l.Metrics.SetFallbackActive(true)
	}
}

// String loads envKey, falling back to def when unset or when validate rejects it.
func (l *Loader) String(envKey, def string, validate func(string) error) string {
	raw := strings.TrimSpace(os.Getenv(envKey))
	if raw == "" {
		return def
	}
	if validate != nil {
		if err := validate(raw); err != nil {
			l.fallback(envKey, raw, err, def)
			return def
		}
	}
	return raw
}

// Duration loads a time.ParseDuration value.
func (l *Loader) Duration(envKey string, def time.Duration, validate func(time.Duration) error) time.Duration {
	raw := strings.TrimSpace(os.Getenv(envKey))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err == nil && validate != nil {
		err = validate(d)
	}
	if err != nil {
		l.fallback(envKey, raw, err, def)
		return def
	}
	return d
}

// Int loads a base-10 integer.
func (l *Loader) Int(envKey string, def int, validate func(int) error) int {
	raw := strings.TrimSpace(os.Getenv(envKey))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err == nil && validate != nil {
		err = validate(n)
	}
	if err != nil {
		l.fallback(envKey, raw, err, def)
		return def
	}
	return n
}

// Float loads a float64.
func (l *Loader) Float(envKey string, def float64, validate func(float64) error) float64 {
	raw := strings.TrimSpace(os.Getenv(envKey))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err == nil && validate != nil {
		err = validate(f)
	}
	if err != nil {
		l.fallback(envKey, raw, err, def)
		return def
	}
	return f
}

// List loads a comma separated list, dropping blank entries.
func (l *Loader) List(envKey string) []string {
	raw := os.Getenv(envKey)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
