// Package config loads process configuration for the API and the worker.
// A missing or malformed required value is an error; only the worker's
// scheduling settings fall back to defaults (see internal/infra/worker).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ticker-news/internal/infra/provider/marketaux"
	"ticker-news/internal/usecase/news"
)

// NewsConfig is shared by the API and the worker.
type NewsConfig struct {
	// DatabaseURL is the postgres DSN. Required.
	DatabaseURL string

	// Horizon is the staleness horizon. Default: 6h
	Horizon time.Duration

	// Marketaux provider settings. MARKETAUX_API_TOKEN is required.
	Marketaux marketaux.Config
}

// APIConfig holds configuration for cmd/api.
type APIConfig struct {
	NewsConfig

	// Port the HTTP server listens on. Default: 8080
	Port int

	// RequestTimeout bounds one /news request. Default: 30s
	RequestTimeout time.Duration

	// JWTSecret enables bearer auth on /news when non-empty.
	JWTSecret string
}

// LoadNewsConfig reads NewsConfig from the environment.
func LoadNewsConfig() (*NewsConfig, error) {
	cfg, err := loadNews()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("invalid news configuration: %w", err)
	}
	return cfg, nil
}

func loadNews() (*NewsConfig, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	horizon, err := envDuration("NEWS_STALENESS_HORIZON", news.DefaultHorizon)
	collect(err)

	mx := marketaux.DefaultConfig()
	mx.BaseURL = envString("MARKETAUX_BASE_URL", mx.BaseURL)
	mx.APIToken = strings.TrimSpace(os.Getenv("MARKETAUX_API_TOKEN"))
	mx.Language = envString("MARKETAUX_LANGUAGE", mx.Language)
	mx.Timeout, err = envDuration("MARKETAUX_TIMEOUT", mx.Timeout)
	collect(err)
	mx.Limit, err = envInt("MARKETAUX_LIMIT", 0)
	collect(err)
	mx.RatePerSecond, err = envFloat("MARKETAUX_RATE_PER_SECOND", 0)
	collect(err)

	return &NewsConfig{
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Horizon:     horizon,
		Marketaux:   mx,
	}, errors.Join(errs...)
}

// Validate checks configuration correctness.
func (c *NewsConfig) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Horizon <= 0 {
		errs = append(errs, fmt.Errorf("NEWS_STALENESS_HORIZON must be positive, got %v", c.Horizon))
	}
	if err := c.Marketaux.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LoadAPIConfig reads APIConfig from the environment.
func LoadAPIConfig() (*APIConfig, error) {
	nc, err := loadNews()
	errs := []error{err}

	port, err := envInt("PORT", 8080)
	errs = append(errs, err)
	timeout, err := envDuration("REQUEST_TIMEOUT", 30*time.Second)
	errs = append(errs, err)

	cfg := &APIConfig{
		NewsConfig:     *nc,
		Port:           port,
		RequestTimeout: timeout,
		JWTSecret:      os.Getenv("JWT_SECRET"),
	}
	errs = append(errs, cfg.Validate())

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid API configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration correctness.
func (c *APIConfig) Validate() error {
	errs := []error{c.NewsConfig.Validate()}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %v", c.RequestTimeout))
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters"))
	}
	return errors.Join(errs...)
}

// AuthEnabled reports whether /news requires a bearer token.
func (c *APIConfig) AuthEnabled() bool {
	return c.JWTSecret != ""
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// envDuration accepts formats like "30s", "1m", "6h".
func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
