// Package marketaux implements the news provider on the Marketaux
// news/all endpoint: one GET per batch of symbols.
package marketaux

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"ticker-news/internal/domain/entity"
	"ticker-news/internal/observability/metrics"
	"ticker-news/internal/resilience/circuitbreaker"
	"ticker-news/internal/resilience/retry"
)

// maxBodyBytes bounds the decoded response size.
const maxBodyBytes = 4 << 20

// Client fetches ticker news from Marketaux.
type Client struct {
	cfg            Config
	endpoint       *url.URL
	httpClient     *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	limiter        *rate.Limiter
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryConfig replaces the retry policy.
func WithRetryConfig(rc retry.Config) Option {
	return func(c *Client) { c.retryConfig = rc }
}

// WithCircuitBreaker replaces the circuit breaker.
func WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(c *Client) { c.circuitBreaker = cb }
}

// New validates cfg and builds a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("marketaux: parse base url: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	cbCfg := circuitbreaker.ProviderConfig("marketaux")
	cbCfg.OnStateChange = func(name string, _, to gobreaker.State) {
		metrics.SetCircuitState(name, int(to))
	}

	c := &Client{
		cfg:            cfg,
		endpoint:       base.ResolveReference(&url.URL{Path: "news/all"}),
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		circuitBreaker: circuitbreaker.New(cbCfg),
		retryConfig:    retry.ProviderConfig(),
	}
	if cfg.RatePerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Circuit returns the breaker guarding upstream calls.
func (c *Client) Circuit() *circuitbreaker.CircuitBreaker {
	return c.circuitBreaker
}

// FetchBySymbols issues one request covering all symbols. An empty list
// returns nothing without calling the API.
func (c *Client) FetchBySymbols(ctx context.Context, symbols []string) ([]*entity.Article, error) {
	symbols = entity.NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		return []*entity.Article{}, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("marketaux: rate limiter: %w", err)
		}
	}

	var articles []*entity.Article
	err := retry.WithBackoff(ctx, c.retryConfig, func() error {
		res, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doFetch(ctx, symbols)
		})
		if err != nil {
			if errors.Is(err, circuitbreaker.ErrOpen) {
				slog.Warn("marketaux circuit breaker open, request rejected",
					slog.String("state", c.circuitBreaker.State().String()))
				return fmt.Errorf("marketaux unavailable: %w", err)
			}
			return err
		}
		articles = res.([]*entity.Article)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("marketaux fetch %s: %w", strings.Join(symbols, ","), err)
	}
	return articles, nil
}

func (c *Client) requestURL(symbols []string) string {
	q := url.Values{}
	q.Set("symbols", strings.Join(symbols, ","))
	q.Set("filter_entities", "true")
	if c.cfg.Language != "" {
		q.Set("language", c.cfg.Language)
	}
	if c.cfg.Limit > 0 {
		q.Set("limit", strconv.Itoa(c.cfg.Limit))
	}
	q.Set("api_token", c.cfg.APIToken)

	u := *c.endpoint
	u.RawQuery = q.Encode()
	return u.String()
}

// doFetch performs a single attempt without retry or circuit breaker.
func (c *Client) doFetch(ctx context.Context, symbols []string) ([]*entity.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(symbols), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, redact(err, c.cfg.APIToken)
	}
	defer func() { _ = resp.Body.Close() }()

	body := io.LimitReader(resp.Body, maxBodyBytes)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: errorMessage(body, resp.Status)}
	}

	var raw newsResponse
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	articles := make([]*entity.Article, 0, len(raw.Data))
	skipped := 0
	for _, item := range raw.Data {
		a, err := item.toArticle()
		if err != nil {
			skipped++
			slog.Warn("marketaux item skipped", slog.Any("error", err))
			continue
		}
		articles = append(articles, a)
	}

	slog.Debug("marketaux fetch completed",
		slog.Int("symbols", len(symbols)),
		slog.Int("articles", len(articles)),
		slog.Int("skipped", skipped),
		slog.Duration("duration", time.Since(start)))
	return articles, nil
}

func errorMessage(body io.Reader, fallback string) string {
	var e errorResponse
	if err := json.NewDecoder(body).Decode(&e); err == nil && e.Error.Message != "" {
		if e.Error.Code != "" {
			return e.Error.Code + ": " + e.Error.Message
		}
		return e.Error.Message
	}
	return fallback
}

// redact strips the API token from transport errors, which embed the URL.
func redact(err error, token string) error {
	var uErr *url.Error
	if token == "" || !errors.As(err, &uErr) {
		return err
	}
	clean := *uErr
	clean.URL = strings.ReplaceAll(uErr.URL, url.QueryEscape(token), "REDACTED")
	clean.URL = strings.ReplaceAll(clean.URL, token, "REDACTED")
	return &clean
}
