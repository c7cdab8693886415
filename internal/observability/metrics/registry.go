// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track HTTP request patterns and performance
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// News cache metrics
var (
	// ReconcileTotal counts reconciler invocations by outcome (ok|error|empty)
	ReconcileTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_reconcile_total",
			Help: "Total number of news reconcile invocations",
		},
		[]string{"outcome"},
	)

	ReconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "news_reconcile_duration_seconds",
			Help:    "Duration of a news reconcile invocation",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)

	// CacheSymbolsTotal counts requested symbols by classification (fresh|fetch)
	CacheSymbolsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_cache_symbols_total",
			Help: "Requested symbols by freshness classification",
		},
		[]string{"result"},
	)

	// ProviderCallsTotal counts batched provider calls by status (success|failure)
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_provider_calls_total",
			Help: "Total number of batched news provider calls",
		},
		[]string{"status"},
	)

	ProviderCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "news_provider_call_duration_seconds",
			Help:    "Duration of batched news provider calls",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	ArticlesInsertedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "news_articles_inserted_total",
			Help: "Total number of articles written to the store",
		},
	)

	// DuplicatesTotal counts skipped articles by kind (existing|conflict|batch)
	DuplicatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_duplicates_total",
			Help: "Fetched articles skipped because their identity was already present",
		},
		[]string{"kind"},
	)

	// ProviderCircuitState is 0 closed, 1 half-open, 2 open
	ProviderCircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "news_provider_circuit_state",
			Help: "Provider circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"circuit"},
	)
)
