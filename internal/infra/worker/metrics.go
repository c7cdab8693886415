package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ticker-news/internal/pkg/config"
)

// WorkerMetrics provides Prometheus metrics for the warm-up worker.
// It embeds ConfigMetrics for configuration monitoring.
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp
//   - worker_config_validation_errors_total{field}
//   - worker_config_fallbacks_total{field}
//   - worker_config_fallback_active
//
// Job metrics:
//   - worker_warmup_runs_total{status}: runs by status (success/failure/skipped)
//   - worker_warmup_duration_seconds: run duration
//   - worker_warmup_symbols_total: symbols reconciled across runs
//   - worker_warmup_last_success_timestamp: Unix time of the last successful run
type WorkerMetrics struct {
	*config.ConfigMetrics

	RunsTotal            *prometheus.CounterVec
	DurationSeconds      prometheus.Histogram
	SymbolsTotal         prometheus.Counter
	LastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics registers worker metrics with reg. A nil reg uses the
// default registerer; tests pass prometheus.NewRegistry().
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker", reg),

		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_warmup_runs_total",
			Help: "Total number of warm-up runs by status",
		}, []string{"status"}),

		DurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_warmup_duration_seconds",
			Help:    "Duration of warm-up runs in seconds",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 180, 300, 900},
		}),

		SymbolsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "worker_warmup_symbols_total",
			Help: "Total number of symbols reconciled by warm-up runs",
		}),

		LastSuccessTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: "worker_warmup_last_success_timestamp",
			Help: "Unix timestamp of the last successful warm-up run",
		}),
	}
}

// RecordRun increments the run counter for status.
func (m *WorkerMetrics) RecordRun(status string) {
	m.RunsTotal.WithLabelValues(status).Inc()
}

// RecordDuration observes a run duration in seconds.
func (m *WorkerMetrics) RecordDuration(seconds float64) {
	m.DurationSeconds.Observe(seconds)
}

// RecordSymbols adds the number of symbols reconciled in a run.
func (m *WorkerMetrics) RecordSymbols(count int) {
	m.SymbolsTotal.Add(float64(count))
}

// RecordLastSuccess records now as the last successful run.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.LastSuccessTimestamp.SetToCurrentTime()
}
