package worker

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestWorkerMetrics_Record(t *testing.T) {
	m := NewWorkerMetrics(prometheus.NewRegistry())

	m.RecordRun("success")
	m.RecordRun("success")
	m.RecordRun("failure")
	m.RecordSymbols(12)
	m.RecordSymbols(3)
	m.RecordDuration(1.5)
	m.RecordLastSuccess()

	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("expected 2 successful runs, got %v", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("failure")); got != 1 {
		t.Errorf("expected 1 failed run, got %v", got)
	}
	if got := testutil.ToFloat64(m.SymbolsTotal); got != 15 {
		t.Errorf("expected 15 symbols, got %v", got)
	}
	if got := testutil.CollectAndCount(m.DurationSeconds); got != 1 {
		t.Errorf("expected 1 duration series, got %d", got)
	}
	if got := testutil.ToFloat64(m.LastSuccessTimestamp); got <= 0 {
		t.Errorf("expected last success timestamp to be set, got %v", got)
	}
}

func TestWorkerMetrics_IsolatedRegistries(t *testing.T) {
	// 同一プロセスで複数生成してもパニックしないこと
	a := NewWorkerMetrics(prometheus.NewRegistry())
	b := NewWorkerMetrics(prometheus.NewRegistry())

	a.RecordRun("success")
	if got := testutil.ToFloat64(b.RunsTotal.WithLabelValues("success")); got != 0 {
		t.Errorf("registries should be independent, got %v", got)
	}
}
