package metrics

import (
	"time"
)

// RecordReconcile records one reconciler invocation.
func RecordReconcile(outcome string, duration time.Duration) {
	ReconcileTotal.WithLabelValues(outcome).Inc()
	ReconcileDuration.Observe(duration.Seconds())
}

// RecordClassification records how many requested symbols were fresh and
// how many had to be fetched.
func RecordClassification(fresh, needsFetch int) {
	CacheSymbolsTotal.WithLabelValues("fresh").Add(float64(fresh))
	CacheSymbolsTotal.WithLabelValues("fetch").Add(float64(needsFetch))
}

// RecordProviderCall records the outcome of one batched provider call.
func RecordProviderCall(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	ProviderCallsTotal.WithLabelValues(status).Inc()
	ProviderCallDuration.Observe(duration.Seconds())
}

// RecordPersisted records inserted articles and skipped duplicates.
func RecordPersisted(inserted, existing, conflicts, batch int) {
	ArticlesInsertedTotal.Add(float64(inserted))
	DuplicatesTotal.WithLabelValues("existing").Add(float64(existing))
	DuplicatesTotal.WithLabelValues("conflict").Add(float64(conflicts))
	DuplicatesTotal.WithLabelValues("batch").Add(float64(batch))
}

// SetCircuitState publishes a circuit breaker state as 0, 1 or 2.
func SetCircuitState(circuit string, state int) {
	ProviderCircuitState.WithLabelValues(circuit).Set(float64(state))
}

// RecordHTTPRequest records the metrics of one served request.
func RecordHTTPRequest(method, path, status string, duration time.Duration, size int) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	HTTPResponseSize.WithLabelValues(method, path).Observe(float64(size))
}
