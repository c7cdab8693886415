// Package tracing provides OpenTelemetry helpers. Exporter setup is left to
// the deployment; without one the global no-op provider is used.
package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "ticker-news"

// Tracer returns the tracer used across the application. It is looked up
// on each call so that a provider installed after init is honored.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
