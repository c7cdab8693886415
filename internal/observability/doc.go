// Package observability groups structured logging, Prometheus metrics and
// OpenTelemetry tracing for the API and the warm-up worker.
//
// Subpackages:
//   - logging: slog JSON logger and request scoped loggers in context
//   - metrics: HTTP and news cache metrics with Record* helpers
//   - tracing: HTTP server spans and the shared tracer
package observability
