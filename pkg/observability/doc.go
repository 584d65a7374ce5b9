// Package observability provides structured logging, Prometheus metrics,
// health probes, OpenTelemetry tracing, and graceful shutdown for the
// TaskHub server.
//
// Logging is structured JSON over stdlib slog. Metrics are registered on a
// caller-supplied Prometheus registry and served from the separate health
// port. Tracing is optional and exports OTLP over gRPC when enabled.
package observability
