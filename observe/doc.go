// Package observe provides the telemetry used by the health service: a
// structured JSON logger, OpenTelemetry tracer and meter setup, and a
// middleware that wraps each metadata-store query with a span, metrics and a
// log line.
//
// It does no I/O beyond exporter setup. Disabled subsystems are replaced by
// no-op implementations, so callers never need nil checks.
package observe
