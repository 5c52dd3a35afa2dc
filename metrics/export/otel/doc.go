// Package otel publishes cashflow engine metrics as OpenTelemetry
// observable instruments on a caller-supplied metric.Meter. Names match the
// Prometheus exporter.
package otel
