// Package prometheus exposes cashflow engine metrics through
// prometheus/client_golang.
//
// [Exporter] is a prometheus.Collector; register it with any registry, or
// mount [Exporter.Handler] for a self-contained /metrics endpoint. Counter
// names are cashflow_*_total; histograms are cashflow_*_latency_seconds.
package prometheus
