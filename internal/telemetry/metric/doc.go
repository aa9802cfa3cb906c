// Package metric provides Prometheus metrics for pcompress.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: private registry, codec and request metrics, HTTP handler
//   - collector.go: scrape-time collector for catalog statistics
//
// The server exposes the registry at /metrics. The CLI can dump it to a
// node-exporter textfile after a run.
package metric
