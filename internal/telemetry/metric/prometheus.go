package metric

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pcompress"

// Registry holds all application metrics on a private Prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	// Codec metrics
	RecordsEncoded prometheus.Counter
	RecordsDecoded prometheus.Counter
	NodesChanged   prometheus.Counter
	RelabelSwaps   prometheus.Counter
	SkipEscapes    prometheus.Counter
	BytesEncoded   prometheus.Counter

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with Go runtime and process collectors
// plus the pcompress metrics.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Registry{
		registry: reg,

		RecordsEncoded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_encoded_total",
			Help:      "Total number of records written to chains.",
		}),
		RecordsDecoded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_decoded_total",
			Help:      "Total number of records read from chains.",
		}),
		NodesChanged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_changed_total",
			Help:      "Total number of node assignments written to chains.",
		}),
		RelabelSwaps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relabel_swaps_total",
			Help:      "Total number of steps where swapping two labels shrank the delta.",
		}),
		SkipEscapes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skip_escapes_total",
			Help:      "Total number of skip escapes written.",
		}),
		BytesEncoded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_encoded_total",
			Help:      "Total number of chain bytes written.",
		}),

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

var (
	globalOnce     sync.Once
	globalRegistry *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// Handler returns an HTTP handler for the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Register adds an extra collector, such as the catalog collector.
func (r *Registry) Register(c prometheus.Collector) error {
	if err := r.registry.Register(c); err != nil {
		return fmt.Errorf("metric: register collector: %w", err)
	}
	return nil
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metric: write textfile %s: %w", path, err)
	}
	return nil
}

// RecordRequest counts one HTTP request.
func (r *Registry) RecordRequest(method, route, status string) {
	r.RequestsTotal.WithLabelValues(method, route, status).Inc()
}

// ObserveRequestDuration records the latency of one HTTP request.
func (r *Registry) ObserveRequestDuration(method, route string, seconds float64) {
	r.RequestDuration.WithLabelValues(method, route).Observe(seconds)
}
