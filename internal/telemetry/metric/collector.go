package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CatalogStats is the view of the chain catalog the collector reports.
type CatalogStats interface {
	// Stats returns the number of chains and their total size in bytes.
	Stats() (chains int, bytes int64, err error)
}

// Collector reports catalog gauges at scrape time.
type Collector struct {
	source CatalogStats

	chains *prometheus.Desc
	bytes  *prometheus.Desc
	errors *prometheus.Desc
}

// NewCollector creates a collector reading from source.
func NewCollector(source CatalogStats) *Collector {
	return &Collector{
		source: source,
		chains: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "catalog", "chains"),
			"Number of chains in the catalog.", nil, nil),
		bytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "catalog", "bytes"),
			"Total size of stored chain files in bytes.", nil, nil),
		errors: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "catalog", "scrape_error"),
			"1 if reading catalog stats failed during the last scrape.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.chains
	ch <- c.bytes
	ch <- c.errors
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	chains, size, err := c.source.Stats()
	if err != nil {
		ch <- prometheus.MustNewConstMetric(c.errors, prometheus.GaugeValue, 1)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.chains, prometheus.GaugeValue, float64(chains))
	ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.GaugeValue, float64(size))
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.GaugeValue, 0)
}
