// Package metrics exposes report lifecycle metrics in the Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector report lifecycle metrics, registered on a private registry.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	reportsTriggered prometheus.Counter
	reportsCompleted prometheus.Counter
	reportsFailed    prometheus.Counter
	degradedStores   prometheus.Counter
	storesProcessed  prometheus.Counter

	reportDuration prometheus.Histogram
	reportsRunning prometheus.Gauge
}

// NewCollector creates a collector with its own registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		reportsTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storepulse_reports_triggered_total",
			Help: "Total number of report jobs accepted",
		}),
		reportsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storepulse_reports_completed_total",
			Help: "Total number of report jobs that reached Complete",
		}),
		reportsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storepulse_reports_failed_total",
			Help: "Total number of report jobs that reached Failed",
		}),
		degradedStores: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storepulse_report_degraded_stores_total",
			Help: "Total number of store rows emitted with at least one diagnostic",
		}),
		storesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storepulse_report_stores_processed_total",
			Help: "Total number of store rows computed",
		}),
		reportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "storepulse_report_duration_seconds",
			Help:    "Wall time from Running to a terminal status",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		reportsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storepulse_reports_running",
			Help: "Current number of report jobs in Running",
		}),
	}

	c.registry.MustRegister(
		c.reportsTriggered,
		c.reportsCompleted,
		c.reportsFailed,
		c.degradedStores,
		c.storesProcessed,
		c.reportDuration,
		c.reportsRunning,
	)
	return c
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordTriggered a report job was accepted
func (c *Collector) RecordTriggered() {
	if c == nil {
		return
	}
	c.reportsTriggered.Inc()
}

// RecordStarted a report job moved to Running
func (c *Collector) RecordStarted() {
	if c == nil {
		return
	}
	c.reportsRunning.Inc()
}

// RecordStores a batch of store rows was computed
func (c *Collector) RecordStores(processed, degraded int) {
	if c == nil {
		return
	}
	c.storesProcessed.Add(float64(processed))
	c.degradedStores.Add(float64(degraded))
}

// RecordCompleted a running report job reached Complete
func (c *Collector) RecordCompleted(elapsed time.Duration) {
	if c == nil {
		return
	}
	c.reportsRunning.Dec()
	c.reportsCompleted.Inc()
	c.reportDuration.Observe(elapsed.Seconds())
}

// RecordFailed a report job reached Failed; running is false when it failed before Running
func (c *Collector) RecordFailed(elapsed time.Duration, running bool) {
	if c == nil {
		return
	}
	if running {
		c.reportsRunning.Dec()
		c.reportDuration.Observe(elapsed.Seconds())
	}
	c.reportsFailed.Inc()
}
