// Package prom exports index metrics to Prometheus.
package prom

import (
	"time"

	"github.com/hupe1980/modindex"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "modindex"

// Collector implements modindex.MetricsCollector with Prometheus metrics.
type Collector struct {
	opens       *prometheus.CounterVec
	openLatency prometheus.Histogram

	builds         *prometheus.CounterVec
	buildLatency   prometheus.Histogram
	modulesIndexed prometheus.Gauge
	modulesSkipped prometheus.Gauge

	lookups *prometheus.CounterVec
}

var _ modindex.MetricsCollector = (*Collector)(nil)

// NewCollector creates the metrics and registers them with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		opens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "opens_total",
			Help:      "Index opens by outcome",
		}, []string{"outcome"}),
		openLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "open_duration_seconds",
			Help:      "Latency of opening an index",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "builds_total",
			Help:      "Index builds by status",
		}, []string{"status"}),
		buildLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "build_duration_seconds",
			Help:      "Latency of successful index builds",
			Buckets:   prometheus.DefBuckets,
		}),
		modulesIndexed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "modules_indexed",
			Help:      "Modules in the most recently built index",
		}),
		modulesSkipped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "modules_skipped",
			Help:      "Modules left out of the most recently built index",
		}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "lookups_total",
			Help:      "Index lookups by key kind and result",
		}, []string{"kind", "result"}),
	}

	for _, m := range []prometheus.Collector{
		c.opens, c.openLatency, c.builds, c.buildLatency,
		c.modulesIndexed, c.modulesSkipped, c.lookups,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RecordOpen implements modindex.MetricsCollector.
func (c *Collector) RecordOpen(outcome modindex.Outcome, duration time.Duration) {
	c.opens.WithLabelValues(outcome.String()).Inc()
	c.openLatency.Observe(duration.Seconds())
}

// RecordBuild implements modindex.MetricsCollector.
func (c *Collector) RecordBuild(modules, skipped int, duration time.Duration, err error) {
	switch modindex.OutcomeOf(err) {
	case modindex.OutcomeReady:
		c.builds.WithLabelValues("success").Inc()
	case modindex.OutcomeBuilding:
		c.builds.WithLabelValues("busy").Inc()
		return
	default:
		c.builds.WithLabelValues("error").Inc()
		return
	}
	c.buildLatency.Observe(duration.Seconds())
	c.modulesIndexed.Set(float64(modules))
	c.modulesSkipped.Set(float64(skipped))
}

// RecordLookup implements modindex.MetricsCollector.
func (c *Collector) RecordLookup(selector, hit bool, err error) {
	kind := "identifier"
	if selector {
		kind = "selector"
	}
	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case hit:
		result = "hit"
	}
	c.lookups.WithLabelValues(kind, result).Inc()
}
