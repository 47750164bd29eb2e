package modindex

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; see
// package metrics/prom for a Prometheus implementation.
//
// Implementations must be safe for concurrent use. RecordLookup is on the
// query path and should not block.
type MetricsCollector interface {
	// RecordOpen is called after each ReadIndex.
	RecordOpen(outcome Outcome, duration time.Duration)

	// RecordBuild is called after each WriteIndex that acquired the build
	// marker. modules and skipped are zero when the build failed.
	RecordBuild(modules, skipped int, duration time.Duration, err error)

	// RecordLookup is called after each identifier or selector lookup.
	RecordLookup(selector, hit bool, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOpen(Outcome, time.Duration)          {}
func (NoopMetricsCollector) RecordBuild(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordLookup(bool, bool, error)             {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	OpenReady       atomic.Int64
	OpenNotFound    atomic.Int64
	OpenBuilding    atomic.Int64
	OpenErrors      atomic.Int64
	OpenTotalNanos  atomic.Int64
	BuildCount      atomic.Int64
	BuildErrors     atomic.Int64
	BuildModules    atomic.Int64
	BuildSkipped    atomic.Int64
	BuildTotalNanos atomic.Int64
	LookupCount     atomic.Int64
	LookupHits      atomic.Int64
	LookupErrors    atomic.Int64
	SelectorLookups atomic.Int64
}

// RecordOpen implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOpen(outcome Outcome, duration time.Duration) {
	b.OpenTotalNanos.Add(duration.Nanoseconds())
	switch outcome {
	case OutcomeReady:
		b.OpenReady.Add(1)
	case OutcomeNotFound:
		b.OpenNotFound.Add(1)
	case OutcomeBuilding:
		b.OpenBuilding.Add(1)
	default:
		b.OpenErrors.Add(1)
	}
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(modules, skipped int, duration time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BuildErrors.Add(1)
		return
	}
	b.BuildModules.Add(int64(modules))
	b.BuildSkipped.Add(int64(skipped))
}

// RecordLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLookup(selector, hit bool, err error) {
	b.LookupCount.Add(1)
	if selector {
		b.SelectorLookups.Add(1)
	}
	if err != nil {
		b.LookupErrors.Add(1)
		return
	}
	if hit {
		b.LookupHits.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		OpenReady:       b.OpenReady.Load(),
		OpenNotFound:    b.OpenNotFound.Load(),
		OpenBuilding:    b.OpenBuilding.Load(),
		OpenErrors:      b.OpenErrors.Load(),
		BuildCount:      b.BuildCount.Load(),
		BuildErrors:     b.BuildErrors.Load(),
		BuildModules:    b.BuildModules.Load(),
		BuildSkipped:    b.BuildSkipped.Load(),
		BuildAvgNanos:   avg(b.BuildTotalNanos.Load(), b.BuildCount.Load()),
		LookupCount:     b.LookupCount.Load(),
		LookupHits:      b.LookupHits.Load(),
		LookupErrors:    b.LookupErrors.Load(),
		SelectorLookups: b.SelectorLookups.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	OpenReady       int64
	OpenNotFound    int64
	OpenBuilding    int64
	OpenErrors      int64
	BuildCount      int64
	BuildErrors     int64
	BuildModules    int64
	BuildSkipped    int64
	BuildAvgNanos   int64
	LookupCount     int64
	LookupHits      int64
	LookupErrors    int64
	SelectorLookups int64
}
