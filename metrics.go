package loctree

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    addCounter     prometheus.Counter
//	    queryHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordAdd(duration time.Duration) {
//	    p.addCounter.Inc()
//	    // ... record duration, etc.
//	}
type MetricsCollector interface {
	// RecordAdd is called after each element insertion.
	// duration is the total time taken, including any split it triggered.
	RecordAdd(duration time.Duration)

	// RecordRemove is called after each element removal.
	// duration is the total time taken, including any collapse it triggered.
	RecordRemove(duration time.Duration)

	// RecordSplit is called when a leaf subdivides.
	// population is the number of elements redistributed.
	RecordSplit(population int)

	// RecordCollapse is called when a subtree folds back into its root.
	// gathered is the number of elements moved up.
	RecordCollapse(gathered int)

	// RecordQuery is called after each traversal.
	// visitedNodes is the number of nodes the walk touched.
	RecordQuery(visitedNodes int, duration time.Duration)

	// RecordAlloc is called after each successful pool allocation.
	// requested is the caller-visible size, committed the page-granular
	// amount of physical memory backing it.
	RecordAlloc(requested, committed uintptr)

	// RecordFree is called after each pool free.
	RecordFree(requested uintptr)

	// RecordCommitFailure is called when the operating system refuses to
	// commit pages for an allocation.
	RecordCommitFailure()
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(time.Duration)        {}
func (NoopMetricsCollector) RecordRemove(time.Duration)     {}
func (NoopMetricsCollector) RecordSplit(int)                {}
func (NoopMetricsCollector) RecordCollapse(int)             {}
func (NoopMetricsCollector) RecordQuery(int, time.Duration) {}
func (NoopMetricsCollector) RecordAlloc(uintptr, uintptr)   {}
func (NoopMetricsCollector) RecordFree(uintptr)             {}
func (NoopMetricsCollector) RecordCommitFailure()           {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddCount          atomic.Int64
	AddTotalNanos     atomic.Int64
	RemoveCount       atomic.Int64
	RemoveTotalNanos  atomic.Int64
	SplitCount        atomic.Int64
	SplitElements     atomic.Int64
	CollapseCount     atomic.Int64
	CollapseElements  atomic.Int64
	QueryCount        atomic.Int64
	QueryNodesVisited atomic.Int64
	QueryTotalNanos   atomic.Int64
	AllocCount        atomic.Int64
	AllocRequested    atomic.Int64
	AllocCommitted    atomic.Int64
	FreeCount         atomic.Int64
	CommitFailures    atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(duration time.Duration) {
	b.AddCount.Add(1)
	b.AddTotalNanos.Add(duration.Nanoseconds())
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(duration time.Duration) {
	b.RemoveCount.Add(1)
	b.RemoveTotalNanos.Add(duration.Nanoseconds())
}

// RecordSplit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSplit(population int) {
	b.SplitCount.Add(1)
	b.SplitElements.Add(int64(population))
}

// RecordCollapse implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCollapse(gathered int) {
	b.CollapseCount.Add(1)
	b.CollapseElements.Add(int64(gathered))
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(visitedNodes int, duration time.Duration) {
	b.QueryCount.Add(1)
	b.QueryNodesVisited.Add(int64(visitedNodes))
	b.QueryTotalNanos.Add(duration.Nanoseconds())
}

// RecordAlloc implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAlloc(requested, committed uintptr) {
	b.AllocCount.Add(1)
	b.AllocRequested.Add(int64(requested))
	b.AllocCommitted.Add(int64(committed))
}

// RecordFree implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFree(requested uintptr) {
	b.FreeCount.Add(1)
}

// RecordCommitFailure implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCommitFailure() {
	b.CommitFailures.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddCount:          b.AddCount.Load(),
		AddAvgNanos:       avg(b.AddTotalNanos.Load(), b.AddCount.Load()),
		RemoveCount:       b.RemoveCount.Load(),
		RemoveAvgNanos:    avg(b.RemoveTotalNanos.Load(), b.RemoveCount.Load()),
		SplitCount:        b.SplitCount.Load(),
		SplitElements:     b.SplitElements.Load(),
		CollapseCount:     b.CollapseCount.Load(),
		CollapseElements:  b.CollapseElements.Load(),
		QueryCount:        b.QueryCount.Load(),
		QueryNodesVisited: b.QueryNodesVisited.Load(),
		QueryAvgNanos:     avg(b.QueryTotalNanos.Load(), b.QueryCount.Load()),
		AllocCount:        b.AllocCount.Load(),
		AllocRequested:    b.AllocRequested.Load(),
		AllocCommitted:    b.AllocCommitted.Load(),
		FreeCount:         b.FreeCount.Load(),
		CommitFailures:    b.CommitFailures.Load(),
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
	AddCount          int64
	AddAvgNanos       int64
	RemoveCount       int64
	RemoveAvgNanos    int64
	SplitCount        int64
	SplitElements     int64
	CollapseCount     int64
	CollapseElements  int64
	QueryCount        int64
	QueryNodesVisited int64
	QueryAvgNanos     int64
	AllocCount        int64
	AllocRequested    int64
	AllocCommitted    int64
	FreeCount         int64
	CommitFailures    int64
}
