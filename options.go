package loctree

import (
	"log/slog"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	nodeCapacity     int
}

// Option configures octree constructor behavior.
type Option func(*options)

// WithNodeCapacity pre-sizes the node storage arrays for roughly the given
// number of nodes, avoiding growth re-allocations while the tree fills.
// Values below one are ignored.
func WithNodeCapacity(nodes int) Option {
	return func(o *options) {
		o.nodeCapacity = nodes
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
//
// Example with BasicMetricsCollector:
//
//	metrics := &loctree.BasicMetricsCollector{}
//	tree, _ := loctree.New(origin, 100, sem, loctree.WithMetricsCollector(metrics))
//	// ... use tree ...
//	stats := metrics.GetStats()
//	fmt.Printf("Adds: %d, Avg latency: %dns\n", stats.AddCount, stats.AddAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
//
// Example with JSON logging:
//
//	logger := loctree.NewJSONLogger(slog.LevelInfo)
//	tree, _ := loctree.New(origin, 100, sem, loctree.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
