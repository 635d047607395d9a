package blockpool

import (
	"log/slog"

	"github.com/hupe1980/loctree"
	"github.com/hupe1980/loctree/resource"
)

type options struct {
	metricsCollector loctree.MetricsCollector
	logger           *loctree.Logger
	governor         *resource.Governor
	name             string
}

// Option configures pool constructor behavior.
type Option func(*options)

// WithName tags the pool's log output with a name, useful when several
// pools share one handler.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithGovernor attaches a commit governor. Allocations whose page commit
// would exceed the governor's budget fail like a full pool; freed blocks
// return their budget.
func WithGovernor(g *resource.Governor) Option {
	return func(o *options) {
		o.governor = g
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// allocations.
func WithMetricsCollector(mc loctree.MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = loctree.NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for pool operations.
func WithLogger(logger *loctree.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = loctree.NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(loctree.NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = loctree.NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: loctree.NoopMetricsCollector{},
		logger:           loctree.NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.name != "" {
		o.logger = o.logger.WithPool(o.name)
	}
	return o
}
