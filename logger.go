package loctree

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
)

// Logger wraps slog.Logger with loctree-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithNode adds a node index field to the logger.
func (l *Logger) WithNode(node uint32) *Logger {
	return &Logger{
		Logger: l.Logger.With("node", node),
	}
}

// WithPool adds a pool name field to the logger.
func (l *Logger) WithPool(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("pool", name),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogAdd logs an element insertion.
func (l *Logger) LogAdd(id ElementID) {
	l.Debug("element added",
		"node", id.Node,
		"index", id.Index,
	)
}

// LogRemove logs an element removal.
func (l *Logger) LogRemove(id ElementID) {
	l.Debug("element removed",
		"node", id.Node,
		"index", id.Index,
	)
}

// LogSplit logs a leaf subdivision.
func (l *Logger) LogSplit(node uint32, population int) {
	l.Debug("leaf split",
		"node", node,
		"population", population,
	)
}

// LogCollapse logs a subtree collapse.
func (l *Logger) LogCollapse(node uint32, gathered int) {
	l.Debug("subtree collapsed",
		"node", node,
		"gathered", gathered,
	)
}

// LogStats logs a tree statistics snapshot.
func (l *Logger) LogStats(s Stats) {
	l.Info("octree stats",
		"elements", s.Elements,
		"nodes", s.Nodes,
		"leaves", s.Leaves,
		"depth", s.Depth,
		"free_groups", s.FreeGroups,
		"leaf_mean", s.LeafMean,
		"leaf_stddev", s.LeafStdDev,
		"histogram", fmt.Sprint(s.Histogram),
		"footprint", humanize.IBytes(s.FootprintBytes),
	)
}

// LogAlloc logs a pool block allocation.
func (l *Logger) LogAlloc(block int, requested uintptr) {
	l.Debug("block allocated",
		"block", block,
		"requested", requested,
	)
}

// LogFree logs a pool block release.
func (l *Logger) LogFree(block int) {
	l.Debug("block freed",
		"block", block,
	)
}

// LogCommitFailure logs a failed page commit during allocation.
func (l *Logger) LogCommitFailure(block int, size uintptr, err error) {
	l.Error("commit failed, allocation rolled back",
		"block", block,
		"size", size,
		"error", err,
	)
}
