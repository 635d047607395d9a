// Package resource bounds the physical memory committed through block
// pools. A single Governor can be shared by any number of pools to enforce
// a process-wide commit budget and, optionally, a commit rate.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds commit limits.
type Config struct {
	// CommitLimitBytes is the hard limit for committed pool memory.
	// If 0, no hard limit is enforced (only tracking).
	CommitLimitBytes int64

	// CommitRateBytesPerSec throttles how fast new pages may be
	// committed by cooperating bulk loaders. If 0, unlimited.
	CommitRateBytesPerSec int64
}

// Governor arbitrates commit budget across pools. All methods are safe for
// concurrent use; a nil *Governor enforces nothing.
type Governor struct {
	budget *semaphore.Weighted // nil if unlimited
	used   atomic.Int64

	commitRate *rate.Limiter
}

// NewGovernor creates a new commit governor.
func NewGovernor(cfg Config) *Governor {
	g := &Governor{}

	if cfg.CommitLimitBytes > 0 {
		g.budget = semaphore.NewWeighted(cfg.CommitLimitBytes)
	}

	if cfg.CommitRateBytesPerSec > 0 {
		g.commitRate = rate.NewLimiter(rate.Limit(cfg.CommitRateBytesPerSec), int(cfg.CommitRateBytesPerSec))
	}

	return g
}

// TryReserve claims commit budget without blocking.
// Returns true if reserved, false if the limit would be exceeded.
func (g *Governor) TryReserve(bytes int64) bool {
	if g == nil {
		return true
	}
	if bytes <= 0 {
		return true
	}

	if g.budget != nil {
		if !g.budget.TryAcquire(bytes) {
			return false
		}
	}

	g.used.Add(bytes)
	return true
}

// Release returns previously reserved commit budget.
func (g *Governor) Release(bytes int64) {
	if g == nil {
		return
	}
	if bytes <= 0 {
		return
	}

	if g.budget != nil {
		g.budget.Release(bytes)
	}
	g.used.Add(-bytes)
}

// InUse returns the commit budget currently reserved, in bytes.
func (g *Governor) InUse() int64 {
	if g == nil {
		return 0
	}
	return g.used.Load()
}

// WaitCommitRate waits until the commit-rate limit admits the specified
// number of bytes. Pools never call this themselves; bulk loaders that
// populate pools in a tight loop use it to pace page commits.
func (g *Governor) WaitCommitRate(ctx context.Context, bytes int) error {
	if g == nil || g.commitRate == nil {
		return nil
	}
	return g.commitRate.WaitN(ctx, bytes)
}
