// Package sanity gates expensive self-checking behind the "sanity" build
// tag. Cheap precondition panics stay on in every build; whole-structure
// verification and the concurrency tripwire are guarded with Enabled so
// release builds keep operations free of atomics and extra scans.
package sanity

import "sync/atomic"

// Tripwire detects overlapping entry into code that promises exclusive
// single-threaded use. It is inert unless the sanity build tag is set.
type Tripwire struct {
	busy atomic.Int32
}

// Enter panics when another goroutine is already inside the guarded
// section.
func (t *Tripwire) Enter() {
	if !Enabled {
		return
	}
	if !t.busy.CompareAndSwap(0, 1) {
		panic("sanity: concurrent entry into single-threaded structure")
	}
}

// Exit marks the guarded section as left.
func (t *Tripwire) Exit() {
	if !Enabled {
		return
	}
	t.busy.Store(0)
}
