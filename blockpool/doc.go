// Package blockpool provides a fixed-block allocator over reserved virtual
// memory with lazy page commit.
//
// A pool carves a pre-reserved address range into equal blocks and tracks
// them in a free bitmap. Allocating commits just the pages covering the
// requested size and returns the lowest free block's address; freeing
// decommits the whole block, so physical memory tracks the working set
// while addresses stay stable for the pool's lifetime.
//
// # Quick Start
//
// Let the pool own its reservation:
//
//	pool, err := blockpool.NewWithReservation(64<<10, 256)
//	if err != nil {
//	    // commit alignment or reservation failure
//	}
//	defer pool.Close()
//
//	ptr := pool.Allocate(1234)
//	if ptr == nil {
//	    // pool full, fall back to another allocator
//	}
//	// ... use the 64 KiB block at ptr ...
//	pool.Free(ptr, 1234)
//
// Or wrap a sub-range of an existing reservation via New, supplying the
// VirtualMemory it came from and a bitmap buffer.
//
// # Failure Model
//
// Exhaustion is not an error: Allocate returns nil when no block is free,
// when an attached resource.Governor denies commit budget, or when the
// operating system refuses pages. Precondition violations (oversized
// requests, foreign or misaligned pointers in Free, double frees) panic.
//
// Several pools may share one resource.Governor to keep their combined
// committed memory under a process-wide budget.
package blockpool
