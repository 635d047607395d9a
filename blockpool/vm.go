package blockpool

import "unsafe"

// VirtualMemory is the reserved address range a pool carves its blocks
// from. The reservation itself is fixed for the pool's lifetime; physical
// backing comes and goes through Commit and Decommit as blocks are
// allocated and freed.
type VirtualMemory interface {
	// Start returns the first address of the reservation.
	Start() unsafe.Pointer

	// Size returns the reservation's length in bytes.
	Size() uintptr

	// Commit backs [offset, offset+size) with physical pages. Offset and
	// size must be multiples of CommitAlignment.
	Commit(offset, size uintptr) error

	// Decommit releases the physical pages behind [offset, offset+size)
	// while keeping the address range reserved.
	Decommit(offset, size uintptr) error

	// CommitAlignment is the granularity of Commit and Decommit,
	// typically the page size.
	CommitAlignment() uintptr

	// VirtualSizeAlignment is the granularity of the reservation itself.
	VirtualSizeAlignment() uintptr
}
