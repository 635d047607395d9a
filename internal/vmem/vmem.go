// Package vmem reserves virtual address ranges and commits or decommits
// their physical backing on demand. A reservation costs address space only;
// pages are materialized with Commit and returned to the OS with Decommit
// while the range itself stays reserved.
package vmem

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"
)

var (
	// ErrClosed is returned when the reservation was already released.
	ErrClosed = errors.New("vmem: block released")

	// ErrInvalidSize is returned for a non-positive reservation size.
	ErrInvalidSize = errors.New("vmem: invalid size")

	// ErrOutOfRange is returned when a sub-range leaves the reservation.
	ErrOutOfRange = errors.New("vmem: range outside reservation")

	// ErrMisaligned is returned when a sub-range breaks the commit
	// granularity.
	ErrMisaligned = errors.New("vmem: range not aligned to commit granularity")
)

// Block is a reserved virtual address range. It owns the reservation and is
// responsible for releasing it.
type Block struct {
	data     []byte
	pageSize uintptr
	closed   atomic.Bool
}

// Reserve claims a virtual address range of at least size bytes, rounded up
// to the reservation granularity. No physical memory is committed; touching
// the range before Commit faults.
func Reserve(size uintptr) (*Block, error) {
	if size == 0 {
		return nil, ErrInvalidSize
	}

	pageSize := uintptr(os.Getpagesize())
	gran := osVirtualSizeAlignment(pageSize)
	size = (size + gran - 1) &^ (gran - 1)

	data, err := osReserve(size)
	if err != nil {
		return nil, fmt.Errorf("vmem: reserve %d bytes: %w", size, err)
	}

	return &Block{data: data, pageSize: pageSize}, nil
}

// Start returns the first address of the reservation.
func (b *Block) Start() unsafe.Pointer {
	return unsafe.Pointer(&b.data[0])
}

// Size returns the reserved size in bytes.
func (b *Block) Size() uintptr {
	return uintptr(len(b.data))
}

// CommitAlignment returns the commit granularity (the OS page size).
func (b *Block) CommitAlignment() uintptr {
	return b.pageSize
}

// VirtualSizeAlignment returns the reservation granularity.
func (b *Block) VirtualSizeAlignment() uintptr {
	return osVirtualSizeAlignment(b.pageSize)
}

func (b *Block) sub(offset, size uintptr) ([]byte, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	if offset+size < offset || offset+size > uintptr(len(b.data)) {
		return nil, ErrOutOfRange
	}
	if offset%b.pageSize != 0 || size%b.pageSize != 0 {
		return nil, ErrMisaligned
	}
	return b.data[offset : offset+size], nil
}

// Commit backs [offset, offset+size) with physical pages. Both bounds must
// be multiples of CommitAlignment. Freshly committed pages read as zero.
func (b *Block) Commit(offset, size uintptr) error {
	seg, err := b.sub(offset, size)
	if err != nil {
		return err
	}
	if size == 0 {
		return nil
	}
	if err := osCommit(seg); err != nil {
		return fmt.Errorf("vmem: commit [%d,%d): %w", offset, offset+size, err)
	}
	return nil
}

// Decommit releases the physical backing of [offset, offset+size) while
// keeping the addresses reserved. Touching the range afterwards faults
// until it is committed again.
func (b *Block) Decommit(offset, size uintptr) error {
	seg, err := b.sub(offset, size)
	if err != nil {
		return err
	}
	if size == 0 {
		return nil
	}
	if err := osDecommit(seg); err != nil {
		return fmt.Errorf("vmem: decommit [%d,%d): %w", offset, offset+size, err)
	}
	return nil
}

// Release returns the whole reservation to the OS. It is idempotent.
func (b *Block) Release() error {
	if b.closed.Swap(true) {
		return nil
	}
	if b.data == nil {
		return nil
	}
	return osRelease(b.data)
}

// Bytes returns the reserved range as a byte slice. Only committed
// sub-ranges may be touched; the slice is valid until Release.
func (b *Block) Bytes() []byte {
	if b.closed.Load() {
		return nil
	}
	return b.data
}
