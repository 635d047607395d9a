package blockpool

import (
	"errors"
	"fmt"
)

var (
	// ErrNilVirtualMemory is returned when no virtual memory is supplied.
	ErrNilVirtualMemory = errors.New("virtual memory must not be nil")

	// ErrNoBlocks is returned when the pool would hold zero blocks.
	ErrNoBlocks = errors.New("pool must hold at least one block")
)

// ErrBlockSizeInvalid indicates a block size that is zero or incompatible
// with the commit granularity of the backing memory.
type ErrBlockSizeInvalid struct {
	BlockSize       uintptr
	CommitAlignment uintptr
}

func (e *ErrBlockSizeInvalid) Error() string {
	return fmt.Sprintf("block size %d is not a positive multiple of commit alignment %d", e.BlockSize, e.CommitAlignment)
}

// ErrPoolMisaligned indicates a pool start address that is not aligned for
// the guarantees Allocate makes.
type ErrPoolMisaligned struct {
	Start     uintptr
	Alignment uintptr
}

func (e *ErrPoolMisaligned) Error() string {
	return fmt.Sprintf("pool start %#x not aligned to %d", e.Start, e.Alignment)
}

// ErrBitmapTooSmall indicates a free-map buffer with fewer bytes than the
// block count requires.
type ErrBitmapTooSmall struct {
	Need int
	Got  int
}

func (e *ErrBitmapTooSmall) Error() string {
	return fmt.Sprintf("bitmap of %d bytes cannot track the pool, need %d", e.Got, e.Need)
}

// ErrReservationExceeded indicates a pool range that does not fit inside
// the backing reservation.
type ErrReservationExceeded struct {
	Offset      uintptr
	PoolSize    uintptr
	Reservation uintptr
}

func (e *ErrReservationExceeded) Error() string {
	return fmt.Sprintf("pool of %d bytes at offset %d exceeds reservation of %d bytes", e.PoolSize, e.Offset, e.Reservation)
}
