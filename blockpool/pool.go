package blockpool

import (
	"fmt"
	"unsafe"

	"github.com/dustin/go-humanize"

	"github.com/hupe1980/loctree"
	"github.com/hupe1980/loctree/internal/bitvec"
	"github.com/hupe1980/loctree/internal/sanity"
	"github.com/hupe1980/loctree/internal/vmem"
	"github.com/hupe1980/loctree/resource"
)

// RequiredAlignment is the minimum alignment of every pointer Allocate
// returns. Pool start and block size must both be multiples of it.
const RequiredAlignment = 16

// Pool hands out fixed-size blocks from a reserved virtual range, with
// physical pages committed only while a block is in use. A free bitmap
// (1 = free) is scanned word-at-a-time for the lowest free block, so
// allocations cluster at the low end of the range and the committed
// footprint stays dense.
//
// A pool is not safe for concurrent use.
type Pool struct {
	vm VirtualMemory

	blockSize  uintptr
	numBlocks  uint32
	baseOffset uintptr // pool start relative to the reservation start
	start      uintptr // first block address

	// bitmap holds one bit per block, 1 meaning free. Trailing padding
	// bits stay 0 so word scans never yield a phantom block.
	bitmap []byte

	freeBlocks uint32
	usefulSize uintptr

	owned *vmem.Block // reservation created by NewWithReservation, if any

	logger   *loctree.Logger
	metrics  loctree.MetricsCollector
	governor *resource.Governor

	trip sanity.Tripwire
}

// New wraps a caller-supplied range of numBlocks*blockSize bytes inside
// vm's reservation. The block size must be a positive multiple of both
// RequiredAlignment and vm's commit alignment; poolStart must be aligned
// the same way. The bitmap buffer needs at least one bit per block and is
// owned by the pool afterwards.
//
// The whole range is decommitted and every block marked free.
func New(blockSize uintptr, poolStart unsafe.Pointer, numBlocks uint32, bitmap []byte, vm VirtualMemory, optFns ...Option) (*Pool, error) {
	if vm == nil {
		return nil, ErrNilVirtualMemory
	}

	if numBlocks == 0 {
		return nil, ErrNoBlocks
	}

	align := vm.CommitAlignment()

	if blockSize == 0 || blockSize%RequiredAlignment != 0 || blockSize%align != 0 {
		return nil, &ErrBlockSizeInvalid{BlockSize: blockSize, CommitAlignment: align}
	}

	start := uintptr(poolStart)
	vmStart := uintptr(vm.Start())
	poolSize := uintptr(numBlocks) * blockSize

	if start < vmStart {
		return nil, &ErrReservationExceeded{PoolSize: poolSize, Reservation: vm.Size()}
	}

	baseOffset := start - vmStart

	if baseOffset+poolSize > vm.Size() {
		return nil, &ErrReservationExceeded{Offset: baseOffset, PoolSize: poolSize, Reservation: vm.Size()}
	}

	if start%RequiredAlignment != 0 {
		return nil, &ErrPoolMisaligned{Start: start, Alignment: RequiredAlignment}
	}

	if baseOffset%align != 0 {
		return nil, &ErrPoolMisaligned{Start: start, Alignment: align}
	}

	if need := bitvec.Bytes(int(numBlocks)); len(bitmap) < need {
		return nil, &ErrBitmapTooSmall{Need: need, Got: len(bitmap)}
	}

	if err := vm.Decommit(baseOffset, poolSize); err != nil {
		return nil, fmt.Errorf("decommit pool range: %w", err)
	}

	bitvec.Init(bitmap, int(numBlocks))

	opts := applyOptions(optFns)

	return &Pool{
		vm:         vm,
		blockSize:  blockSize,
		numBlocks:  numBlocks,
		baseOffset: baseOffset,
		start:      start,
		bitmap:     bitmap,
		freeBlocks: numBlocks,
		logger:     opts.logger,
		metrics:    opts.metricsCollector,
		governor:   opts.governor,
	}, nil
}

// NewWithReservation reserves a fresh virtual range sized for
// numBlocks*blockSize bytes, allocates the bitmap, and builds a pool over
// it. The pool owns the reservation; release it with Close.
func NewWithReservation(blockSize uintptr, numBlocks uint32, optFns ...Option) (*Pool, error) {
	if numBlocks == 0 {
		return nil, ErrNoBlocks
	}

	block, err := vmem.Reserve(blockSize * uintptr(numBlocks))
	if err != nil {
		return nil, fmt.Errorf("reserve pool range: %w", err)
	}

	bitmap := make([]byte, bitvec.Bytes(int(numBlocks)))

	p, err := New(blockSize, block.Start(), numBlocks, bitmap, block, optFns...)
	if err != nil {
		_ = block.Release()
		return nil, err
	}

	p.owned = block

	return p, nil
}

// Close releases the reservation created by NewWithReservation. For pools
// wrapping caller-owned memory it does nothing. The pool must not be used
// afterwards.
func (p *Pool) Close() error {
	if p.owned == nil {
		return nil
	}
	return p.owned.Release()
}

func (p *Pool) end() uintptr {
	return p.start + uintptr(p.numBlocks)*p.blockSize
}

// commitSize rounds a requested size up to the commit granularity.
func (p *Pool) commitSize(requested uintptr) uintptr {
	align := p.vm.CommitAlignment()
	return (requested + align - 1) / align * align
}

// Allocate claims the lowest free block, commits the first pages covering
// requestedSize bytes of it, and returns the block's start. It returns nil
// when the pool is full, when an attached governor denies the commit
// budget, or when the operating system refuses to commit; the pool is
// unchanged in all three cases.
//
// requestedSize must not exceed the block size.
func (p *Pool) Allocate(requestedSize uintptr) unsafe.Pointer {
	p.trip.Enter()
	defer p.trip.Exit()

	if requestedSize > p.blockSize {
		panic(fmt.Sprintf("blockpool: allocation of %d exceeds block size %d", requestedSize, p.blockSize))
	}

	index := bitvec.AcquireLowest(p.bitmap, int(p.numBlocks))
	if index < 0 {
		return nil
	}

	committed := p.commitSize(requestedSize)

	if !p.governor.TryReserve(int64(committed)) {
		bitvec.Set(p.bitmap, index)
		p.logger.Warn("commit budget exhausted", "block", index, "committed", committed)
		p.metrics.RecordCommitFailure()

		return nil
	}

	offset := p.baseOffset + uintptr(index)*p.blockSize

	if err := p.vm.Commit(offset, committed); err != nil {
		bitvec.Set(p.bitmap, index)
		p.governor.Release(int64(committed))
		p.logger.LogCommitFailure(index, committed, err)
		p.metrics.RecordCommitFailure()

		return nil
	}

	p.freeBlocks--
	p.usefulSize += requestedSize

	p.sanityCheckCounts()

	p.logger.LogAlloc(index, requestedSize)
	p.metrics.RecordAlloc(requestedSize, committed)

	return unsafe.Add(p.vm.Start(), offset)
}

// Free returns a block to the pool and decommits its backing pages.
// requestedSize must repeat the size passed to the Allocate that produced
// ptr. The pointer must come from this pool and sit on a block boundary;
// freeing a block twice panics.
//
// The bit is marked free before the pages are dropped, so the bitmap never
// understates what is allocatable.
func (p *Pool) Free(ptr unsafe.Pointer, requestedSize uintptr) {
	p.trip.Enter()
	defer p.trip.Exit()

	addr := uintptr(ptr)

	if addr < p.start || addr >= p.end() {
		panic(fmt.Sprintf("blockpool: pointer %#x not from this pool", addr))
	}

	rel := addr - p.start

	if rel%p.blockSize != 0 {
		panic(fmt.Sprintf("blockpool: pointer %#x not at a block boundary", addr))
	}

	index := int(rel / p.blockSize)

	if bitvec.Test(p.bitmap, index) {
		panic(fmt.Sprintf("blockpool: double free of block %d", index))
	}

	bitvec.Set(p.bitmap, index)
	p.freeBlocks++
	p.usefulSize -= requestedSize

	if err := p.vm.Decommit(p.baseOffset+rel, p.blockSize); err != nil {
		// The block is already free for reuse; the next Allocate
		// re-commits whatever stayed resident.
		p.logger.Error("decommit failed, pages stay resident", "block", index, "error", err)
	}

	p.governor.Release(int64(p.commitSize(requestedSize)))

	p.sanityCheckCounts()

	p.logger.LogFree(index)
	p.metrics.RecordFree(requestedSize)
}

// sanityCheckCounts cross-checks the free counter against a bitmap
// popcount in sanity builds. Compiles to nothing otherwise.
func (p *Pool) sanityCheckCounts() {
	if sanity.Enabled {
		if n := bitvec.Count(p.bitmap, int(p.numBlocks)); n != int(p.freeBlocks) {
			panic(fmt.Sprintf("blockpool: free counter %d, bitmap holds %d", p.freeBlocks, n))
		}
	}
}

// CanAllocate reports whether a request of the given size fits in one
// block. It does not consult occupancy.
func (p *Pool) CanAllocate(size uintptr) bool {
	return size <= p.blockSize
}

// Contains reports whether an allocation of size bytes at ptr lies within
// this pool's range.
func (p *Pool) Contains(ptr unsafe.Pointer, size uintptr) bool {
	addr := uintptr(ptr)
	return addr >= p.start && addr < p.end() && size <= p.blockSize
}

// IsEmpty reports whether no blocks are allocated.
func (p *Pool) IsEmpty() bool {
	return p.freeBlocks == p.numBlocks
}

// NumBlocks returns the pool's capacity in blocks.
func (p *Pool) NumBlocks() int {
	return int(p.numBlocks)
}

// NumFreeBlocks returns how many blocks are currently free.
func (p *Pool) NumFreeBlocks() int {
	return int(p.freeBlocks)
}

// BlockSize returns the fixed size of every block.
func (p *Pool) BlockSize() uintptr {
	return p.blockSize
}

// UsefulMemorySize returns the sum of the requested sizes of all
// outstanding allocations.
func (p *Pool) UsefulMemorySize() uintptr {
	return p.usefulSize
}

// AllocatableMemorySize returns the capacity still available, in bytes.
func (p *Pool) AllocatableMemorySize() uintptr {
	return uintptr(p.freeBlocks) * p.blockSize
}

// OverheadSize returns the bytes claimed by outstanding allocations beyond
// what their callers asked for.
func (p *Pool) OverheadSize() uintptr {
	return uintptr(p.numBlocks-p.freeBlocks)*p.blockSize - p.usefulSize
}

// Stats describes pool occupancy at a point in time.
type Stats struct {
	Blocks           int
	FreeBlocks       int
	BlockSize        uintptr
	UsefulBytes      uintptr
	OverheadBytes    uintptr
	AllocatableBytes uintptr
}

func (s Stats) String() string {
	return fmt.Sprintf("%d/%d blocks of %s used, useful %s, overhead %s, allocatable %s",
		s.Blocks-s.FreeBlocks,
		s.Blocks,
		humanize.IBytes(uint64(s.BlockSize)),
		humanize.IBytes(uint64(s.UsefulBytes)),
		humanize.IBytes(uint64(s.OverheadBytes)),
		humanize.IBytes(uint64(s.AllocatableBytes)),
	)
}

// Stats returns a snapshot of pool occupancy.
func (p *Pool) Stats() Stats {
	return Stats{
		Blocks:           p.NumBlocks(),
		FreeBlocks:       p.NumFreeBlocks(),
		BlockSize:        p.blockSize,
		UsefulBytes:      p.usefulSize,
		OverheadBytes:    p.OverheadSize(),
		AllocatableBytes: p.AllocatableMemorySize(),
	}
}

// DumpStats logs a snapshot of pool occupancy at info level.
func (p *Pool) DumpStats() {
	s := p.Stats()
	p.logger.Info("pool stats",
		"blocks", s.Blocks,
		"free_blocks", s.FreeBlocks,
		"block_size", s.BlockSize,
		"useful", humanize.IBytes(uint64(s.UsefulBytes)),
		"overhead", humanize.IBytes(uint64(s.OverheadBytes)),
	)
}
