package blockpool

import (
	"errors"
	"os"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/loctree"
	"github.com/hupe1980/loctree/internal/bitvec"
	"github.com/hupe1980/loctree/resource"
	"github.com/hupe1980/loctree/testutil"
)

const testBlockSize = 4096

func newTestPool(t *testing.T, numBlocks uint32, optFns ...Option) (*Pool, *testutil.RecordingVM) {
	t.Helper()

	vm := testutil.NewRecordingVM(uintptr(numBlocks)*testBlockSize, testBlockSize)
	bitmap := make([]byte, bitvec.Bytes(int(numBlocks)))

	pool, err := New(testBlockSize, vm.Start(), numBlocks, bitmap, vm, optFns...)
	require.NoError(t, err)

	// Drop the construction-time decommit from the call log.
	vm.ResetCalls()

	return pool, vm
}

func TestNewPool(t *testing.T) {
	t.Run("DecommitsWholeRange", func(t *testing.T) {
		vm := testutil.NewRecordingVM(8*testBlockSize, testBlockSize)
		bitmap := make([]byte, bitvec.Bytes(8))

		pool, err := New(testBlockSize, vm.Start(), 8, bitmap, vm)
		require.NoError(t, err)

		assert.Equal(t, []testutil.VMCall{{Op: "decommit", Offset: 0, Size: 8 * testBlockSize}}, vm.Calls)
		assert.True(t, pool.IsEmpty())
		assert.Equal(t, 8, pool.NumFreeBlocks())
		assert.Equal(t, uintptr(testBlockSize), pool.BlockSize())
	})

	t.Run("NilVirtualMemory", func(t *testing.T) {
		_, err := New(testBlockSize, nil, 8, make([]byte, 1), nil)
		assert.ErrorIs(t, err, ErrNilVirtualMemory)
	})

	t.Run("ZeroBlocks", func(t *testing.T) {
		vm := testutil.NewRecordingVM(testBlockSize, testBlockSize)

		_, err := New(testBlockSize, vm.Start(), 0, make([]byte, 1), vm)
		assert.ErrorIs(t, err, ErrNoBlocks)
	})

	t.Run("BlockSizeInvalid", func(t *testing.T) {
		vm := testutil.NewRecordingVM(8*testBlockSize, testBlockSize)
		bitmap := make([]byte, 1)

		for _, blockSize := range []uintptr{0, 24, testBlockSize + 16} {
			_, err := New(blockSize, vm.Start(), 8, bitmap, vm)

			var invalid *ErrBlockSizeInvalid
			assert.True(t, errors.As(err, &invalid), "block size %d", blockSize)
		}
	})

	t.Run("ReservationExceeded", func(t *testing.T) {
		vm := testutil.NewRecordingVM(2*testBlockSize, testBlockSize)

		_, err := New(testBlockSize, vm.Start(), 3, make([]byte, 1), vm)

		var exceeded *ErrReservationExceeded
		require.True(t, errors.As(err, &exceeded))
		assert.Equal(t, uintptr(3*testBlockSize), exceeded.PoolSize)
	})

	t.Run("PoolMisaligned", func(t *testing.T) {
		vm := testutil.NewRecordingVM(1024, 64)

		// 16-byte aligned start that is not commit-aligned within the
		// reservation.
		_, err := New(64, unsafe.Add(vm.Start(), 16), 4, make([]byte, 1), vm)

		var misaligned *ErrPoolMisaligned
		assert.True(t, errors.As(err, &misaligned))
	})

	t.Run("BitmapTooSmall", func(t *testing.T) {
		vm := testutil.NewRecordingVM(16*testBlockSize, testBlockSize)

		_, err := New(testBlockSize, vm.Start(), 16, make([]byte, 1), vm)

		var small *ErrBitmapTooSmall
		require.True(t, errors.As(err, &small))
		assert.Equal(t, 2, small.Need)
		assert.Equal(t, 1, small.Got)
	})
}

func TestPool(t *testing.T) {
	t.Run("FillAndDrain", func(t *testing.T) {
		pool, _ := newTestPool(t, 8)

		ptrs := make([]unsafe.Pointer, 8)
		for i := range ptrs {
			ptrs[i] = pool.Allocate(testBlockSize)
			require.NotNil(t, ptrs[i], "block %d", i)
		}

		// Blocks are handed out lowest-address first.
		for i := 1; i < 8; i++ {
			assert.Equal(t, uintptr(ptrs[i-1])+testBlockSize, uintptr(ptrs[i]))
		}

		assert.Nil(t, pool.Allocate(testBlockSize))
		assert.Equal(t, 0, pool.NumFreeBlocks())

		// A freed block is the next one handed out.
		pool.Free(ptrs[2], testBlockSize)
		assert.Equal(t, ptrs[2], pool.Allocate(testBlockSize))

		for _, p := range ptrs {
			pool.Free(p, testBlockSize)
		}
		assert.True(t, pool.IsEmpty())
	})

	t.Run("LowestFreeBlockFirst", func(t *testing.T) {
		pool, _ := newTestPool(t, 8)

		ptrs := make([]unsafe.Pointer, 4)
		for i := range ptrs {
			ptrs[i] = pool.Allocate(testBlockSize)
		}

		pool.Free(ptrs[3], testBlockSize)
		pool.Free(ptrs[1], testBlockSize)

		assert.Equal(t, ptrs[1], pool.Allocate(testBlockSize))
		assert.Equal(t, ptrs[3], pool.Allocate(testBlockSize))
	})

	t.Run("UsefulAndOverheadSizes", func(t *testing.T) {
		pool, _ := newTestPool(t, 8)

		p := pool.Allocate(100)
		require.NotNil(t, p)

		assert.Equal(t, uintptr(100), pool.UsefulMemorySize())
		assert.Equal(t, uintptr(testBlockSize-100), pool.OverheadSize())
		assert.Equal(t, uintptr(7*testBlockSize), pool.AllocatableMemorySize())

		q := pool.Allocate(testBlockSize)
		require.NotNil(t, q)

		assert.Equal(t, uintptr(100+testBlockSize), pool.UsefulMemorySize())
		assert.Equal(t, uintptr(testBlockSize-100), pool.OverheadSize())

		pool.Free(p, 100)

		assert.Equal(t, uintptr(testBlockSize), pool.UsefulMemorySize())
		assert.Equal(t, uintptr(0), pool.OverheadSize())
	})

	t.Run("DoubleFreePanics", func(t *testing.T) {
		pool, _ := newTestPool(t, 8)

		p := pool.Allocate(64)
		require.NotNil(t, p)

		pool.Free(p, 64)

		assert.Panics(t, func() {
			pool.Free(p, 64)
		})
	})

	t.Run("ForeignPointerPanics", func(t *testing.T) {
		pool, vm := newTestPool(t, 8)

		var local byte
		assert.Panics(t, func() {
			pool.Free(unsafe.Pointer(&local), 64)
		})

		// In range but off a block boundary.
		require.NotNil(t, pool.Allocate(testBlockSize))
		assert.Panics(t, func() {
			pool.Free(unsafe.Add(vm.Start(), 100), 64)
		})
	})

	t.Run("OversizedRequestPanics", func(t *testing.T) {
		pool, _ := newTestPool(t, 8)

		assert.True(t, pool.CanAllocate(testBlockSize))
		assert.False(t, pool.CanAllocate(testBlockSize+1))

		assert.Panics(t, func() {
			pool.Allocate(testBlockSize + 1)
		})
	})

	t.Run("ZeroSizeAllocation", func(t *testing.T) {
		pool, _ := newTestPool(t, 8)

		p := pool.Allocate(0)
		require.NotNil(t, p)

		assert.Equal(t, uintptr(0), pool.UsefulMemorySize())
		assert.Equal(t, uintptr(testBlockSize), pool.OverheadSize())

		pool.Free(p, 0)
		assert.True(t, pool.IsEmpty())
	})

	t.Run("CommitGranularity", func(t *testing.T) {
		vm := testutil.NewRecordingVM(4*testBlockSize, 1024)
		bitmap := make([]byte, bitvec.Bytes(4))

		collector := &loctree.BasicMetricsCollector{}

		pool, err := New(testBlockSize, vm.Start(), 4, bitmap, vm, WithMetricsCollector(collector))
		require.NoError(t, err)
		vm.ResetCalls()

		// Only the pages covering the request are committed.
		require.NotNil(t, pool.Allocate(100))
		require.NotNil(t, pool.Allocate(3000))

		assert.Equal(t, []testutil.VMCall{
			{Op: "commit", Offset: 0, Size: 1024},
			{Op: "commit", Offset: testBlockSize, Size: 3072},
		}, vm.Calls)

		stats := collector.GetStats()
		assert.Equal(t, int64(3100), stats.AllocRequested)
		assert.Equal(t, int64(4096), stats.AllocCommitted)
	})

	t.Run("FreeDecommitsWholeBlock", func(t *testing.T) {
		pool, vm := newTestPool(t, 8)

		p := pool.Allocate(100)
		require.NotNil(t, p)

		pool.Free(p, 100)

		assert.Equal(t, []testutil.VMCall{
			{Op: "commit", Offset: 0, Size: testBlockSize},
			{Op: "decommit", Offset: 0, Size: testBlockSize},
		}, vm.Calls)
	})

	t.Run("CommitFailureLeavesPoolUnchanged", func(t *testing.T) {
		collector := &loctree.BasicMetricsCollector{}
		pool, vm := newTestPool(t, 8, WithMetricsCollector(collector))

		vm.CommitErr = errors.New("out of commit charge")

		assert.Nil(t, pool.Allocate(testBlockSize))
		assert.True(t, pool.IsEmpty())
		assert.Equal(t, int64(1), collector.GetStats().CommitFailures)

		// The failed block is immediately reusable.
		vm.CommitErr = nil
		p := pool.Allocate(testBlockSize)
		require.NotNil(t, p)
		assert.Equal(t, vm.Start(), p)
	})

	t.Run("GovernorBudget", func(t *testing.T) {
		collector := &loctree.BasicMetricsCollector{}
		governor := resource.NewGovernor(resource.Config{CommitLimitBytes: 2 * testBlockSize})

		pool, _ := newTestPool(t, 8, WithGovernor(governor), WithMetricsCollector(collector))

		p0 := pool.Allocate(testBlockSize)
		p1 := pool.Allocate(testBlockSize)
		require.NotNil(t, p0)
		require.NotNil(t, p1)

		// The third commit exceeds the shared budget; the pool rolls the
		// block back.
		assert.Nil(t, pool.Allocate(testBlockSize))
		assert.Equal(t, int64(2*testBlockSize), governor.InUse())
		assert.Equal(t, 6, pool.NumFreeBlocks())
		assert.Equal(t, int64(1), collector.GetStats().CommitFailures)

		pool.Free(p0, testBlockSize)
		assert.Equal(t, int64(testBlockSize), governor.InUse())

		p2 := pool.Allocate(testBlockSize)
		require.NotNil(t, p2)
		assert.Equal(t, p0, p2)
	})

	t.Run("Contains", func(t *testing.T) {
		pool, vm := newTestPool(t, 8)

		assert.True(t, pool.Contains(vm.Start(), 100))
		assert.True(t, pool.Contains(unsafe.Add(vm.Start(), 7*testBlockSize), testBlockSize))
		assert.False(t, pool.Contains(unsafe.Add(vm.Start(), 8*testBlockSize), 1))
		assert.False(t, pool.Contains(vm.Start(), testBlockSize+1))

		var local byte
		assert.False(t, pool.Contains(unsafe.Pointer(&local), 1))
	})

	t.Run("Stats", func(t *testing.T) {
		pool, _ := newTestPool(t, 8)

		require.NotNil(t, pool.Allocate(100))
		require.NotNil(t, pool.Allocate(testBlockSize))

		s := pool.Stats()

		assert.Equal(t, 8, s.Blocks)
		assert.Equal(t, 6, s.FreeBlocks)
		assert.Equal(t, uintptr(testBlockSize), s.BlockSize)
		assert.Equal(t, uintptr(100+testBlockSize), s.UsefulBytes)
		assert.Equal(t, uintptr(testBlockSize-100), s.OverheadBytes)
		assert.Equal(t, uintptr(6*testBlockSize), s.AllocatableBytes)

		assert.Contains(t, s.String(), "2/8 blocks")
	})
}

func TestNewWithReservation(t *testing.T) {
	blockSize := uintptr(os.Getpagesize())

	pool, err := NewWithReservation(blockSize, 4, WithName("test"))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, pool.Close())
	}()

	p := pool.Allocate(64)
	require.NotNil(t, p)

	// Freshly committed pages read as zero and are writable.
	buf := unsafe.Slice((*byte)(p), 64)
	assert.Equal(t, make([]byte, 64), buf)
	for i := range buf {
		buf[i] = byte(i)
	}

	q := pool.Allocate(blockSize)
	require.NotNil(t, q)
	assert.Equal(t, uintptr(p)+blockSize, uintptr(q))

	pool.Free(q, blockSize)
	pool.Free(p, 64)
	assert.True(t, pool.IsEmpty())
}

func TestCloseWithoutReservation(t *testing.T) {
	pool, _ := newTestPool(t, 2)
	assert.NoError(t, pool.Close())
}
