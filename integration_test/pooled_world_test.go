package loctree_test

import (
	"os"
	"testing"
	"unsafe"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/loctree"
	"github.com/hupe1980/loctree/blockpool"
	"github.com/hupe1980/loctree/geom"
	"github.com/hupe1980/loctree/resource"
	"github.com/hupe1980/loctree/testutil"
)

// pawn is a world entity whose payload lives in pool-backed memory instead
// of the Go heap.
type pawn struct {
	bounds  geom.Box
	payload unsafe.Pointer
	size    uintptr
	id      loctree.ElementID
}

type pawnSemantics struct{}

func (pawnSemantics) BoundingBox(p *pawn) geom.Box               { return p.bounds }
func (pawnSemantics) SetElementID(p *pawn, id loctree.ElementID) { p.id = id }
func (pawnSemantics) MaxElementsPerLeaf() int                    { return 4 }
func (pawnSemantics) MinInclusiveElementsPerNode() int           { return 2 }
func (pawnSemantics) MaxNodeDepth() int                          { return 8 }

// TestPooledPayloads drives the octree and a block pool together: every
// stored entity owns a pool block, spatial removal releases it, and a
// shared governor keeps the committed total in sight.
func TestPooledPayloads(t *testing.T) {
	const numPawns = 32

	blockSize := uintptr(os.Getpagesize())

	governor := resource.NewGovernor(resource.Config{
		CommitLimitBytes: int64(blockSize) * numPawns,
	})

	pool, err := blockpool.NewWithReservation(blockSize, numPawns, blockpool.WithName("payloads"), blockpool.WithGovernor(governor))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, pool.Close())
	}()

	tree, err := loctree.New[*pawn, pawnSemantics](r3.Vector{}, 500, pawnSemantics{})
	require.NoError(t, err)

	rng := testutil.NewRNG(5)

	pawns := make([]*pawn, 0, numPawns)
	for i, b := range rng.UniformBoxes(numPawns, 450, 4) {
		payload := pool.Allocate(128)
		require.NotNil(t, payload)

		// Stamp the payload so reads through query results can be
		// checked against the owning pawn.
		buf := unsafe.Slice((*byte)(payload), 128)
		for j := range buf {
			buf[j] = byte(i)
		}

		p := &pawn{bounds: b, payload: payload, size: 128}
		pawns = append(pawns, p)
		tree.AddElement(p)
	}

	require.NoError(t, tree.Audit())
	assert.Equal(t, int64(blockSize)*numPawns, governor.InUse())
	assert.Equal(t, 0, pool.NumFreeBlocks())

	// Payloads read back intact through a spatial query.
	seen := 0
	tree.FindElementsWithBoundsTest(geom.NewBox(r3.Vector{}, r3.Vector{X: 500, Y: 500, Z: 500}), func(p *pawn) {
		seen++

		idx := -1
		for i, q := range pawns {
			if q == p {
				idx = i
				break
			}
		}
		require.GreaterOrEqual(t, idx, 0)

		buf := unsafe.Slice((*byte)(p.payload), int(p.size))
		assert.Equal(t, byte(idx), buf[0])
		assert.Equal(t, byte(idx), buf[127])
	})
	assert.Equal(t, numPawns, seen)

	// Despawning half the pawns returns their blocks and budget.
	for _, p := range pawns[:numPawns/2] {
		tree.RemoveElement(p.id)
		pool.Free(p.payload, p.size)
	}

	require.NoError(t, tree.Audit())
	assert.Equal(t, numPawns/2, tree.Len())
	assert.Equal(t, numPawns/2, pool.NumFreeBlocks())
	assert.Equal(t, int64(blockSize)*numPawns/2, governor.InUse())

	// Respawned pawns reuse the freed low blocks.
	payload := pool.Allocate(64)
	require.NotNil(t, payload)
	assert.True(t, pool.Contains(payload, 64))

	pool.Free(payload, 64)

	for _, p := range pawns[numPawns/2:] {
		tree.RemoveElement(p.id)
		pool.Free(p.payload, p.size)
	}

	assert.True(t, pool.IsEmpty())
	assert.Equal(t, int64(0), governor.InUse())
	assert.Equal(t, 0, tree.Len())
}
