package testutil

import (
	"errors"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/loctree/geom"
)

func TestUniformBoxes(t *testing.T) {
	rng := NewRNG(4711)

	boxes := rng.UniformBoxes(64, 100, 2)

	assert.Equal(t, 64, len(boxes))
	for _, b := range boxes {
		for a := 0; a < 3; a++ {
			assert.LessOrEqual(t, b.Center[a], float32(100))
			assert.GreaterOrEqual(t, b.Center[a], float32(-100))
			assert.LessOrEqual(t, b.Extent[a], float32(2))
			assert.GreaterOrEqual(t, b.Extent[a], float32(0))
		}
		assert.Equal(t, float32(0), b.Center[3])
		assert.Equal(t, float32(0), b.Extent[3])
	}
}

func TestPointBoxes(t *testing.T) {
	rng := NewRNG(4711)

	boxes := rng.PointBoxes(16, 50)

	assert.Equal(t, 16, len(boxes))
	for _, b := range boxes {
		assert.Equal(t, [4]float32{}, b.Extent)
	}
}

func TestClusteredBoxes(t *testing.T) {
	rng := NewRNG(4711)

	boxes := rng.ClusteredBoxes(100, 4, 100, 0.5, 0.1)

	assert.Equal(t, 100, len(boxes))

	// Elements of one cluster stay within spread of their shared seed.
	for i := 4; i < 100; i++ {
		peer := boxes[i%4]
		for a := 0; a < 3; a++ {
			assert.InDelta(t, peer.Center[a], boxes[i].Center[a], 1.01)
		}
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	b1 := rng.UniformBoxes(8, 100, 1)

	rng.Reset()
	b2 := rng.UniformBoxes(8, 100, 1)

	assert.Equal(t, b1, b2)
}

func TestBruteForceIntersect(t *testing.T) {
	boxes := []geom.Box{
		geom.BoxFromMinMax(r3.Vector{}, r3.Vector{X: 2, Y: 2, Z: 2}),
		geom.BoxFromMinMax(r3.Vector{X: 10, Y: 10, Z: 10}, r3.Vector{X: 12, Y: 12, Z: 12}),
		geom.BoxFromMinMax(r3.Vector{X: 1, Y: 1, Z: 1}, r3.Vector{X: 3, Y: 3, Z: 3}),
	}

	query := geom.BoxFromMinMax(r3.Vector{X: 1.5, Y: 1.5, Z: 1.5}, r3.Vector{X: 2.5, Y: 2.5, Z: 2.5})

	assert.Equal(t, []int{0, 2}, BruteForceIntersect(boxes, query))
	assert.Nil(t, BruteForceIntersect(boxes, geom.BoxFromMinMax(r3.Vector{X: 50, Y: 50, Z: 50}, r3.Vector{X: 51, Y: 51, Z: 51})))
}

func TestRecordingVM(t *testing.T) {
	vm := NewRecordingVM(1<<16, 4096)

	assert.Equal(t, uintptr(0), uintptr(vm.Start())%16)
	assert.Equal(t, uintptr(1<<16), vm.Size())

	require.NoError(t, vm.Commit(0, 4096))
	require.NoError(t, vm.Decommit(0, 4096))

	// Misaligned and out-of-range calls fail.
	assert.Error(t, vm.Commit(100, 4096))
	assert.Error(t, vm.Commit(0, uintptr(1<<17)))

	require.Equal(t, 2, len(vm.Calls))
	assert.Equal(t, VMCall{Op: "commit", Offset: 0, Size: 4096}, vm.Calls[0])
	assert.Equal(t, VMCall{Op: "decommit", Offset: 0, Size: 4096}, vm.Calls[1])

	assert.Equal(t, 1, len(vm.CallsOf("commit")))

	vm.CommitErr = errors.New("no pages")
	assert.Error(t, vm.Commit(0, 4096))

	vm.ResetCalls()
	assert.Nil(t, vm.Calls)
}
