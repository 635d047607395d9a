package testutil

import (
	"math/rand"
	"sync"

	"github.com/golang/geo/r3"

	"github.com/hupe1980/loctree/geom"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// vecInCube returns a point uniform in the cube of the given half-extent.
// Caller must hold the lock.
func (r *RNG) vecInCube(extent float64) r3.Vector {
	return r3.Vector{
		X: (r.rand.Float64()*2 - 1) * extent,
		Y: (r.rand.Float64()*2 - 1) * extent,
		Z: (r.rand.Float64()*2 - 1) * extent,
	}
}

// UniformBoxes generates boxes with centers uniform in the world cube of
// the given half-extent and per-axis half-extents uniform in (0, maxExtent].
func (r *RNG) UniformBoxes(num int, worldExtent, maxExtent float64) []geom.Box {
	r.mu.Lock()
	defer r.mu.Unlock()

	boxes := make([]geom.Box, num)
	for i := range boxes {
		center := r.vecInCube(worldExtent)
		extent := r3.Vector{
			X: r.rand.Float64() * maxExtent,
			Y: r.rand.Float64() * maxExtent,
			Z: r.rand.Float64() * maxExtent,
		}
		boxes[i] = geom.NewBox(center, extent)
	}

	return boxes
}

// PointBoxes generates zero-extent boxes uniform in the world cube.
func (r *RNG) PointBoxes(num int, worldExtent float64) []geom.Box {
	r.mu.Lock()
	defer r.mu.Unlock()

	boxes := make([]geom.Box, num)
	for i := range boxes {
		boxes[i] = geom.NewBox(r.vecInCube(worldExtent), r3.Vector{})
	}

	return boxes
}

// ClusteredBoxes generates boxes gathered around random cluster seeds.
// Useful for exercising deep subdivision: a tight cluster forces splits
// down to the depth floor while the rest of the world stays sparse.
func (r *RNG) ClusteredBoxes(num, clusters int, worldExtent, spread, extent float64) []geom.Box {
	r.mu.Lock()
	defer r.mu.Unlock()

	seeds := make([]r3.Vector, clusters)
	for i := range seeds {
		seeds[i] = r.vecInCube(worldExtent * 0.8)
	}

	boxes := make([]geom.Box, num)
	for i := range boxes {
		seed := seeds[i%clusters]
		center := seed.Add(r.vecInCube(spread))
		boxes[i] = geom.NewBox(center, r3.Vector{X: extent, Y: extent, Z: extent})
	}

	return boxes
}

// BruteForceIntersect returns the indices of all boxes intersecting query,
// in input order. Used as ground truth for tree queries.
func BruteForceIntersect(boxes []geom.Box, query geom.Box) []int {
	var hits []int
	for i, b := range boxes {
		if b.Intersects(query) {
			hits = append(hits, i)
		}
	}
	return hits
}
