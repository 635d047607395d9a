package loctree

import (
	"fmt"
	"unsafe"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/stat"
)

// Stats describes the shape and memory footprint of the tree at a point in
// time. Collecting it walks every reachable node.
type Stats struct {
	// Elements is the stored element count.
	Elements int

	// Nodes counts reachable nodes; AllocatedNodes additionally counts
	// records parked on the free list.
	Nodes          int
	AllocatedNodes int

	Leaves     int
	Depth      int // deepest reachable node, root = 0
	FreeGroups int

	// LeafMean and LeafStdDev summarize the direct population of
	// reachable leaves.
	LeafMean   float64
	LeafStdDev float64

	// Histogram[i] counts reachable nodes holding i direct elements; the
	// last bucket aggregates everything at or above MaxElementsPerLeaf.
	Histogram []int

	FootprintBytes uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("%s elements in %s nodes (%d leaves, depth %d), %d free groups, leaf population %.1f (stddev %.1f), footprint %s",
		humanize.Comma(int64(s.Elements)),
		humanize.Comma(int64(s.Nodes)),
		s.Leaves,
		s.Depth,
		s.FreeGroups,
		s.LeafMean,
		s.LeafStdDev,
		humanize.IBytes(s.FootprintBytes),
	)
}

// Stats walks the tree and returns a snapshot of its shape.
func (o *Octree[T, S]) Stats() Stats {
	s := Stats{
		Elements:       o.Len(),
		AllocatedNodes: len(o.nodes),
		FreeGroups:     o.free.Len(),
		Histogram:      make([]int, o.maxPerLeaf+1),
	}

	var leafPops []float64
	o.statsWalk(0, 0, &s, &leafPops)

	if len(leafPops) > 0 {
		s.LeafMean = stat.Mean(leafPops, nil)
	}
	if len(leafPops) > 1 {
		s.LeafStdDev = stat.StdDev(leafPops, nil)
	}

	s.FootprintBytes = o.footprint()

	return s
}

func (o *Octree[T, S]) statsWalk(node uint32, depth int, s *Stats, leafPops *[]float64) {
	s.Nodes++
	if depth > s.Depth {
		s.Depth = depth
	}

	population := len(o.elements[node])

	bucket := population
	if bucket >= len(s.Histogram) {
		bucket = len(s.Histogram) - 1
	}
	s.Histogram[bucket]++

	if o.nodes[node].isLeaf() {
		s.Leaves++
		*leafPops = append(*leafPops, float64(population))

		return
	}

	first := o.nodes[node].children
	for i := uint32(0); i < 8; i++ {
		o.statsWalk(first+i, depth+1, s, leafPops)
	}
}

// footprint estimates the bytes held by node storage, element lists, and
// parent links, counting capacity rather than length.
func (o *Octree[T, S]) footprint() uint64 {
	var t T
	elemSize := uint64(unsafe.Sizeof(t))

	bytes := uint64(cap(o.nodes)) * uint64(unsafe.Sizeof(treeNode{}))
	bytes += uint64(cap(o.parentLinks)) * uint64(unsafe.Sizeof(uint32(0)))
	bytes += uint64(cap(o.elements)) * uint64(unsafe.Sizeof([]T(nil)))

	for _, list := range o.elements {
		bytes += uint64(cap(list)) * elemSize
	}

	return bytes
}

// DumpStats collects a snapshot and logs it at info level.
func (o *Octree[T, S]) DumpStats() {
	o.logger.LogStats(o.Stats())
}
