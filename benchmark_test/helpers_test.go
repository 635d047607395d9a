package benchmark_test

import (
	"testing"

	"github.com/golang/geo/r3"

	"github.com/hupe1980/loctree"
	"github.com/hupe1980/loctree/geom"
	"github.com/hupe1980/loctree/testutil"
)

const worldExtent = 1000

type benchItem struct {
	bounds geom.Box
	id     loctree.ElementID
}

type benchSemantics struct{}

func (benchSemantics) BoundingBox(it *benchItem) geom.Box               { return it.bounds }
func (benchSemantics) SetElementID(it *benchItem, id loctree.ElementID) { it.id = id }
func (benchSemantics) MaxElementsPerLeaf() int                          { return 16 }
func (benchSemantics) MinInclusiveElementsPerNode() int                 { return 8 }
func (benchSemantics) MaxNodeDepth() int                                { return 12 }

func newBenchTree(b *testing.B) *loctree.Octree[*benchItem, benchSemantics] {
	b.Helper()

	tree, err := loctree.New[*benchItem, benchSemantics](r3.Vector{}, worldExtent, benchSemantics{})
	if err != nil {
		b.Fatal(err)
	}

	return tree
}

// populatedBenchTree builds a tree holding n uniformly placed items and
// returns both, for benchmarks measuring steady-state behavior.
func populatedBenchTree(b *testing.B, n int) (*loctree.Octree[*benchItem, benchSemantics], []*benchItem) {
	b.Helper()

	tree := newBenchTree(b)

	rng := testutil.NewRNG(1)
	items := make([]*benchItem, 0, n)

	for _, box := range rng.UniformBoxes(n, worldExtent*0.95, 5) {
		it := &benchItem{bounds: box}
		items = append(items, it)
		tree.AddElement(it)
	}

	return tree, items
}

// sink defeats dead-code elimination of query results.
var sink int
