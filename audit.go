package loctree

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/loctree/geom"
)

// Audit validates the structural invariants of the tree and returns an
// ErrCorruptTree describing the first violation found, or nil. It checks
// that child links are group-aligned and acyclic, that parent links agree
// with child links, that inclusive counts match the elements actually
// stored below each node, that elements at interior nodes genuinely
// straddle their children, and that reachable and free child groups
// partition the allocated groups.
//
// Audit exists for tests and debugging; regular operations assume an intact
// tree and never call it.
func (o *Octree[T, S]) Audit() error {
	if len(o.nodes) != len(o.elements) {
		return &ErrCorruptTree{Reason: fmt.Sprintf("node array length %d, element array length %d", len(o.nodes), len(o.elements))}
	}

	numGroups := uint32(len(o.parentLinks))

	if uint32(len(o.nodes)) != 1+8*numGroups {
		return &ErrCorruptTree{Reason: fmt.Sprintf("%d nodes cannot hold %d child groups", len(o.nodes), numGroups)}
	}

	reachable := roaring.New()

	if _, err := o.auditNode(0, o.rootContext(), reachable, numGroups); err != nil {
		return err
	}

	free := roaring.New()

	for g := range o.free.All() {
		if g >= numGroups {
			return &ErrCorruptTree{Reason: fmt.Sprintf("free list holds group %d of %d", g, numGroups)}
		}

		if !free.CheckedAdd(g) {
			return &ErrCorruptTree{Reason: fmt.Sprintf("group %d freed twice", g)}
		}

		if err := o.auditFreeGroup(g); err != nil {
			return err
		}
	}

	if both := roaring.And(reachable, free); !both.IsEmpty() {
		return &ErrCorruptTree{Reason: fmt.Sprintf("group %d both reachable and free", both.Minimum())}
	}

	if seen := roaring.Or(reachable, free); seen.GetCardinality() != uint64(numGroups) {
		return &ErrCorruptTree{Reason: fmt.Sprintf("%d of %d groups neither reachable nor free", uint64(numGroups)-seen.GetCardinality(), numGroups)}
	}

	return nil
}

// auditNode validates the subtree rooted at node and returns the number of
// elements it stores.
func (o *Octree[T, S]) auditNode(node uint32, ctx geom.NodeContext, reachable *roaring.Bitmap, numGroups uint32) (uint32, error) {
	rec := o.nodes[node]
	direct := uint32(len(o.elements[node]))

	if rec.isLeaf() {
		if rec.inclusiveCount != direct {
			return 0, &ErrCorruptTree{Node: node, Reason: fmt.Sprintf("leaf inclusive count %d, holds %d", rec.inclusiveCount, direct)}
		}

		return direct, nil
	}

	// An element kept at an interior node must straddle its children;
	// anything fully containable in one child should have descended.
	for i, e := range o.elements[node] {
		if r := ctx.ContainingChild(o.sem.BoundingBox(e)); !r.IsNull() {
			return 0, &ErrCorruptTree{Node: node, Reason: fmt.Sprintf("element %d fits entirely in child %d", i, r)}
		}
	}

	first := rec.children

	if first == 0 || (first-1)%8 != 0 {
		return 0, &ErrCorruptTree{Node: node, Reason: fmt.Sprintf("child link %d not group-aligned", first)}
	}

	g := (first - 1) / 8

	if g >= numGroups {
		return 0, &ErrCorruptTree{Node: node, Reason: fmt.Sprintf("child link names group %d of %d", g, numGroups)}
	}

	if !reachable.CheckedAdd(g) {
		return 0, &ErrCorruptTree{Node: node, Reason: fmt.Sprintf("group %d reachable from two parents", g)}
	}

	if o.parentLinks[g] != node {
		return 0, &ErrCorruptTree{Node: node, Reason: fmt.Sprintf("group %d parent link names node %d", g, o.parentLinks[g])}
	}

	sum := direct

	for i := uint32(0); i < 8; i++ {
		below, err := o.auditNode(first+i, ctx.ChildContext(geom.ChildRef(i)), reachable, numGroups)
		if err != nil {
			return 0, err
		}

		sum += below
	}

	if sum != rec.inclusiveCount {
		return 0, &ErrCorruptTree{Node: node, Reason: fmt.Sprintf("inclusive count %d, subtree holds %d", rec.inclusiveCount, sum)}
	}

	return sum, nil
}

// auditFreeGroup checks that a group on the free list was reset on release,
// which group reuse in allocChildGroup relies on.
func (o *Octree[T, S]) auditFreeGroup(g uint32) error {
	for i := uint32(0); i < 8; i++ {
		node := g*8 + 1 + i

		if !o.nodes[node].isLeaf() || o.nodes[node].inclusiveCount != 0 {
			return &ErrCorruptTree{Node: node, Reason: fmt.Sprintf("node in free group %d not reset", g)}
		}

		if len(o.elements[node]) != 0 {
			return &ErrCorruptTree{Node: node, Reason: fmt.Sprintf("node in free group %d still holds elements", g)}
		}
	}

	return nil
}
