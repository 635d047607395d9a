package loctree

import (
	"iter"
	"time"

	"github.com/hupe1980/loctree/geom"
)

// FindNodesWithPredicate walks the tree depth-first, handing node indices to
// visit. Subtrees whose nodes hold no elements are skipped; when the
// predicate rejects a node's loose bounds the whole subtree under it is
// pruned. Elements of a visited node are fetched with ElementsForNode.
func (o *Octree[T, S]) FindNodesWithPredicate(predicate func(bounds geom.Box) bool, visit func(n NodeIndex)) {
	start := time.Now()

	visited := 0
	o.findNodes(0, o.rootContext(), predicate, visit, &visited)

	o.metrics.RecordQuery(visited, time.Since(start))
}

func (o *Octree[T, S]) findNodes(node uint32, ctx geom.NodeContext, predicate func(geom.Box) bool, visit func(NodeIndex), visited *int) {
	if o.nodes[node].inclusiveCount == 0 {
		return
	}

	if !predicate(ctx.Bounds()) {
		return
	}

	*visited++
	visit(NodeIndex(node))

	if o.nodes[node].isLeaf() {
		return
	}

	first := o.nodes[node].children
	for r := geom.ChildRef(0); r < 8; r++ {
		o.findNodes(first+uint32(r), ctx.ChildContext(r), predicate, visit, visited)
	}
}

// FindElementsWithPredicate walks like FindNodesWithPredicate but hands out
// the elements of each accepted node instead of its index.
func (o *Octree[T, S]) FindElementsWithPredicate(predicate func(bounds geom.Box) bool, visit func(element T)) {
	start := time.Now()

	visited := 0
	o.findNodes(0, o.rootContext(), predicate, func(n NodeIndex) {
		for _, e := range o.elements[n] {
			visit(e)
		}
	}, &visited)

	o.metrics.RecordQuery(visited, time.Since(start))
}

// FindElementsWithBoundsTest visits every element whose bounds intersect the
// query box. Only children whose loose bounds can overlap the query are
// descended into.
func (o *Octree[T, S]) FindElementsWithBoundsTest(query geom.Box, visit func(element T)) {
	start := time.Now()

	visited := 0
	o.findBounds(0, o.rootContext(), query, visit, &visited)

	o.metrics.RecordQuery(visited, time.Since(start))
}

func (o *Octree[T, S]) findBounds(node uint32, ctx geom.NodeContext, query geom.Box, visit func(T), visited *int) {
	*visited++

	for _, e := range o.elements[node] {
		if o.sem.BoundingBox(e).Intersects(query) {
			visit(e)
		}
	}

	if o.nodes[node].isLeaf() {
		return
	}

	set := ctx.IntersectingChildren(query)
	first := o.nodes[node].children

	for r := geom.ChildRef(0); r < 8; r++ {
		if set.Contains(r) && o.nodes[first+uint32(r)].inclusiveCount > 0 {
			o.findBounds(first+uint32(r), ctx.ChildContext(r), query, visit, visited)
		}
	}
}

// FindFirstElementWithBoundsTest visits intersecting elements like
// FindElementsWithBoundsTest until visit returns false; from that point no
// further element is handed out. It reports whether the walk ran to
// completion.
func (o *Octree[T, S]) FindFirstElementWithBoundsTest(query geom.Box, visit func(element T) bool) bool {
	start := time.Now()

	visited := 0
	done := o.findFirst(0, o.rootContext(), query, visit, &visited)

	o.metrics.RecordQuery(visited, time.Since(start))

	return done
}

func (o *Octree[T, S]) findFirst(node uint32, ctx geom.NodeContext, query geom.Box, visit func(T) bool, visited *int) bool {
	*visited++

	for _, e := range o.elements[node] {
		if o.sem.BoundingBox(e).Intersects(query) {
			if !visit(e) {
				return false
			}
		}
	}

	if o.nodes[node].isLeaf() {
		return true
	}

	set := ctx.IntersectingChildren(query)
	first := o.nodes[node].children

	for r := geom.ChildRef(0); r < 8; r++ {
		if set.Contains(r) && o.nodes[first+uint32(r)].inclusiveCount > 0 {
			if !o.findFirst(first+uint32(r), ctx.ChildContext(r), query, visit, visited) {
				return false
			}
		}
	}

	return true
}

// FindNearbyElements hands out elements in a cone narrowing toward
// position: every visited node's direct elements are reported unfiltered,
// then the walk descends into the single child containing the point when
// that branch holds elements, and into all children otherwise.
func (o *Octree[T, S]) FindNearbyElements(position geom.Box, visit func(element T)) {
	start := time.Now()

	visited := 0
	o.findNearby(0, o.rootContext(), position, visit, &visited)

	o.metrics.RecordQuery(visited, time.Since(start))
}

func (o *Octree[T, S]) findNearby(node uint32, ctx geom.NodeContext, position geom.Box, visit func(T), visited *int) {
	if o.nodes[node].inclusiveCount == 0 {
		return
	}

	*visited++

	for _, e := range o.elements[node] {
		visit(e)
	}

	if o.nodes[node].isLeaf() {
		return
	}

	first := o.nodes[node].children

	if r := ctx.ContainingChild(position); !r.IsNull() && o.nodes[first+uint32(r)].inclusiveCount > 0 {
		o.findNearby(first+uint32(r), ctx.ChildContext(r), position, visit, visited)

		return
	}

	for r := geom.ChildRef(0); r < 8; r++ {
		o.findNearby(first+uint32(r), ctx.ChildContext(r), position, visit, visited)
	}
}

// All returns an iterator over every stored element and its current token,
// depth-first by child index. The octree must not be mutated during
// iteration.
func (o *Octree[T, S]) All() iter.Seq2[ElementID, T] {
	return func(yield func(ElementID, T) bool) {
		o.yieldAll(0, yield)
	}
}

func (o *Octree[T, S]) yieldAll(node uint32, yield func(ElementID, T) bool) bool {
	for i, e := range o.elements[node] {
		if !yield(ElementID{Node: node, Index: uint32(i)}, e) {
			return false
		}
	}

	if o.nodes[node].isLeaf() {
		return true
	}

	first := o.nodes[node].children
	for r := uint32(0); r < 8; r++ {
		if o.nodes[first+r].inclusiveCount == 0 {
			continue
		}

		if !o.yieldAll(first+r, yield) {
			return false
		}
	}

	return true
}
