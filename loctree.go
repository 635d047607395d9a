package loctree

import (
	"math"
	"time"

	"github.com/golang/geo/r3"
	"golang.org/x/time/rate"

	"github.com/hupe1980/loctree/geom"
	"github.com/hupe1980/loctree/internal/sanity"
	"github.com/hupe1980/loctree/internal/spanlist"
)

// noChildren marks a node without a child group.
const noChildren = ^uint32(0)

// noNode is an impossible node index used while scanning for collapse
// candidates.
const noNode = ^uint32(0)

// treeNode is the structural record of a single node. Elements and parent
// links live in parallel arrays so the record stays two words wide.
type treeNode struct {
	// children is the index of the first node of the eight-child group,
	// or noChildren for a leaf. Children are contiguous, ordered by
	// child reference.
	children uint32

	// inclusiveCount is the number of elements stored in this node and
	// every node below it.
	inclusiveCount uint32
}

func (n treeNode) isLeaf() bool { return n.children == noChildren }

// Octree is a dynamic loose octree over elements of type T. Node bounds are
// inflated by the loose ratio so every element is fully contained in exactly
// the node it is stored at, which keeps insertion and removal free of
// re-balancing across siblings.
//
// The semantics type S is a value captured at construction; its accessors
// are consulted on every structural decision. An octree is not safe for
// concurrent use.
type Octree[T any, S Semantics[T]] struct {
	sem S

	rootCenter    [4]float32
	rootExtent    float32
	minLeafExtent float32

	// Parallel per-node state. Index 0 is the root; the children of a
	// group g occupy indices g*8+1 through g*8+8.
	nodes    []treeNode
	elements [][]T

	// parentLinks[g] is the node that owns child group g.
	parentLinks []uint32

	free spanlist.List

	maxPerLeaf   int
	minInclusive uint32
	maxDepth     int

	logger      *Logger
	metrics     MetricsCollector
	outsideWarn *rate.Sometimes
}

// New constructs an empty octree rooted at origin with the given half-size
// extent. The extent must be positive and finite.
func New[T any, S Semantics[T]](origin r3.Vector, extent float64, sem S, optFns ...Option) (*Octree[T, S], error) {
	if any(sem) == nil {
		return nil, ErrNilSemantics
	}

	if !(extent > 0) || math.IsInf(extent, 0) {
		return nil, ErrInvalidExtent
	}

	opts := applyOptions(optFns)

	o := &Octree[T, S]{
		sem:          sem,
		rootCenter:   geom.Lanes(origin),
		rootExtent:   float32(extent),
		maxPerLeaf:   sem.MaxElementsPerLeaf(),
		minInclusive: uint32(sem.MinInclusiveElementsPerNode()),
		maxDepth:     sem.MaxNodeDepth(),
		logger:       opts.logger,
		metrics:      opts.metricsCollector,
		outsideWarn:  &rate.Sometimes{First: 4, Interval: time.Minute},
	}

	if o.maxPerLeaf < 1 {
		o.maxPerLeaf = 1
	}

	if o.maxDepth < 0 {
		o.maxDepth = 0
	}

	o.minLeafExtent = geom.MinLeafExtent(o.rootExtent, o.maxDepth)

	if opts.nodeCapacity > 0 {
		o.nodes = make([]treeNode, 0, opts.nodeCapacity)
		o.elements = make([][]T, 0, opts.nodeCapacity)
		o.parentLinks = make([]uint32, 0, (opts.nodeCapacity+7)/8)
	}

	o.nodes = append(o.nodes, treeNode{children: noChildren})
	o.elements = append(o.elements, nil)

	return o, nil
}

// rootContext derives the traversal context of the root node.
func (o *Octree[T, S]) rootContext() geom.NodeContext {
	return geom.NewNodeContext(o.rootCenter, o.rootExtent)
}

// Len returns the number of elements currently stored.
func (o *Octree[T, S]) Len() int {
	return int(o.nodes[0].inclusiveCount)
}

// Origin returns the center of the root node.
func (o *Octree[T, S]) Origin() r3.Vector {
	return geom.Vec(o.rootCenter)
}

// Extent returns the root half-size the octree was constructed with.
func (o *Octree[T, S]) Extent() float64 {
	return float64(o.rootExtent)
}

// AddElement inserts an element at the deepest node whose loose bounds
// fully contain it, subdividing leaves that exceed their population limit.
// The element's identity token is delivered through Semantics.SetElementID
// and also returned.
//
// Elements whose bounds fall outside the root's loose region are accepted
// but stay pinned at the root, which degrades query pruning; a throttled
// warning is logged when this happens.
func (o *Octree[T, S]) AddElement(element T) ElementID {
	start := time.Now()

	bounds := o.sem.BoundingBox(element)
	ctx := o.rootContext()

	if !ctx.Bounds().Contains(bounds) {
		o.outsideWarn.Do(func() {
			o.logger.Warn("element bounds outside root region, storing at root", "bounds", bounds.String(), "rootExtent", o.rootExtent)
		})
	}

	id := o.addToNode(element, bounds, 0, ctx)

	o.sanityAudit()

	o.logger.LogAdd(id)
	o.metrics.RecordAdd(time.Since(start))

	return id
}

// sanityAudit cross-checks the whole tree after a mutation in sanity
// builds. Compiles to nothing otherwise.
func (o *Octree[T, S]) sanityAudit() {
	if sanity.Enabled {
		if err := o.Audit(); err != nil {
			panic(err)
		}
	}
}

// addToNode descends from node until it finds the deepest loose bounds that
// fully contain the element, bumping inclusive counts along the way.
func (o *Octree[T, S]) addToNode(element T, bounds geom.Box, node uint32, ctx geom.NodeContext) ElementID {
	for {
		o.nodes[node].inclusiveCount++

		if !o.nodes[node].isLeaf() {
			if r := ctx.ContainingChild(bounds); !r.IsNull() {
				node = o.nodes[node].children + uint32(r)
				ctx = ctx.ChildContext(r)

				continue
			}

			// Straddles the child boundaries; this is its home.
			return o.place(element, node)
		}

		if len(o.elements[node])+1 > o.maxPerLeaf && ctx.Extent > o.minLeafExtent {
			return o.splitNode(node, ctx, element, bounds)
		}

		return o.place(element, node)
	}
}

// place appends the element to a node's list and issues its token.
func (o *Octree[T, S]) place(element T, node uint32) ElementID {
	o.elements[node] = append(o.elements[node], element)

	id := ElementID{Node: node, Index: uint32(len(o.elements[node]) - 1)}
	o.sem.SetElementID(element, id)

	return id
}

// splitNode turns a full leaf into an interior node: its elements are
// collected, an eight-child group is attached, and everything (including
// the incoming element) is re-inserted from the node downward. Re-insertion
// fires SetElementID for every element it touches.
func (o *Octree[T, S]) splitNode(node uint32, ctx geom.NodeContext, element T, bounds geom.Box) ElementID {
	collected := o.elements[node]
	o.elements[node] = nil

	o.nodes[node].children = o.allocChildGroup(node)
	o.nodes[node].inclusiveCount = 0

	for _, e := range collected {
		o.addToNode(e, o.sem.BoundingBox(e), node, ctx)
	}

	id := o.addToNode(element, bounds, node, ctx)

	o.logger.LogSplit(node, len(collected)+1)
	o.metrics.RecordSplit(len(collected) + 1)

	return id
}

// allocChildGroup claims a child group for parent, reusing the
// highest-indexed free group before growing the arrays. It returns the
// index of the group's first node.
func (o *Octree[T, S]) allocChildGroup(parent uint32) uint32 {
	if g, ok := o.free.Pop(); ok {
		o.parentLinks[g] = parent

		return g*8 + 1
	}

	g := uint32(len(o.parentLinks))
	for i := 0; i < 8; i++ {
		o.nodes = append(o.nodes, treeNode{children: noChildren})
		o.elements = append(o.elements, nil)
	}

	o.parentLinks = append(o.parentLinks, parent)

	return g*8 + 1
}

// RemoveElement removes the element identified by id. The token must be
// current; passing a stale or fabricated token panics. Removal of the
// non-last element of a node swap-moves the last element into its slot and
// rewrites that element's token before returning.
func (o *Octree[T, S]) RemoveElement(id ElementID) {
	start := time.Now()

	if !o.IsValidElementID(id) {
		panic("loctree: RemoveElement called with invalid element id")
	}

	node := id.Node
	list := o.elements[node]
	last := uint32(len(list) - 1)

	if id.Index != last {
		moved := list[last]
		list[id.Index] = moved
		o.sem.SetElementID(moved, ElementID{Node: node, Index: id.Index})
	}

	var zero T
	list[last] = zero
	o.elements[node] = list[:last]

	// Walk up to the root, decrementing inclusive counts. The last node
	// on the walk whose count falls below the threshold is the highest
	// such node, and the collapse candidate.
	candidate := noNode

	for n := node; ; {
		o.nodes[n].inclusiveCount--

		if o.nodes[n].inclusiveCount < o.minInclusive {
			candidate = n
		}

		if n == 0 {
			break
		}

		n = o.parentLinks[(n-1)/8]
	}

	if candidate != noNode && !o.nodes[candidate].isLeaf() &&
		uint32(len(o.elements[candidate])) < o.nodes[candidate].inclusiveCount {
		o.collapseNode(candidate)
	}

	o.sanityAudit()

	o.logger.LogRemove(id)
	o.metrics.RecordRemove(time.Since(start))
}

// collapseNode folds the subtree below node back into node. Every gathered
// element has its token rewritten before any child group is released to the
// free list.
func (o *Octree[T, S]) collapseNode(node uint32) {
	first := o.nodes[node].children

	gathered := o.gatherInto(node, first)
	o.releaseSubtree(first)
	o.nodes[node].children = noChildren

	o.logger.LogCollapse(node, gathered)
	o.metrics.RecordCollapse(gathered)
}

// gatherInto moves every element stored below the child group starting at
// first into node's own list, issuing new tokens as it goes.
func (o *Octree[T, S]) gatherInto(node uint32, first uint32) int {
	gathered := 0

	for i := uint32(0); i < 8; i++ {
		child := first + i

		for _, e := range o.elements[child] {
			o.elements[node] = append(o.elements[node], e)
			o.sem.SetElementID(e, ElementID{Node: node, Index: uint32(len(o.elements[node]) - 1)})
			gathered++
		}

		clear(o.elements[child])
		o.elements[child] = o.elements[child][:0]

		if !o.nodes[child].isLeaf() {
			gathered += o.gatherInto(node, o.nodes[child].children)
		}
	}

	return gathered
}

// releaseSubtree resets the child group starting at first and every group
// below it, returning them to the free list deepest-first. Element lists
// must already be empty.
func (o *Octree[T, S]) releaseSubtree(first uint32) {
	for i := uint32(0); i < 8; i++ {
		child := first + i

		if !o.nodes[child].isLeaf() {
			o.releaseSubtree(o.nodes[child].children)
		}

		o.nodes[child] = treeNode{children: noChildren}
	}

	o.free.Push((first - 1) / 8)
}

// Destroy removes every element and resets the tree to an empty root. Node
// storage keeps its capacity so a refilled octree does not start from
// scratch. No identity callbacks fire; all outstanding tokens become
// invalid at once.
func (o *Octree[T, S]) Destroy() {
	clear(o.elements)
	o.elements = o.elements[:1]

	o.nodes = o.nodes[:1]
	o.nodes[0] = treeNode{children: noChildren}

	o.parentLinks = o.parentLinks[:0]
	o.free.Reset()
}

// IsValidElementID reports whether id currently addresses a stored element.
// A token that was rewritten by a callback remains valid under its new
// value; the superseded value may or may not still pass this check, so it
// must not be retained.
func (o *Octree[T, S]) IsValidElementID(id ElementID) bool {
	return uint64(id.Node) < uint64(len(o.elements)) && uint64(id.Index) < uint64(len(o.elements[id.Node]))
}

// ElementByID returns the element addressed by id. The token must be
// current.
func (o *Octree[T, S]) ElementByID(id ElementID) T {
	return o.elements[id.Node][id.Index]
}

// ElementsForNode returns the elements stored directly at a node, excluding
// descendants. The returned slice aliases internal storage and must not be
// mutated or retained across mutating operations.
func (o *Octree[T, S]) ElementsForNode(n NodeIndex) []T {
	return o.elements[n]
}

// ApplyOffset translates every stored element by offset and rebuilds the
// tree around the translated origin. The semantics type must implement
// OffsetApplier.
func (o *Octree[T, S]) ApplyOffset(offset r3.Vector) {
	applier, ok := any(o.sem).(OffsetApplier[T])
	if !ok {
		panic("loctree: ApplyOffset requires semantics implementing OffsetApplier")
	}

	all := make([]T, 0, o.Len())
	for _, e := range o.All() {
		all = append(all, e)
	}

	o.Destroy()

	shifted := o.Origin().Add(offset)
	o.rootCenter = geom.Lanes(shifted)

	for _, e := range all {
		applier.ApplyOffset(e, offset)
		o.AddElement(e)
	}
}
