// Package loctree provides a generic loose octree for spatial indexing.
//
// A loose octree widens every node's bounds by a fixed ratio so that each
// element, no matter how it straddles split planes, is fully contained in
// exactly one node. Insertions and removals touch a single root-to-node
// path, never re-balance across siblings, and keep per-subtree element
// counts so queries can prune empty branches without visiting them.
//
// # Quick Start
//
// Element behavior is supplied through a semantics value:
//
//	type entity struct {
//	    pos    r3.Vector
//	    radius float64
//	    id     loctree.ElementID
//	}
//
//	type entitySemantics struct{}
//
//	func (entitySemantics) BoundingBox(e *entity) geom.Box {
//	    return geom.BoxFromSphere(e.pos, e.radius)
//	}
//	func (entitySemantics) SetElementID(e *entity, id loctree.ElementID) { e.id = id }
//	func (entitySemantics) MaxElementsPerLeaf() int                      { return 16 }
//	func (entitySemantics) MinInclusiveElementsPerNode() int             { return 7 }
//	func (entitySemantics) MaxNodeDepth() int                            { return 12 }
//
//	tree, _ := loctree.New[*entity, entitySemantics](r3.Vector{}, 1000, entitySemantics{})
//	tree.AddElement(&entity{pos: r3.Vector{X: 10, Y: 4, Z: -3}, radius: 1})
//
//	tree.FindElementsWithBoundsTest(geom.BoxFromSphere(r3.Vector{X: 10}, 25), func(e *entity) {
//	    // e overlaps the query sphere's bounding box
//	})
//
// The octree rewrites e.id through SetElementID whenever internal
// reorganization moves the element, so RemoveElement(e.id) is always valid
// for a live element.
//
// # Identity Tokens
//
// Every stored element is addressed by an ElementID naming the node that
// holds it and its slot in that node's list. Splits, collapses, and
// swap-removal of neighbors all move elements between slots; each move
// fires SetElementID before the operation returns, so a token stored by the
// callback never goes stale while its element is alive.
//
// # Tuning
//
// Semantics constants trade traversal depth against per-node scan cost:
// MaxElementsPerLeaf bounds how full a leaf may get before it subdivides,
// MinInclusiveElementsPerNode folds sparse subtrees back together, and
// MaxNodeDepth caps subdivision outright. Nodes at the depth cap absorb any
// population.
//
// # Key Features
//
//   - Generic over element and semantics types; the bounds accessor
//     devirtualizes in traversal loops
//   - Contiguous node storage with free-span recycling of child groups
//   - Five traversals: node/element predicate walks, box-intersection
//     walks, first-match early-out, and point-directed nearby scan
//   - Structured logging (log/slog), pluggable metrics, structural Audit
//   - Companion blockpool package: a fixed-block allocator over reserved
//     virtual memory with lazy page commit
package loctree
