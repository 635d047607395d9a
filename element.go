package loctree

import (
	"github.com/golang/geo/r3"

	"github.com/hupe1980/loctree/geom"
)

// ElementID identifies an element by the node that holds it and its position
// in that node's element list. The octree rewrites held tokens through
// Semantics.SetElementID whenever internal reorganization moves an element,
// so a token obeyed through callbacks stays authoritative until the element
// is removed.
type ElementID struct {
	Node  uint32
	Index uint32
}

// NodeIndex addresses a node during predicate-driven walks. Node indices
// are only meaningful until the next mutating operation.
type NodeIndex uint32

// Semantics supplies the per-element behavior and tuning constants of an
// octree. It is a type parameter rather than a stored interface so the
// bounds accessor devirtualizes in traversal loops.
//
// SetElementID receives the stored element value. Element types are
// typically pointers or handles so the callback can record the token where
// the caller will look it up later.
type Semantics[T any] interface {
	// BoundingBox returns the element's current bounds.
	BoundingBox(element T) geom.Box

	// SetElementID records the element's identity token. It fires on
	// every insert and on every move caused by a split, a collapse, or a
	// swap-remove.
	SetElementID(element T, id ElementID)

	// MaxElementsPerLeaf is the population at which a leaf subdivides,
	// provided it is above the minimum leaf extent.
	MaxElementsPerLeaf() int

	// MinInclusiveElementsPerNode is the population below which a
	// subtree collapses back into its root.
	MinInclusiveElementsPerNode() int

	// MaxNodeDepth bounds subdivision; nodes at this depth never split.
	MaxNodeDepth() int
}

// OffsetApplier is implemented by semantics that support bulk translation
// via Octree.ApplyOffset.
type OffsetApplier[T any] interface {
	// ApplyOffset translates the element's stored position.
	ApplyOffset(element T, offset r3.Vector)
}
