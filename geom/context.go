package geom

import "github.com/golang/geo/r3"

// Nodes are enlarged by one sixteenth of their tight half so that elements
// straddling a split plane can still descend into a single child.
const loosenessDenominator = 16

// looseScale is the ratio between a child's loose extent and its parent's
// loose extent: half, widened by the looseness fraction. The value 17/32 is
// exactly representable in float32, so repeated scaling is deterministic.
const looseScale = (1 + 1.0/loosenessDenominator) / 2

// NodeContext is the derived traversal record of one octree node. It is
// synthesized while descending, never stored. Nodes are cubes; Extent is the
// loose half-extent on every axis.
type NodeContext struct {
	Center      [4]float32
	Extent      float32
	ChildExtent float32 // loose half-extent of each child
	ChildDelta  float32 // distance from this center to each child center
}

// NewNodeContext builds the context of a node from its center and loose
// half-extent. The child extent and child center offset are precomputed;
// placing each child's loose box flush against the node boundary yields
// ChildDelta = Extent - ChildExtent.
func NewNodeContext(center [4]float32, extent float32) NodeContext {
	childExtent := extent * looseScale
	return NodeContext{
		Center:      center,
		Extent:      extent,
		ChildExtent: childExtent,
		ChildDelta:  extent - childExtent,
	}
}

// ChildContext synthesizes the context of child r.
func (c NodeContext) ChildContext(r ChildRef) NodeContext {
	off := ChildOffset(r, c.ChildDelta)
	return NewNodeContext([4]float32{
		c.Center[0] + off[0],
		c.Center[1] + off[1],
		c.Center[2] + off[2],
		0,
	}, c.ChildExtent)
}

// Bounds returns the node's loose bounding box.
func (c NodeContext) Bounds() Box {
	return Box{
		Center: c.Center,
		Extent: [4]float32{c.Extent, c.Extent, c.Extent, 0},
	}
}

// IntersectingChildren returns the subset of children whose loose bounds may
// overlap the query. Per axis: the positive-side children are candidates
// when the query's max reaches the positive child's min edge, the
// negative-side children when the query's min reaches the negative child's
// max edge.
func (c NodeContext) IntersectingChildren(q Box) ChildSet {
	// Signed distance from the node center to the positive child's min
	// edge. Children overlap the center, so this is negative.
	inner := c.ChildDelta - c.ChildExtent

	var pos, neg uint8
	for a := 0; a < 3; a++ {
		if q.Center[a]+q.Extent[a] >= c.Center[a]+inner {
			pos |= 1 << a
		}
		if q.Center[a]-q.Extent[a] <= c.Center[a]-inner {
			neg |= 1 << a
		}
	}
	return ChildSet{pos: pos, neg: neg}
}

// ContainingChild returns the single child whose loose bounds fully contain
// the query, or NullChild. Per axis the closest child center is at distance
// ||d|-ChildDelta| from the query center; the query fits iff that distance
// plus the query extent stays within the child extent on every axis.
func (c NodeContext) ContainingChild(q Box) ChildRef {
	var k ChildRef
	for a := 0; a < 3; a++ {
		d := q.Center[a] - c.Center[a]
		if d > 0 {
			k |= 1 << a
		}
		m := d
		if m < 0 {
			m = -m
		}
		m -= c.ChildDelta
		if m < 0 {
			m = -m
		}
		if q.Extent[a]+m > c.ChildExtent {
			return NullChild
		}
	}
	return k
}

// MinLeafExtent returns the loose extent of a node maxDepth levels below a
// root of the given extent. The same per-level scaling as ChildContext is
// used so the result compares exactly against a descended context.
func MinLeafExtent(rootExtent float32, maxDepth int) float32 {
	e := rootExtent
	for i := 0; i < maxDepth; i++ {
		e *= looseScale
	}
	return e
}

// Lanes spreads an r3 vector into four-lane form with a zero padding lane.
func Lanes(v r3.Vector) [4]float32 {
	return [4]float32{float32(v.X), float32(v.Y), float32(v.Z), 0}
}

// Vec collapses four-lane form back into an r3 vector, dropping the padding
// lane.
func Vec(l [4]float32) r3.Vector {
	return r3.Vector{X: float64(l[0]), Y: float64(l[1]), Z: float64(l[2])}
}
