package geom

import "math"

// Axis bits of a child slot index.
const (
	childMaskX = 1 << 0
	childMaskY = 1 << 1
	childMaskZ = 1 << 2
)

// ChildRef addresses one of the eight child slots of an octree node.
// Bit 0 selects the X-positive half, bit 1 Y-positive, bit 2 Z-positive.
type ChildRef uint8

// NullChild is the sentinel for "no child".
const NullChild ChildRef = 8

// IsNull reports whether the reference is the sentinel.
func (r ChildRef) IsNull() bool { return r >= NullChild }

// ChildSet is a subset of the eight child slots, stored as one positive-sign
// and one negative-sign bit per axis.
type ChildSet struct {
	pos uint8
	neg uint8
}

// AllChildren returns the subset holding every child slot.
func AllChildren() ChildSet {
	return ChildSet{pos: 7, neg: 7}
}

// Contains reports whether child r is in the subset. Child r is a member
// iff on every axis the subset includes r's sign for that axis.
func (s ChildSet) Contains(r ChildRef) bool {
	k := uint8(r)
	return (s.pos&k|s.neg&^k)&7 == 7
}

// IsEmpty reports whether no child is in the subset. A child exists iff on
// every axis at least one sign is present.
func (s ChildSet) IsEmpty() bool {
	return (s.pos|s.neg)&7 != 7
}

// ChildOffset synthesizes the center offset of child r: delta on each axis,
// negated where the corresponding index bit is clear. Branchless: the sign
// bit is ORed in from the inverted index bit.
func ChildOffset(r ChildRef, delta float32) [4]float32 {
	b := math.Float32bits(delta)
	k := uint32(r)
	return [4]float32{
		math.Float32frombits(b | ((k&childMaskX)<<31 ^ 1<<31)),
		math.Float32frombits(b | ((k&childMaskY)<<30 ^ 1<<31)),
		math.Float32frombits(b | ((k&childMaskZ)<<29 ^ 1<<31)),
		0,
	}
}
