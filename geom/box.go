// Package geom provides the spatial vocabulary shared by the loose octree:
// center-extent bounding boxes with four-lane float32 storage, child-slot
// masks, and per-node traversal contexts.
//
// Boxes keep a zero in the fourth lane of both center and extent. Every
// kernel operates on all four lanes without masking; the convention
// guarantees the padding lane can never turn a hit into a miss.
package geom

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// Box is an axis-aligned region stored as a center point and a half-extent
// vector. The region covered is [Center-Extent, Center+Extent] inclusive.
// Extent components are non-negative; the fourth lane of both fields is zero.
type Box struct {
	Center [4]float32
	Extent [4]float32
}

// NewBox builds a box from a center point and half-extent vector.
func NewBox(center, extent r3.Vector) Box {
	return Box{
		Center: [4]float32{float32(center.X), float32(center.Y), float32(center.Z), 0},
		Extent: [4]float32{float32(extent.X), float32(extent.Y), float32(extent.Z), 0},
	}
}

// BoxFromMinMax builds a box from the two opposite corners of a region.
func BoxFromMinMax(min, max r3.Vector) Box {
	return NewBox(min.Add(max).Mul(0.5), max.Sub(min).Mul(0.5))
}

// BoxFromSphere builds the tightest box enclosing a sphere.
func BoxFromSphere(center r3.Vector, radius float64) Box {
	return NewBox(center, r3.Vector{X: radius, Y: radius, Z: radius})
}

// CenterVec returns the center as an r3 vector.
func (b Box) CenterVec() r3.Vector {
	return r3.Vector{X: float64(b.Center[0]), Y: float64(b.Center[1]), Z: float64(b.Center[2])}
}

// ExtentVec returns the half-extent as an r3 vector.
func (b Box) ExtentVec() r3.Vector {
	return r3.Vector{X: float64(b.Extent[0]), Y: float64(b.Extent[1]), Z: float64(b.Extent[2])}
}

// Min returns the corner with the smallest coordinate on every axis.
func (b Box) Min() r3.Vector {
	return b.CenterVec().Sub(b.ExtentVec())
}

// Max returns the corner with the largest coordinate on every axis.
func (b Box) Max() r3.Vector {
	return b.CenterVec().Add(b.ExtentVec())
}

// Intersects reports whether the two boxes overlap or touch. Two boxes
// overlap iff on every axis the center distance does not exceed the sum of
// the half-extents. All four lanes participate; the zero padding lane
// trivially passes.
func (b Box) Intersects(o Box) bool {
	for i := 0; i < 4; i++ {
		d := b.Center[i] - o.Center[i]
		if d < 0 {
			d = -d
		}
		if d > b.Extent[i]+o.Extent[i] {
			return false
		}
	}
	return true
}

// Contains reports whether o lies entirely inside b.
func (b Box) Contains(o Box) bool {
	for i := 0; i < 4; i++ {
		d := b.Center[i] - o.Center[i]
		if d < 0 {
			d = -d
		}
		if d+o.Extent[i] > b.Extent[i] {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (b Box) String() string {
	return fmt.Sprintf("box(center=(%g,%g,%g) extent=(%g,%g,%g))",
		b.Center[0], b.Center[1], b.Center[2],
		b.Extent[0], b.Extent[1], b.Extent[2])
}
