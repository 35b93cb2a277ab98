package geometry

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Bounds is an axis-aligned bounding box. It is always derived from a
// vertex set and never adjusted independently, so it stays tight.
type Bounds struct {
	Min, Max v3.Vec
}

// BoundsOf computes the tight axis-aligned box around the given
// vertices. An empty vertex set yields a degenerate box at the origin.
func BoundsOf(verts []v3.Vec) Bounds {
	if len(verts) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: verts[0], Max: verts[0]}
	for _, v := range verts[1:] {
		b.Min = b.Min.Min(v)
		b.Max = b.Max.Max(v)
	}
	return b
}

// MeshBounds computes the tight bounds of a mesh.
func MeshBounds(m Mesh) Bounds {
	return BoundsOf(m.Vertices)
}

// Intersects reports whether the two boxes overlap, allowing faces and
// edges to touch within pad. A positive pad widens the test, which the
// broad phase uses so that parts meeting exactly at a face still count
// as candidates for the narrow phase.
func (b Bounds) Intersects(o Bounds, pad float64) bool {
	return b.Min.X <= o.Max.X+pad && b.Max.X >= o.Min.X-pad &&
		b.Min.Y <= o.Max.Y+pad && b.Max.Y >= o.Min.Y-pad &&
		b.Min.Z <= o.Max.Z+pad && b.Max.Z >= o.Min.Z-pad
}

// Contains reports whether the point lies in the closed box.
func (b Bounds) Contains(p v3.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Size returns the extent along each axis.
func (b Bounds) Size() v3.Vec {
	return b.Max.Sub(b.Min)
}

// Center returns the box midpoint.
func (b Bounds) Center() v3.Vec {
	return b.Min.Add(b.Max).MulScalar(0.5)
}

// MinExtent returns the smallest of the three axis extents.
func (b Bounds) MinExtent() float64 {
	s := b.Size()
	return math.Min(s.X, math.Min(s.Y, s.Z))
}

// MaxExtent returns the largest of the three axis extents.
func (b Bounds) MaxExtent() float64 {
	s := b.Size()
	return math.Max(s.X, math.Max(s.Y, s.Z))
}

// Union returns the smallest box covering both boxes.
func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}
