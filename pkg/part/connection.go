package part

import (
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/purlin/pkg/geometry"
)

// anchorTolerance is how close (in model units) a connection point
// must sit to a mesh vertex to be anchored to it.
const anchorTolerance = 1e-9

// surfaceTolerance is how close a connection point must sit to the
// mesh surface to be accepted at template build time.
const surfaceTolerance = 1e-6

// ConnectionPoint is a part-local location with a spherical capture
// volume. Two points on different parts whose world-space distance is
// at most the sum of their radii are a candidate match.
type ConnectionPoint struct {
	// Local is the position in part-local space, after attribute
	// transforms have been applied.
	Local  v3.Vec
	Radius float64

	// anchor is the index of the mesh vertex this point coincides
	// with, or -1. Anchored points ride the transform rules of their
	// vertex so they never detach from the geometry.
	anchor int
}

// Anchored reports whether the point rides a mesh vertex.
func (c ConnectionPoint) Anchored() bool {
	return c.anchor >= 0
}

// findAnchor locates the vertex a connection point coincides with.
// Ties are broken by lowest index for determinism.
func findAnchor(p v3.Vec, verts []v3.Vec) int {
	for i, v := range verts {
		if v.Sub(p).Length() <= anchorTolerance {
			return i
		}
	}
	return -1
}

// onSurface reports whether p lies within tol of any triangle of m.
func onSurface(p v3.Vec, m geometry.Mesh, tol float64) bool {
	for i := range m.Faces {
		tri := m.Triangle(i)
		if pointTriangleDistance(p, tri.A, tri.B, tri.C) <= tol {
			return true
		}
	}
	return false
}

// pointTriangleDistance returns the distance from p to triangle abc.
func pointTriangleDistance(p, a, b, c v3.Vec) float64 {
	// Project onto the triangle plane, then clamp to the triangle via
	// barycentric regions (Ericson, Real-Time Collision Detection).
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return ap.Length()
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return bp.Length()
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		t := d1 / (d1 - d3)
		return p.Sub(a.Add(ab.MulScalar(t))).Length()
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return cp.Length()
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		t := d2 / (d2 - d6)
		return p.Sub(a.Add(ac.MulScalar(t))).Length()
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		t := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return p.Sub(b.Add(c.Sub(b).MulScalar(t))).Length()
	}

	denom := 1.0 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	closest := a.Add(ab.MulScalar(v)).Add(ac.MulScalar(w))
	return p.Sub(closest).Length()
}
