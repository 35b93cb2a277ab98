package geometry

import (
	"fmt"
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Category classifies the shape of a mesh/mesh intersection. The
// geometry solver keys its legality registry on this value, so the
// classification must be deterministic.
type Category int

const (
	// CategoryNone means the meshes do not interpenetrate. Bounds may
	// overlap and surfaces may touch, but no edge crosses a face.
	CategoryNone Category = iota
	// CategorySeam is an interpenetration whose extent is below the
	// seam tolerance in at least one axis: a shallow cut or a
	// face-contact overlap left by modeling slop.
	CategorySeam
	// CategoryNotch means edges of only one mesh pierce the other, as
	// when a shallow pocket or dado swallows the end of a part.
	CategoryNotch
	// CategoryCross means both meshes pierce each other, as in a lap
	// or angled joint where the two volumes pass through one another.
	CategoryCross
	// CategoryContain means one mesh sits entirely inside the other,
	// with no edge crossing any face.
	CategoryContain
)

func (c Category) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategorySeam:
		return "seam"
	case CategoryNotch:
		return "notch"
	case CategoryCross:
		return "cross"
	case CategoryContain:
		return "contain"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// ParseCategory converts the wire form used in registry files.
func ParseCategory(s string) (Category, error) {
	switch s {
	case "none":
		return CategoryNone, nil
	case "seam":
		return CategorySeam, nil
	case "notch":
		return CategoryNotch, nil
	case "cross":
		return CategoryCross, nil
	case "contain":
		return CategoryContain, nil
	default:
		return 0, fmt.Errorf("unknown intersection category %q", s)
	}
}

// Intersection is the narrow-phase result for one mesh pair.
type Intersection struct {
	Category Category
	// Points are the edge/face crossing points in world space, in a
	// canonical order independent of face iteration order.
	Points []v3.Vec
	// Extent is the bounding box of the crossing points; its smallest
	// axis is the penetration depth estimate used for seam detection.
	Extent Bounds
}

const segTriEps = 1e-12

// segTriangle intersects segment p-q with triangle abc using the
// Möller–Trumbore construction restricted to t in [0,1]. Segments
// lying in the triangle's plane report no crossing; coplanar contact
// is surface touching, not interpenetration.
func segTriangle(p, q, a, b, c v3.Vec) (v3.Vec, bool) {
	dir := q.Sub(p)
	e1 := b.Sub(a)
	e2 := c.Sub(a)

	h := dir.Cross(e2)
	det := e1.Dot(h)
	if det > -segTriEps && det < segTriEps {
		return v3.Vec{}, false
	}
	f := 1.0 / det

	s := p.Sub(a)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return v3.Vec{}, false
	}

	qv := s.Cross(e1)
	v := f * dir.Dot(qv)
	if v < 0 || u+v > 1 {
		return v3.Vec{}, false
	}

	t := f * e2.Dot(qv)
	if t < 0 || t > 1 {
		return v3.Vec{}, false
	}
	return p.Add(dir.MulScalar(t)), true
}

// edge is an undirected vertex index pair with lo <= hi.
type edge struct {
	lo, hi int
}

// coplanarEps bounds the normalized cross product of two face normals
// below which the faces count as lying in one plane.
const coplanarEps = 1e-9

// meshEdges extracts the feature edges of a mesh, sorted for
// deterministic iteration. An edge shared by two faces in a common
// plane is a triangulation diagonal, not a feature of the solid, and
// is skipped; counting such a diagonal as an edge would report face
// crossings where the surface is flat.
func meshEdges(m Mesh) []edge {
	shared := make(map[edge][]int, len(m.Faces)*3)
	for fi, f := range m.Faces {
		for i := 0; i < 3; i++ {
			a, b := f[i], f[(i+1)%3]
			if a > b {
				a, b = b, a
			}
			e := edge{a, b}
			shared[e] = append(shared[e], fi)
		}
	}
	edges := make([]edge, 0, len(shared))
	for e, faces := range shared {
		if len(faces) == 2 {
			n1 := m.Triangle(faces[0]).Normal()
			n2 := m.Triangle(faces[1]).Normal()
			if n1.Cross(n2).Length() <= coplanarEps*n1.Length()*n2.Length() {
				continue
			}
		}
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].lo != edges[j].lo {
			return edges[i].lo < edges[j].lo
		}
		return edges[i].hi < edges[j].hi
	})
	return edges
}

// rayDir is the cast direction used by the containment test: a skew
// unit vector that avoids running parallel to the axis-aligned faces
// and face diagonals that dominate construction stock.
var rayDir = v3.Vec{X: 0.2672612419124244, Y: 0.5345224838248488, Z: 0.8017837257372732}

// centroid is the vertex average of a mesh. For the convex stock
// profiles parts are built from it is a strictly interior point.
func centroid(m Mesh) v3.Vec {
	var c v3.Vec
	for _, v := range m.Vertices {
		c = c.Add(v)
	}
	return c.MulScalar(1 / float64(len(m.Vertices)))
}

// contains reports whether p lies strictly inside m, by parity of the
// face crossings along a ray cast out of the mesh. Points on the
// bounds surface are rejected up front; ray parity is unreliable when
// the ray starts on a face.
func contains(m Mesh, p v3.Vec) bool {
	b := MeshBounds(m)
	if p.X <= b.Min.X || p.X >= b.Max.X ||
		p.Y <= b.Min.Y || p.Y >= b.Max.Y ||
		p.Z <= b.Min.Z || p.Z >= b.Max.Z {
		return false
	}
	reach := b.MaxExtent() * 4
	if reach <= 0 {
		return false
	}
	q := p.Add(rayDir.MulScalar(reach))
	hits := 0
	for i := range m.Faces {
		tri := m.Triangle(i)
		if _, hit := segTriangle(p, q, tri.A, tri.B, tri.C); hit {
			hits++
		}
	}
	return hits%2 == 1
}

// piercePoints collects every point where an edge of m crosses a face
// of target.
func piercePoints(m, target Mesh) []v3.Vec {
	var pts []v3.Vec
	edges := meshEdges(m)
	for _, e := range edges {
		p := m.Vertices[e.lo]
		q := m.Vertices[e.hi]
		for i := range target.Faces {
			tri := target.Triangle(i)
			if pt, hit := segTriangle(p, q, tri.A, tri.B, tri.C); hit {
				pts = append(pts, pt)
			}
		}
	}
	return pts
}

// Intersect performs the exact narrow-phase test between two meshes in
// a shared coordinate space. The result does not depend on argument
// order except that Points are reported in canonical sorted order.
func Intersect(a, b Mesh, seamTolerance float64) Intersection {
	ab := piercePoints(a, b)
	ba := piercePoints(b, a)

	// No edge crossings: either the volumes are disjoint or one mesh
	// swallows the other whole.
	if len(ab) == 0 && len(ba) == 0 {
		if !a.IsEmpty() && !b.IsEmpty() {
			switch {
			case contains(b, centroid(a)):
				return Intersection{Category: CategoryContain, Extent: MeshBounds(a)}
			case contains(a, centroid(b)):
				return Intersection{Category: CategoryContain, Extent: MeshBounds(b)}
			}
		}
		return Intersection{Category: CategoryNone}
	}

	pts := append(ab, ba...)
	sortPoints(pts)
	ext := BoundsOf(pts)

	cat := CategoryNotch
	switch {
	case ext.MinExtent() <= seamTolerance:
		cat = CategorySeam
	case len(ab) > 0 && len(ba) > 0:
		cat = CategoryCross
	}

	return Intersection{Category: cat, Points: pts, Extent: ext}
}

// sortPoints orders points lexicographically by (X, Y, Z) so the
// result is independent of face and edge iteration order.
func sortPoints(pts []v3.Vec) {
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		if pts[i].Y != pts[j].Y {
			return pts[i].Y < pts[j].Y
		}
		return pts[i].Z < pts[j].Z
	})
}
