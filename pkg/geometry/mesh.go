package geometry

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Face references three vertices by zero-based index, counter-clockwise
// when viewed from outside the solid.
type Face [3]int

// Triangle is a face resolved to its three corner positions.
type Triangle struct {
	A, B, C v3.Vec
}

// Normal returns the (unnormalized) face normal A->B x A->C.
func (t Triangle) Normal() v3.Vec {
	return t.B.Sub(t.A).Cross(t.C.Sub(t.A))
}

// Mesh is an indexed triangle mesh. The vertex order is significant:
// attribute transform rules address vertices by index, so any
// operation that reorders vertices would silently break templates.
type Mesh struct {
	Vertices []v3.Vec
	Faces    []Face
}

// MeshError reports a structurally invalid mesh. It is fatal: a solve
// cannot run over geometry whose faces do not resolve.
type MeshError struct {
	Face    int // index of the offending face, -1 if mesh-level
	Message string
}

func (e *MeshError) Error() string {
	if e.Face < 0 {
		return fmt.Sprintf("malformed mesh: %s", e.Message)
	}
	return fmt.Sprintf("malformed mesh: face %d: %s", e.Face, e.Message)
}

// Validate checks the mesh invariants: every face index must be in
// range and no two faces may reference the same vertex triple.
func (m Mesh) Validate() error {
	n := len(m.Vertices)
	seen := make(map[[3]int]int, len(m.Faces))

	for i, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= n {
				return &MeshError{
					Face:    i,
					Message: fmt.Sprintf("vertex index %d out of range (mesh has %d vertices)", idx, n),
				}
			}
		}
		key := canonicalFace(f)
		if first, dup := seen[key]; dup {
			return &MeshError{
				Face:    i,
				Message: fmt.Sprintf("coincident with face %d", first),
			}
		}
		seen[key] = i
	}
	return nil
}

// canonicalFace sorts the three indices so that faces differing only in
// winding or rotation compare equal.
func canonicalFace(f Face) [3]int {
	a, b, c := f[0], f[1], f[2]
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return [3]int{a, b, c}
}

// Triangle resolves face i against the vertex list.
func (m Mesh) Triangle(i int) Triangle {
	f := m.Faces[i]
	return Triangle{A: m.Vertices[f[0]], B: m.Vertices[f[1]], C: m.Vertices[f[2]]}
}

// Clone returns a deep copy. Faces are copied too so the clone can be
// validated or extended independently.
func (m Mesh) Clone() Mesh {
	out := Mesh{
		Vertices: make([]v3.Vec, len(m.Vertices)),
		Faces:    make([]Face, len(m.Faces)),
	}
	copy(out.Vertices, m.Vertices)
	copy(out.Faces, m.Faces)
	return out
}

// IsEmpty returns true if the mesh has no geometry.
func (m Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Box returns a rectangular solid with dimensions (x, y, z) and its
// minimum corner at the origin. Vertex order is fixed and documented
// because transform rules address it:
//
//	0..3  the x=0 end face (min corner first, counter-clockwise)
//	4..7  the x=x end face
func Box(x, y, z float64) Mesh {
	verts := []v3.Vec{
		{X: 0, Y: 0, Z: 0},
		{X: 0, Y: y, Z: 0},
		{X: 0, Y: y, Z: z},
		{X: 0, Y: 0, Z: z},
		{X: x, Y: 0, Z: 0},
		{X: x, Y: y, Z: 0},
		{X: x, Y: y, Z: z},
		{X: x, Y: 0, Z: z},
	}
	faces := []Face{
		{0, 2, 1}, {0, 3, 2}, // x=0 end
		{4, 5, 6}, {4, 6, 7}, // x=max end
		{0, 1, 5}, {0, 5, 4}, // z=0 bottom
		{3, 7, 6}, {3, 6, 2}, // z=max top
		{0, 4, 7}, {0, 7, 3}, // y=0 side
		{1, 2, 6}, {1, 6, 5}, // y=max side
	}
	return Mesh{Vertices: verts, Faces: faces}
}
