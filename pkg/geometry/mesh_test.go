package geometry

import (
	"math"
	"strings"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

func TestBoxDimensions(t *testing.T) {
	m := Box(4, 1, 2)
	if err := m.Validate(); err != nil {
		t.Fatalf("Box produced an invalid mesh: %v", err)
	}
	if len(m.Vertices) != 8 || len(m.Faces) != 12 {
		t.Fatalf("got %d vertices / %d faces, want 8 / 12", len(m.Vertices), len(m.Faces))
	}

	b := MeshBounds(m)
	if b.Min != (v3.Vec{}) {
		t.Errorf("min corner = %v, want origin", b.Min)
	}
	if b.Max != (v3.Vec{X: 4, Y: 1, Z: 2}) {
		t.Errorf("max corner = %v, want (4 1 2)", b.Max)
	}
}

func TestBoxVertexOrder(t *testing.T) {
	// Transform rules address vertices by index, so the documented
	// order is load-bearing: 0..3 are the x=0 end, 4..7 the far end.
	m := Box(10, 1, 1)
	for i := 0; i < 4; i++ {
		if m.Vertices[i].X != 0 {
			t.Errorf("vertex %d has x=%g, want 0", i, m.Vertices[i].X)
		}
	}
	for i := 4; i < 8; i++ {
		if m.Vertices[i].X != 10 {
			t.Errorf("vertex %d has x=%g, want 10", i, m.Vertices[i].X)
		}
	}
}

func TestValidateRejectsBadMeshes(t *testing.T) {
	tests := []struct {
		name string
		mesh Mesh
		want string
	}{
		{
			name: "index out of range",
			mesh: Mesh{
				Vertices: []v3.Vec{{}, {X: 1}, {Y: 1}},
				Faces:    []Face{{0, 1, 3}},
			},
			want: "out of range",
		},
		{
			name: "negative index",
			mesh: Mesh{
				Vertices: []v3.Vec{{}, {X: 1}, {Y: 1}},
				Faces:    []Face{{0, -1, 2}},
			},
			want: "out of range",
		},
		{
			name: "duplicate face different winding",
			mesh: Mesh{
				Vertices: []v3.Vec{{}, {X: 1}, {Y: 1}},
				Faces:    []Face{{0, 1, 2}, {2, 1, 0}},
			},
			want: "coincident",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.mesh.Validate()
			if err == nil {
				t.Fatal("Validate accepted a malformed mesh")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestValidateAcceptsBox(t *testing.T) {
	if err := Box(1, 1, 1).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := Box(1, 1, 1)
	c := m.Clone()
	c.Vertices[0].X = 99
	c.Faces[0][0] = 7
	if m.Vertices[0].X == 99 || m.Faces[0][0] == 7 {
		t.Error("mutating the clone changed the original")
	}
}

func TestTriangleNormal(t *testing.T) {
	tri := Triangle{A: v3.Vec{}, B: v3.Vec{X: 1}, C: v3.Vec{Y: 1}}
	n := tri.Normal()
	if n.X != 0 || n.Y != 0 || n.Z != 1 {
		t.Errorf("normal = %v, want +Z", n)
	}
}

func TestBoundsIntersects(t *testing.T) {
	a := BoundsOf([]v3.Vec{{}, {X: 1, Y: 1, Z: 1}})
	tests := []struct {
		name string
		b    Bounds
		pad  float64
		want bool
	}{
		{"overlapping", BoundsOf([]v3.Vec{{X: 0.5}, {X: 2, Y: 2, Z: 2}}), 0, true},
		{"touching face", BoundsOf([]v3.Vec{{X: 1}, {X: 2, Y: 1, Z: 1}}), 0, true},
		{"separated", BoundsOf([]v3.Vec{{X: 3}, {X: 4, Y: 1, Z: 1}}), 0, false},
		{"separated within pad", BoundsOf([]v3.Vec{{X: 1.05}, {X: 2, Y: 1, Z: 1}}), 0.1, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := a.Intersects(tc.b, tc.pad); got != tc.want {
				t.Errorf("Intersects = %v, want %v", got, tc.want)
			}
			if got := tc.b.Intersects(a, tc.pad); got != tc.want {
				t.Errorf("Intersects is not symmetric")
			}
		})
	}
}

func TestBoundsExtents(t *testing.T) {
	b := BoundsOf([]v3.Vec{{}, {X: 4, Y: 1, Z: 2}})
	if got := b.MinExtent(); got != 1 {
		t.Errorf("MinExtent = %g, want 1", got)
	}
	if got := b.MaxExtent(); got != 4 {
		t.Errorf("MaxExtent = %g, want 4", got)
	}
	c := b.Center()
	if c.X != 2 || c.Y != 0.5 || c.Z != 1 {
		t.Errorf("Center = %v, want (2 0.5 1)", c)
	}
}

func TestMatrixTranslate(t *testing.T) {
	m := Matrix(OpTranslate, v3.Vec{X: 3, Y: -1, Z: 0.5})
	p := m.MulPosition(v3.Vec{X: 1, Y: 1, Z: 1})
	want := v3.Vec{X: 4, Y: 0, Z: 1.5}
	if !nearVec(p, want, 1e-12) {
		t.Errorf("translated point = %v, want %v", p, want)
	}
}

func TestMatrixScaleZeroComponentsPassThrough(t *testing.T) {
	// A rule scaling only x must leave y and z unchanged, so zero
	// components mean identity rather than collapse.
	m := Matrix(OpScale, v3.Vec{X: 2})
	p := m.MulPosition(v3.Vec{X: 1, Y: 3, Z: 5})
	want := v3.Vec{X: 2, Y: 3, Z: 5}
	if !nearVec(p, want, 1e-12) {
		t.Errorf("scaled point = %v, want %v", p, want)
	}
}

func TestMatrixRotateZ(t *testing.T) {
	m := Matrix(OpRotate, v3.Vec{Z: 90})
	p := m.MulPosition(v3.Vec{X: 1})
	want := v3.Vec{Y: 1}
	if !nearVec(p, want, 1e-9) {
		t.Errorf("rotated point = %v, want %v", p, want)
	}
}

func TestPlacementMatrixRotatesThenTranslates(t *testing.T) {
	m := PlacementMatrix(v3.Vec{X: 10}, v3.Vec{Z: 90})
	p := m.MulPosition(v3.Vec{X: 1})
	want := v3.Vec{X: 10, Y: 1}
	if !nearVec(p, want, 1e-9) {
		t.Errorf("placed point = %v, want %v", p, want)
	}
}

func TestParseOpRoundTrip(t *testing.T) {
	for _, op := range []Op{OpTranslate, OpRotate, OpScale} {
		got, err := ParseOp(op.String())
		if err != nil {
			t.Fatalf("ParseOp(%q): %v", op, err)
		}
		if got != op {
			t.Errorf("ParseOp(%q) = %v", op, got)
		}
	}
	if _, err := ParseOp("shear"); err == nil {
		t.Error("ParseOp accepted an unknown op")
	}
}

func nearVec(a, b v3.Vec, eps float64) bool {
	return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps && math.Abs(a.Z-b.Z) <= eps
}
