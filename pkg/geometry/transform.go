package geometry

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Op is the kind of matrix transform a rule or placement applies.
type Op int

const (
	OpTranslate Op = iota
	OpRotate
	OpScale
)

func (o Op) String() string {
	switch o {
	case OpTranslate:
		return "translate"
	case OpRotate:
		return "rotate"
	case OpScale:
		return "scale"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// ParseOp converts the wire form used in template files back to an Op.
func ParseOp(s string) (Op, error) {
	switch s {
	case "translate":
		return OpTranslate, nil
	case "rotate":
		return OpRotate, nil
	case "scale":
		return OpScale, nil
	default:
		return 0, fmt.Errorf("unknown transform op %q", s)
	}
}

// Matrix builds the 4x4 transform for an op and per-axis magnitudes.
// Rotation angles are Euler angles in degrees, composed Z*Y*X like the
// rest of the system. Scale components of zero are passed through as 1
// so that a rule scaling only one axis leaves the others alone.
func Matrix(op Op, v v3.Vec) sdf.M44 {
	switch op {
	case OpTranslate:
		return sdf.Translate3d(v)
	case OpRotate:
		return rotateZYX(v)
	case OpScale:
		s := v
		if s.X == 0 {
			s.X = 1
		}
		if s.Y == 0 {
			s.Y = 1
		}
		if s.Z == 0 {
			s.Z = 1
		}
		return sdf.Scale3d(s)
	default:
		return sdf.Identity3d()
	}
}

// rotateZYX composes Euler rotations (degrees) in Z, Y, X order.
func rotateZYX(deg v3.Vec) sdf.M44 {
	x := deg.X * math.Pi / 180.0
	y := deg.Y * math.Pi / 180.0
	z := deg.Z * math.Pi / 180.0
	return sdf.RotateZ(z).Mul(sdf.RotateY(y)).Mul(sdf.RotateX(x))
}

// PlacementMatrix builds the local-to-world transform for a part
// placement: rotate about the local origin, then translate.
func PlacementMatrix(position, rotationDeg v3.Vec) sdf.M44 {
	return sdf.Translate3d(position).Mul(rotateZYX(rotationDeg))
}

// TransformVerts applies m to every vertex and returns a new slice.
func TransformVerts(verts []v3.Vec, m sdf.M44) []v3.Vec {
	out := make([]v3.Vec, len(verts))
	for i, v := range verts {
		out[i] = m.MulPosition(v)
	}
	return out
}

// TransformMesh applies m to a mesh's vertices, sharing the face list.
// Faces are index tuples and are unaffected by rigid transforms.
func TransformMesh(m Mesh, mat sdf.M44) Mesh {
	return Mesh{Vertices: TransformVerts(m.Vertices, mat), Faces: m.Faces}
}
