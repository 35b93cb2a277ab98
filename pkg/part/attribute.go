package part

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/purlin/pkg/geometry"
)

// Selection names the vertices a TransformRule acts on. Exactly one of
// the three forms is used: explicit indices, a half-open [Start, End)
// range, or the whole mesh.
type Selection struct {
	Indices []int
	Start   int
	End     int
	All     bool
}

// SelectAll selects every vertex.
func SelectAll() Selection {
	return Selection{All: true}
}

// SelectRange selects the half-open index range [start, end).
func SelectRange(start, end int) Selection {
	return Selection{Start: start, End: end}
}

// SelectIndices selects explicit vertex indices.
func SelectIndices(indices ...int) Selection {
	return Selection{Indices: indices}
}

// indices resolves the selection against a vertex count. The caller
// has already validated the selection, so out-of-range access cannot
// occur here.
func (s Selection) indices(n int) []int {
	switch {
	case s.All:
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	case len(s.Indices) > 0:
		return s.Indices
	default:
		out := make([]int, 0, s.End-s.Start)
		for i := s.Start; i < s.End; i++ {
			out = append(out, i)
		}
		return out
	}
}

// validate checks the selection against the template mesh size.
func (s Selection) validate(n int) error {
	if s.All {
		return nil
	}
	if len(s.Indices) > 0 {
		for _, i := range s.Indices {
			if i < 0 || i >= n {
				return fmt.Errorf("vertex index %d out of range (mesh has %d vertices)", i, n)
			}
		}
		return nil
	}
	if s.Start < 0 || s.End > n || s.Start >= s.End {
		return fmt.Errorf("vertex range [%d, %d) invalid for mesh with %d vertices", s.Start, s.End, n)
	}
	return nil
}

// TransformRule deforms a vertex subset when its attribute changes.
// The effective transform magnitude is Direction scaled by
// value * Multiplier, fed through the rule's op matrix.
type TransformRule struct {
	Select     Selection
	Op         geometry.Op
	Direction  v3.Vec
	Multiplier float64
}

// Domain constrains the values an attribute accepts. Nil bounds are
// unconstrained.
type Domain struct {
	Min *float64
	Max *float64
}

// Allows reports whether v satisfies the domain.
func (d Domain) Allows(v float64) bool {
	if d.Min != nil && v < *d.Min {
		return false
	}
	if d.Max != nil && v > *d.Max {
		return false
	}
	return true
}

// Attribute is a named parametric value plus the ordered rule sequence
// that realizes it. Rules compose sequentially: when selections
// overlap, later rules act on the vertex state left by earlier ones.
type Attribute struct {
	Name    string
	Default float64
	Domain  Domain
	Rules   []TransformRule
}

// applyRules runs one attribute's rule chain over the vertex slice in
// place. Connection-point reattachment happens in the caller: points
// anchored to a vertex read their position back from the transformed
// slice, which keeps them attached to the surface they were defined on.
func applyRules(verts []v3.Vec, rules []TransformRule, value float64) {
	for _, r := range rules {
		m := geometry.Matrix(r.Op, r.Direction.MulScalar(value*r.Multiplier))
		for _, i := range r.Select.indices(len(verts)) {
			verts[i] = m.MulPosition(verts[i])
		}
	}
}

// validate checks an attribute declaration against the template mesh,
// mirroring the build-time checks the rest of the system relies on:
// rules must select real vertices and a zero multiplier would pin the
// attribute in place.
func (a Attribute) validate(vertexCount int) error {
	if a.Name == "" {
		return fmt.Errorf("attribute has no name")
	}
	if len(a.Rules) == 0 {
		return fmt.Errorf("attribute %q changes no vertices", a.Name)
	}
	if !a.Domain.Allows(a.Default) {
		return fmt.Errorf("attribute %q: default %v outside declared domain", a.Name, a.Default)
	}
	for i, r := range a.Rules {
		if r.Multiplier == 0 {
			return fmt.Errorf("attribute %q rule %d: multiplier is zero", a.Name, i)
		}
		if r.Direction == (v3.Vec{}) {
			return fmt.Errorf("attribute %q rule %d: direction is the zero vector", a.Name, i)
		}
		if err := r.Select.validate(vertexCount); err != nil {
			return fmt.Errorf("attribute %q rule %d: %w", a.Name, i, err)
		}
	}
	return nil
}
