// Package part implements parametric parts: templates, placed
// instances, and the attribute-transform engine that deforms a part's
// mesh as named attribute values change.
package part

import (
	"sort"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/purlin/pkg/geometry"
)

// ID identifies a part instance within a design.
type ID string

// Placement positions a part in world space: Euler rotation in degrees
// about the local origin, then translation.
type Placement struct {
	Position v3.Vec
	Rotation v3.Vec
}

// Matrix returns the local-to-world transform.
func (pl Placement) Matrix() sdf.M44 {
	return geometry.PlacementMatrix(pl.Position, pl.Rotation)
}

// Part is a placed instance of a template. Identity is immutable;
// placement and attribute values change through methods that keep the
// derived mesh and bounds consistent.
type Part struct {
	id       ID
	template *Template

	placement Placement
	values    map[string]float64
	Metadata  Metadata

	// Derived state, rebuilt on every attribute change.
	mesh   geometry.Mesh
	conns  []ConnectionPoint
	bounds geometry.Bounds
}

// ID returns the instance identifier.
func (p *Part) ID() ID { return p.id }

// TemplateName returns the name of the template this part came from.
func (p *Part) TemplateName() string { return p.template.Name }

// Material returns the template's material spec.
func (p *Part) Material() Material { return p.template.Material }

// AllowedIntersections returns the template's intersection declarations.
func (p *Part) AllowedIntersections() []AllowedIntersection {
	return p.template.Intersections
}

// Placement returns the current world placement.
func (p *Part) Placement() Placement { return p.placement }

// PlaceAt sets the part's world placement. Local geometry is
// unaffected; only the world-space views change.
func (p *Part) PlaceAt(pl Placement) {
	p.placement = pl
}

// Mesh returns the part-local mesh after attribute transforms. Callers
// must treat it as read-only; only the attribute engine replaces it.
func (p *Part) Mesh() geometry.Mesh { return p.mesh }

// Connections returns the part-local connection points after attribute
// transforms. Read-only.
func (p *Part) Connections() []ConnectionPoint { return p.conns }

// Bounds returns the tight part-local bounds.
func (p *Part) Bounds() geometry.Bounds { return p.bounds }

// WorldMesh returns the mesh transformed into world space.
func (p *Part) WorldMesh() geometry.Mesh {
	return geometry.TransformMesh(p.mesh, p.placement.Matrix())
}

// WorldBounds returns tight bounds around the world-space vertices.
// The box is recomputed from transformed vertices rather than by
// transforming the local box, so it stays tight under rotation.
func (p *Part) WorldBounds() geometry.Bounds {
	return geometry.BoundsOf(geometry.TransformVerts(p.mesh.Vertices, p.placement.Matrix()))
}

// WorldConnection returns the world-space position of connection point i.
func (p *Part) WorldConnection(i int) v3.Vec {
	return p.placement.Matrix().MulPosition(p.conns[i].Local)
}

// AttributeNames returns the declared attribute names in sorted order.
func (p *Part) AttributeNames() []string {
	names := make([]string, 0, len(p.values))
	for name := range p.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Attribute returns the current value of a named attribute.
func (p *Part) Attribute(name string) (float64, bool) {
	v, ok := p.values[name]
	return v, ok
}

// SetAttribute changes a named attribute and reapplies the template's
// transform rules. On failure the part's geometry is untouched.
//
// The mesh is rebuilt from the template base rather than transformed
// incrementally: every attribute's rule chain is applied in template
// declaration order at its current value, with the effective input of
// each rule being value * multiplier. Rebuilding makes SetAttribute a
// pure function of the attribute state, so setting the same value
// twice yields identical geometry to setting it once.
func (p *Part) SetAttribute(name string, value float64) error {
	attr, ok := p.findAttribute(name)
	if !ok {
		return &AttributeError{
			Kind:      UnknownAttribute,
			Part:      p.id,
			Attribute: name,
			Message:   "not declared on template " + p.template.Name,
		}
	}
	if !attr.Domain.Allows(value) {
		return &AttributeError{
			Kind:      OutOfDomain,
			Part:      p.id,
			Attribute: name,
			Message:   "value violates declared domain",
		}
	}

	p.values[name] = value
	p.rebuild()
	return nil
}

func (p *Part) findAttribute(name string) (Attribute, bool) {
	for _, a := range p.template.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// rebuild derives the part-local mesh, connection points and bounds
// from the template base and the current attribute values.
//
// Connection points anchored to a vertex are read back from the
// transformed vertex slice, so a point defined on a moving surface
// moves with it (the reattachment invariant). Unanchored points keep
// their template-local position.
func (p *Part) rebuild() {
	verts := make([]v3.Vec, len(p.template.Base.Vertices))
	copy(verts, p.template.Base.Vertices)

	for _, a := range p.template.Attributes {
		applyRules(verts, a.Rules, p.values[a.Name])
	}

	conns := make([]ConnectionPoint, len(p.template.Connections))
	for i, c := range p.template.Connections {
		c.anchor = findAnchor(c.Local, p.template.Base.Vertices)
		if c.anchor >= 0 {
			c.Local = verts[c.anchor]
		}
		conns[i] = c
	}

	p.mesh = geometry.Mesh{Vertices: verts, Faces: p.template.Base.Faces}
	p.conns = conns
	p.bounds = geometry.MeshBounds(p.mesh)
}
