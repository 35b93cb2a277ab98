package part

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/chazu/purlin/pkg/geometry"
)

// Material describes the intended stock for a template. Advisory only:
// it flows into the bill of materials but never affects solving.
type Material struct {
	Species   string
	Grade     string
	Thickness float64
	Notes     string
}

// Metadata carries labels and notes on a part instance. It has no
// semantic effect on any solver.
type Metadata struct {
	Labels []string
	Notes  string
}

// AllowedIntersection declares that instances of this template may
// legally interpenetrate instances of another template when the
// overlap has the given shape category. These declarations feed the
// geometry solver's pair-rule registry.
type AllowedIntersection struct {
	With     string // other template name, "*" for any
	Category geometry.Category
	Note     string
}

// Template is a named part definition: base geometry, parametric
// attribute declarations, connection points, and material metadata.
// The base mesh is the geometry at attribute input zero; instantiation
// applies every attribute at its default value.
type Template struct {
	Name          string
	Base          geometry.Mesh
	Attributes    []Attribute
	Connections   []ConnectionPoint
	Material      Material
	Intersections []AllowedIntersection
}

// Build validates the template. Vertex selections are checked against
// the base mesh here, at definition time, so instances never have to.
func (t *Template) Build() error {
	if t.Name == "" {
		return &TemplateError{Template: t.Name, Message: "template has no name"}
	}
	if t.Base.IsEmpty() {
		return &TemplateError{Template: t.Name, Message: "template has no geometry"}
	}
	if err := t.Base.Validate(); err != nil {
		return &TemplateError{Template: t.Name, Message: err.Error()}
	}

	seen := make(map[string]bool, len(t.Attributes))
	for _, a := range t.Attributes {
		if seen[a.Name] {
			return &TemplateError{Template: t.Name, Message: fmt.Sprintf("duplicate attribute %q", a.Name)}
		}
		seen[a.Name] = true
		if err := a.validate(len(t.Base.Vertices)); err != nil {
			return &TemplateError{Template: t.Name, Message: err.Error()}
		}
	}

	for i, c := range t.Connections {
		if c.Radius <= 0 {
			return &TemplateError{
				Template: t.Name,
				Message:  fmt.Sprintf("connection point %d: radius must be positive", i),
			}
		}
		if !onSurface(c.Local, t.Base, surfaceTolerance) {
			return &TemplateError{
				Template: t.Name,
				Message:  fmt.Sprintf("connection point %d is not on the mesh surface", i),
			}
		}
	}

	for i, ai := range t.Intersections {
		if ai.With == "" {
			return &TemplateError{
				Template: t.Name,
				Message:  fmt.Sprintf("allowed intersection %d has no partner template", i),
			}
		}
	}
	return nil
}

// Instantiate creates a placed part from the template. An empty id
// gets a generated one. The new part's geometry is the base mesh with
// every attribute applied at its default value.
func (t *Template) Instantiate(id ID) (*Part, error) {
	if err := t.Build(); err != nil {
		return nil, err
	}
	if id == "" {
		id = ID(uuid.NewString())
	}

	p := &Part{
		id:       id,
		template: t,
		values:   make(map[string]float64, len(t.Attributes)),
	}
	for _, a := range t.Attributes {
		p.values[a.Name] = a.Default
	}
	p.rebuild()
	return p, nil
}
