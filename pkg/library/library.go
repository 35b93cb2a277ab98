// Package library loads part-template libraries and design documents
// from YAML files. The core consumes the parsed, in-memory templates;
// the file format is a collaborator convenience, not a solver concern.
package library

import (
	"fmt"
	"os"
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/chazu/purlin/pkg/design"
	"github.com/chazu/purlin/pkg/geometry"
	"github.com/chazu/purlin/pkg/part"
)

// Library is a named collection of built part templates.
type Library struct {
	templates map[string]*part.Template
}

// Get returns a template by name.
func (l *Library) Get(name string) (*part.Template, error) {
	t, ok := l.templates[name]
	if !ok {
		return nil, fmt.Errorf("library: no template %q", name)
	}
	return t, nil
}

// Size returns the number of templates.
func (l *Library) Size() int { return len(l.templates) }

// Instantiate creates a placed part from the named template.
func (l *Library) Instantiate(template string, id part.ID) (*part.Part, error) {
	t, err := l.Get(template)
	if err != nil {
		return nil, err
	}
	return t.Instantiate(id)
}

// ---------------------------------------------------------------------------
// YAML wire format
// ---------------------------------------------------------------------------

type libraryFile struct {
	Templates []templateSpec `yaml:"templates" validate:"required,min=1,dive"`
}

type templateSpec struct {
	Name     string       `yaml:"name" validate:"required"`
	Material materialSpec `yaml:"material"`

	// Geometry: either a box primitive or an explicit mesh.
	Box  []float64 `yaml:"box" validate:"omitempty,len=3"`
	Mesh *meshSpec `yaml:"mesh"`

	Attributes    []attributeSpec    `yaml:"attributes" validate:"dive"`
	Connections   []connectionSpec   `yaml:"connections" validate:"dive"`
	Intersections []intersectionSpec `yaml:"intersections" validate:"dive"`
}

type materialSpec struct {
	Species   string  `yaml:"species"`
	Grade     string  `yaml:"grade"`
	Thickness float64 `yaml:"thickness"`
	Notes     string  `yaml:"notes"`
}

type meshSpec struct {
	Vertices [][]float64 `yaml:"vertices" validate:"required,dive,len=3"`
	// Faces are 1-indexed, matching the OBJ interchange convention.
	Faces [][]int `yaml:"faces" validate:"required,dive,len=3"`
}

type attributeSpec struct {
	Name    string     `yaml:"name" validate:"required"`
	Default float64    `yaml:"default"`
	Min     *float64   `yaml:"min"`
	Max     *float64   `yaml:"max"`
	Rules   []ruleSpec `yaml:"rules" validate:"required,min=1,dive"`
}

type ruleSpec struct {
	Op         string     `yaml:"op" validate:"required"`
	Direction  []float64  `yaml:"direction" validate:"required,len=3"`
	Multiplier float64    `yaml:"multiplier"`
	Select     selectSpec `yaml:"select"`
}

type selectSpec struct {
	All     bool  `yaml:"all"`
	Range   []int `yaml:"range" validate:"omitempty,len=2"`
	Indices []int `yaml:"indices"`
}

type connectionSpec struct {
	Position []float64 `yaml:"position" validate:"required,len=3"`
	Radius   float64   `yaml:"radius" validate:"required,gt=0"`
}

type intersectionSpec struct {
	With     string `yaml:"with" validate:"required"`
	Category string `yaml:"category" validate:"required"`
	Note     string `yaml:"note"`
}

// Load reads and builds a template library from a YAML file.
func Load(path string) (*Library, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("library %s: %w", path, err)
	}
	lib, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("library %s: %w", path, err)
	}
	return lib, nil
}

// Parse builds a library from YAML bytes. Every template is built
// (vertex selections validated, connection points checked against the
// surface) before the library is returned.
func Parse(raw []byte) (*Library, error) {
	var f libraryFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(f); err != nil {
		return nil, err
	}

	lib := &Library{templates: make(map[string]*part.Template, len(f.Templates))}
	for _, spec := range f.Templates {
		if _, dup := lib.templates[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate template %q", spec.Name)
		}
		t, err := buildTemplate(spec)
		if err != nil {
			return nil, err
		}
		lib.templates[spec.Name] = t
	}
	return lib, nil
}

func buildTemplate(spec templateSpec) (*part.Template, error) {
	mesh, err := buildMesh(spec)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", spec.Name, err)
	}

	t := &part.Template{
		Name: spec.Name,
		Base: mesh,
		Material: part.Material{
			Species:   spec.Material.Species,
			Grade:     spec.Material.Grade,
			Thickness: spec.Material.Thickness,
			Notes:     spec.Material.Notes,
		},
	}

	for _, a := range spec.Attributes {
		attr := part.Attribute{
			Name:    a.Name,
			Default: a.Default,
			Domain:  part.Domain{Min: a.Min, Max: a.Max},
		}
		for _, r := range a.Rules {
			op, err := geometry.ParseOp(r.Op)
			if err != nil {
				return nil, fmt.Errorf("template %q attribute %q: %w", spec.Name, a.Name, err)
			}
			mult := r.Multiplier
			if mult == 0 {
				mult = 1
			}
			attr.Rules = append(attr.Rules, part.TransformRule{
				Op:         op,
				Direction:  vecOf(r.Direction),
				Multiplier: mult,
				Select:     buildSelection(r.Select),
			})
		}
		t.Attributes = append(t.Attributes, attr)
	}

	for _, c := range spec.Connections {
		t.Connections = append(t.Connections, part.ConnectionPoint{
			Local:  vecOf(c.Position),
			Radius: c.Radius,
		})
	}

	for _, ai := range spec.Intersections {
		cat, err := geometry.ParseCategory(ai.Category)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", spec.Name, err)
		}
		t.Intersections = append(t.Intersections, part.AllowedIntersection{
			With:     ai.With,
			Category: cat,
			Note:     ai.Note,
		})
	}

	if err := t.Build(); err != nil {
		return nil, err
	}
	return t, nil
}

func buildMesh(spec templateSpec) (geometry.Mesh, error) {
	switch {
	case len(spec.Box) == 3 && spec.Mesh == nil:
		return geometry.Box(spec.Box[0], spec.Box[1], spec.Box[2]), nil
	case spec.Mesh != nil && len(spec.Box) == 0:
		m := geometry.Mesh{
			Vertices: make([]v3.Vec, len(spec.Mesh.Vertices)),
			Faces:    make([]geometry.Face, len(spec.Mesh.Faces)),
		}
		for i, v := range spec.Mesh.Vertices {
			m.Vertices[i] = vecOf(v)
		}
		for i, f := range spec.Mesh.Faces {
			if f[0] < 1 || f[1] < 1 || f[2] < 1 {
				return geometry.Mesh{}, fmt.Errorf("face %d: indices are 1-based", i)
			}
			m.Faces[i] = geometry.Face{f[0] - 1, f[1] - 1, f[2] - 1}
		}
		return m, nil
	default:
		return geometry.Mesh{}, fmt.Errorf("exactly one of box or mesh is required")
	}
}

func buildSelection(s selectSpec) part.Selection {
	switch {
	case s.All:
		return part.SelectAll()
	case len(s.Indices) > 0:
		return part.SelectIndices(s.Indices...)
	case len(s.Range) == 2:
		return part.SelectRange(s.Range[0], s.Range[1])
	default:
		// An unspecified selection means the whole mesh.
		return part.SelectAll()
	}
}

func vecOf(f []float64) v3.Vec {
	return v3.Vec{X: f[0], Y: f[1], Z: f[2]}
}

// ---------------------------------------------------------------------------
// Design documents
// ---------------------------------------------------------------------------

type designFile struct {
	Name  string         `yaml:"name" validate:"required"`
	Parts []instanceSpec `yaml:"parts" validate:"required,min=1,dive"`
}

type instanceSpec struct {
	Name       string             `yaml:"name"`
	Template   string             `yaml:"template" validate:"required"`
	Position   []float64          `yaml:"position" validate:"omitempty,len=3"`
	Rotation   []float64          `yaml:"rotation" validate:"omitempty,len=3"`
	Attributes map[string]float64 `yaml:"attributes"`
}

// LoadDesign reads a design document and instantiates its parts from
// the library.
func LoadDesign(path string, lib *Library) (*design.Design, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("design %s: %w", path, err)
	}
	d, err := ParseDesign(raw, lib)
	if err != nil {
		return nil, fmt.Errorf("design %s: %w", path, err)
	}
	return d, nil
}

// ParseDesign builds a design from YAML bytes. Attribute values are
// applied through the attribute engine, so domain violations surface
// here rather than at solve time.
func ParseDesign(raw []byte, lib *Library) (*design.Design, error) {
	var f designFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(f); err != nil {
		return nil, err
	}

	d := design.New(f.Name)
	for _, spec := range f.Parts {
		p, err := lib.Instantiate(spec.Template, part.ID(spec.Name))
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(spec.Attributes))
		for name := range spec.Attributes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := p.SetAttribute(name, spec.Attributes[name]); err != nil {
				return nil, err
			}
		}
		pl := part.Placement{}
		if len(spec.Position) == 3 {
			pl.Position = vecOf(spec.Position)
		}
		if len(spec.Rotation) == 3 {
			pl.Rotation = vecOf(spec.Rotation)
		}
		p.PlaceAt(pl)
		if err := d.Add(p); err != nil {
			return nil, err
		}
	}
	return d, nil
}
