// Package design holds the unit of solving: a set of placed parts
// sharing one world coordinate space.
package design

import (
	"fmt"
	"sort"

	"github.com/chazu/purlin/pkg/part"
)

// Design owns a set of placed parts. Solvers read it and produce
// findings; they never mutate it. Mutation happens between solve runs
// through the methods below.
type Design struct {
	Name  string
	parts map[part.ID]*part.Part
}

// New creates an empty design.
func New(name string) *Design {
	return &Design{
		Name:  name,
		parts: make(map[part.ID]*part.Part),
	}
}

// Add places a part into the design. Part IDs are unique per design.
func (d *Design) Add(p *part.Part) error {
	if _, exists := d.parts[p.ID()]; exists {
		return fmt.Errorf("design %q: part %q already placed", d.Name, p.ID())
	}
	d.parts[p.ID()] = p
	return nil
}

// Remove deletes a part from the design.
func (d *Design) Remove(id part.ID) error {
	if _, exists := d.parts[id]; !exists {
		return fmt.Errorf("design %q: no part %q", d.Name, id)
	}
	delete(d.parts, id)
	return nil
}

// Get returns the part with the given ID, or nil.
func (d *Design) Get(id part.ID) *part.Part {
	return d.parts[id]
}

// Reposition moves an existing part to a new world placement.
func (d *Design) Reposition(id part.ID, pl part.Placement) error {
	p, exists := d.parts[id]
	if !exists {
		return fmt.Errorf("design %q: no part %q", d.Name, id)
	}
	p.PlaceAt(pl)
	return nil
}

// SetAttribute changes an attribute on a placed part.
func (d *Design) SetAttribute(id part.ID, name string, value float64) error {
	p, exists := d.parts[id]
	if !exists {
		return fmt.Errorf("design %q: no part %q", d.Name, id)
	}
	return p.SetAttribute(name, value)
}

// Parts returns the placed parts sorted by ID. Every consumer iterates
// in this order, which is what makes solver output independent of map
// iteration order.
func (d *Design) Parts() []*part.Part {
	out := make([]*part.Part, 0, len(d.parts))
	for _, p := range d.parts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// PartsOf returns the placed parts instantiated from the named
// template, sorted by ID.
func (d *Design) PartsOf(template string) []*part.Part {
	var out []*part.Part
	for _, p := range d.Parts() {
		if p.TemplateName() == template {
			out = append(out, p)
		}
	}
	return out
}

// Size returns the number of placed parts.
func (d *Design) Size() int {
	return len(d.parts)
}
