package objio

import (
	"github.com/chazu/purlin/pkg/part"
)

// FromPart snapshots a placed part into a serializable document. The
// mesh is the part-local mesh after attribute transforms; placement is
// carried as metadata so a reader can re-place the instance.
func FromPart(p *part.Part) *Document {
	doc := &Document{
		Name: string(p.ID()),
		Mesh: p.Mesh().Clone(),
	}

	for _, name := range p.AttributeNames() {
		v, _ := p.Attribute(name)
		doc.Attributes = append(doc.Attributes, AttributeState{Name: name, Value: v})
	}
	for _, c := range p.Connections() {
		doc.Connections = append(doc.Connections, Connection{Position: c.Local, Radius: c.Radius})
	}

	doc.Meta = append(doc.Meta, MetaEntry{Key: "template", Value: p.TemplateName()})
	if m := p.Material(); m.Species != "" {
		doc.Meta = append(doc.Meta, MetaEntry{Key: "material", Value: m.Species})
	}
	pl := p.Placement()
	doc.Meta = append(doc.Meta, MetaEntry{
		Key: "placement",
		Value: fmtFloat(pl.Position.X) + " " + fmtFloat(pl.Position.Y) + " " + fmtFloat(pl.Position.Z) +
			" " + fmtFloat(pl.Rotation.X) + " " + fmtFloat(pl.Rotation.Y) + " " + fmtFloat(pl.Rotation.Z),
	})
	return doc
}
