// Package bom derives a bill of materials from a design: a summation
// over placed parts grouped by template and material. It carries no
// solving logic; callers are expected to run the solve pipeline first
// and only take off a validated design.
package bom

import (
	"fmt"
	"sort"

	"github.com/chazu/purlin/pkg/design"
)

// LineItem is one aggregated row of the bill.
type LineItem struct {
	Template string
	Species  string
	Grade    string
	Count    int
	// StockLength sums each instance's longest bounding extent, a
	// rough-cut length estimate in model units.
	StockLength float64
}

// Key renders the grouping key for display.
func (li LineItem) Key() string {
	if li.Species == "" {
		return li.Template
	}
	return fmt.Sprintf("%s (%s %s)", li.Template, li.Species, li.Grade)
}

// Derive aggregates the design's parts into sorted line items.
func Derive(d *design.Design) []LineItem {
	type key struct {
		template, species, grade string
	}
	acc := make(map[key]*LineItem)

	for _, p := range d.Parts() {
		m := p.Material()
		k := key{template: p.TemplateName(), species: m.Species, grade: m.Grade}
		li, ok := acc[k]
		if !ok {
			li = &LineItem{Template: k.template, Species: k.species, Grade: k.grade}
			acc[k] = li
		}
		li.Count++
		li.StockLength += p.Bounds().MaxExtent()
	}

	out := make([]LineItem, 0, len(acc))
	for _, li := range acc {
		out = append(out, *li)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Template != out[j].Template {
			return out[i].Template < out[j].Template
		}
		if out[i].Species != out[j].Species {
			return out[i].Species < out[j].Species
		}
		return out[i].Grade < out[j].Grade
	})
	return out
}
