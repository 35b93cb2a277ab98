// Package spatial provides the broad-phase proximity index the
// solvers query. It is built once per solve from a design snapshot and
// is strictly read-only afterwards: it never mutates parts.
package spatial

import (
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/chazu/purlin/pkg/design"
	"github.com/chazu/purlin/pkg/geometry"
	"github.com/chazu/purlin/pkg/part"
)

// boundsPad widens bounds rectangles slightly so parts meeting exactly
// at a face still register as broad-phase candidates.
const boundsPad = 1e-6

// Pair is an unordered part pair in canonical order (A < B).
type Pair struct {
	A, B part.ID
}

// MakePair canonicalizes an unordered pair.
func MakePair(a, b part.ID) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// ConnRef identifies one connection point on one part.
type ConnRef struct {
	Part  part.ID
	Index int
}

// Less orders connection references lexicographically by (part, index).
func (c ConnRef) Less(o ConnRef) bool {
	if c.Part != o.Part {
		return c.Part < o.Part
	}
	return c.Index < o.Index
}

// partEntry is a part's world bounds in the R-tree.
type partEntry struct {
	id   part.ID
	rect rtreego.Rect
}

func (e *partEntry) Bounds() rtreego.Rect { return e.rect }

// connEntry is a connection point's capture volume in the R-tree.
type connEntry struct {
	ref    ConnRef
	world  rtreego.Point
	radius float64
	rect   rtreego.Rect
}

func (e *connEntry) Bounds() rtreego.Rect { return e.rect }

var (
	_ rtreego.Spatial = (*partEntry)(nil)
	_ rtreego.Spatial = (*connEntry)(nil)
)

// Index answers overlap and proximity queries over a design snapshot.
type Index struct {
	parts map[part.ID]geometry.Bounds
	tree  *rtreego.Rtree
	conns *rtreego.Rtree
}

// NewIndex builds the index from the design's placed parts: one R-tree
// over world bounds and one over connection-point capture volumes.
func NewIndex(d *design.Design) *Index {
	ix := &Index{
		parts: make(map[part.ID]geometry.Bounds, d.Size()),
		tree:  rtreego.NewTree(3, 8, 32),
		conns: rtreego.NewTree(3, 8, 32),
	}

	for _, p := range d.Parts() {
		wb := p.WorldBounds()
		ix.parts[p.ID()] = wb
		ix.tree.Insert(&partEntry{id: p.ID(), rect: rectOf(wb, boundsPad)})

		for i, c := range p.Connections() {
			wp := p.WorldConnection(i)
			ix.conns.Insert(&connEntry{
				ref:    ConnRef{Part: p.ID(), Index: i},
				world:  rtreego.Point{wp.X, wp.Y, wp.Z},
				radius: c.Radius,
				rect:   sphereRect(rtreego.Point{wp.X, wp.Y, wp.Z}, c.Radius),
			})
		}
	}
	return ix
}

// rectOf converts an axis-aligned box into an rtreego rectangle,
// padded so degenerate extents stay representable.
func rectOf(b geometry.Bounds, pad float64) rtreego.Rect {
	size := b.Size()
	r, err := rtreego.NewRect(
		rtreego.Point{b.Min.X - pad, b.Min.Y - pad, b.Min.Z - pad},
		[]float64{size.X + 2*pad, size.Y + 2*pad, size.Z + 2*pad},
	)
	if err != nil {
		// Bounds are derived from finite vertices and pad is positive,
		// so lengths cannot be invalid.
		panic(err)
	}
	return r
}

// sphereRect is the axis-aligned box around a capture sphere.
func sphereRect(center rtreego.Point, radius float64) rtreego.Rect {
	if radius < boundsPad {
		radius = boundsPad
	}
	r, err := rtreego.NewRect(
		rtreego.Point{center[0] - radius, center[1] - radius, center[2] - radius},
		[]float64{2 * radius, 2 * radius, 2 * radius},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Overlaps returns every unordered part pair whose world bounds
// overlap. The result is sorted, deduplicated and independent of
// insertion order.
func (ix *Index) Overlaps() []Pair {
	seen := make(map[Pair]bool)
	var pairs []Pair

	for id, b := range ix.parts {
		for _, hit := range ix.tree.SearchIntersect(rectOf(b, boundsPad)) {
			other := hit.(*partEntry).id
			if other == id {
				continue
			}
			p := MakePair(id, other)
			if !seen[p] {
				seen[p] = true
				pairs = append(pairs, p)
			}
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	return pairs
}

// Candidates returns the IDs of parts whose bounds come within radius
// of the given part's bounds, sorted. The part itself is excluded.
func (ix *Index) Candidates(id part.ID, radius float64) []part.ID {
	b, ok := ix.parts[id]
	if !ok {
		return nil
	}
	var out []part.ID
	for _, hit := range ix.tree.SearchIntersect(rectOf(b, radius)) {
		other := hit.(*partEntry).id
		if other != id {
			out = append(out, other)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ConnCandidate is a nearby connection point found by ConnNear.
type ConnCandidate struct {
	Ref    ConnRef
	Radius float64
	// Center is the world position of the candidate point.
	Center [3]float64
}

// ConnNear returns every connection point (on any part except exclude)
// whose capture volume's bounding box intersects the query sphere's
// bounding box. This is a broad phase: callers still apply the exact
// combined-radius distance test. Results are sorted by (part, index).
func (ix *Index) ConnNear(world [3]float64, radius float64, exclude part.ID) []ConnCandidate {
	q := sphereRect(rtreego.Point{world[0], world[1], world[2]}, radius)
	var out []ConnCandidate
	for _, hit := range ix.conns.SearchIntersect(q) {
		e := hit.(*connEntry)
		if e.ref.Part == exclude {
			continue
		}
		out = append(out, ConnCandidate{
			Ref:    e.ref,
			Radius: e.radius,
			Center: [3]float64{e.world[0], e.world[1], e.world[2]},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref.Less(out[j].Ref) })
	return out
}

// Bounds returns the indexed world bounds for a part.
func (ix *Index) Bounds(id part.ID) (geometry.Bounds, bool) {
	b, ok := ix.parts[id]
	return b, ok
}
