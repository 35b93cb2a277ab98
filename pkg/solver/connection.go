package solver

import (
	"fmt"
	"math"
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/purlin/pkg/design"
	"github.com/chazu/purlin/pkg/part"
	"github.com/chazu/purlin/pkg/spatial"
)

// ConnectionConfig tunes the connection solver.
type ConnectionConfig struct {
	// RequireAllPoints upgrades the policy: every connection point
	// must be consumed by a match, not just one per part.
	RequireAllPoints bool
}

// Match records one consummated connection between two points.
type Match struct {
	A, B     spatial.ConnRef // canonical order: A.Less(B)
	Distance float64
}

// ConnectionResult is the connection stage output.
type ConnectionResult struct {
	Findings []Finding
	Matches  []Match
}

// candidate is a potential match before greedy selection.
type candidate struct {
	a, b spatial.ConnRef // canonical order
	dist float64
}

// SolveConnections matches compatible connection points and flags
// freestanding parts.
//
// A candidate exists when the world-space distance between two points
// on different parts is at most the sum of their radii. Matching is
// greedy by nearest distance; each point is consumed by at most one
// match and ties break on the lexicographically lowest
// (partID, connectionIndex) pair, so the outcome does not depend on
// iteration order. Pairs the geometry stage already flagged illegal
// are skipped: their problem is geometric, not connective.
func SolveConnections(d *design.Design, ix *spatial.Index, illegal map[spatial.Pair]bool, cfg ConnectionConfig) *ConnectionResult {
	candidates := gatherCandidates(d, ix, illegal)

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		if candidates[i].a != candidates[j].a {
			return candidates[i].a.Less(candidates[j].a)
		}
		return candidates[i].b.Less(candidates[j].b)
	})

	consumed := make(map[spatial.ConnRef]bool)
	matchedPart := make(map[part.ID]bool)
	res := &ConnectionResult{}

	for _, c := range candidates {
		if consumed[c.a] || consumed[c.b] {
			continue
		}
		consumed[c.a] = true
		consumed[c.b] = true
		matchedPart[c.a.Part] = true
		matchedPart[c.b.Part] = true
		res.Matches = append(res.Matches, Match{A: c.a, B: c.b, Distance: c.dist})
	}

	// A part with at least one match is anchored. A part with
	// connection points but no match at all is freestanding.
	for _, p := range d.Parts() {
		conns := p.Connections()
		if len(conns) == 0 {
			continue
		}
		if !matchedPart[p.ID()] {
			loc := p.WorldBounds().Center()
			res.Findings = append(res.Findings, Finding{
				Severity: SeverityWarning,
				Source:   SourceConnection,
				Parts:    []part.ID{p.ID()},
				Message:  "freestanding part: no connection point is matched",
				Location: &loc,
			})
			continue
		}
		if cfg.RequireAllPoints {
			for i := range conns {
				ref := spatial.ConnRef{Part: p.ID(), Index: i}
				if !consumed[ref] {
					loc := p.WorldConnection(i)
					res.Findings = append(res.Findings, Finding{
						Severity: SeverityWarning,
						Source:   SourceConnection,
						Parts:    []part.ID{p.ID()},
						Message:  fmt.Sprintf("connection point %d is unmatched", i),
						Location: &loc,
					})
				}
			}
		}
	}
	return res
}

// gatherCandidates collects every in-tolerance point pair exactly
// once, in canonical order.
func gatherCandidates(d *design.Design, ix *spatial.Index, illegal map[spatial.Pair]bool) []candidate {
	seen := make(map[[2]spatial.ConnRef]bool)
	var out []candidate

	for _, p := range d.Parts() {
		for i, c := range p.Connections() {
			ref := spatial.ConnRef{Part: p.ID(), Index: i}
			wp := p.WorldConnection(i)

			for _, cand := range ix.ConnNear([3]float64{wp.X, wp.Y, wp.Z}, c.Radius, p.ID()) {
				if illegal[spatial.MakePair(ref.Part, cand.Ref.Part)] {
					continue
				}
				dist := distance(wp, cand.Center)
				if dist > c.Radius+cand.Radius {
					continue
				}

				a, b := ref, cand.Ref
				if b.Less(a) {
					a, b = b, a
				}
				key := [2]spatial.ConnRef{a, b}
				if seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, candidate{a: a, b: b, dist: dist})
			}
		}
	}
	return out
}

func distance(a v3.Vec, b [3]float64) float64 {
	dx := a.X - b[0]
	dy := a.Y - b[1]
	dz := a.Z - b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
