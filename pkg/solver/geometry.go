package solver

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/purlin/pkg/design"
	"github.com/chazu/purlin/pkg/geometry"
	"github.com/chazu/purlin/pkg/part"
	"github.com/chazu/purlin/pkg/spatial"
)

// DefaultSeamTolerance is the penetration depth (model units) below
// which an interpenetration is classified as a seam rather than a
// notch or crossing.
const DefaultSeamTolerance = 0.5

// GeometryConfig tunes the geometry solver.
type GeometryConfig struct {
	// SeamTolerance overrides DefaultSeamTolerance when positive.
	SeamTolerance float64
	// Workers caps the parallel narrow-phase workers. Zero means one
	// per CPU.
	Workers int
}

func (c GeometryConfig) seamTolerance() float64 {
	if c.SeamTolerance > 0 {
		return c.SeamTolerance
	}
	return DefaultSeamTolerance
}

func (c GeometryConfig) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// GeometryResult is the geometry stage output: the findings plus the
// set of pairs found illegal, which the connection solver consults to
// avoid duplicate noise.
type GeometryResult struct {
	Findings     []Finding
	IllegalPairs map[spatial.Pair]bool
}

// pairOutcome is the narrow-phase result for one candidate pair.
type pairOutcome struct {
	pair    spatial.Pair
	isect   geometry.Intersection
	legal   bool
	note    string
	meshErr error
}

// SolveGeometry detects and classifies part-pair intersections.
//
// For every pair the spatial index flags as bounds-overlapping, the
// exact mesh intersection runs in world space. Each interpenetration
// is classified against the pair-rule registry keyed by
// (templateA, templateB, category); absence of a matching rule makes
// it illegal (fail-closed). Pair tests are pure functions of two
// immutable parts, so they run on a worker pool; results merge in the
// pre-sorted pair order, keeping output deterministic.
//
// A structurally invalid mesh is a fatal error, not a finding.
func SolveGeometry(ctx context.Context, d *design.Design, ix *spatial.Index, reg *PairRules, cfg GeometryConfig) (*GeometryResult, error) {
	for _, p := range d.Parts() {
		if err := p.Mesh().Validate(); err != nil {
			return nil, fmt.Errorf("part %s: %w", p.ID(), err)
		}
	}

	pairs := ix.Overlaps()
	outcomes := make([]pairOutcome, len(pairs))
	tol := cfg.seamTolerance()

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers())
	for i, pr := range pairs {
		g.Go(func() error {
			a := d.Get(pr.A)
			b := d.Get(pr.B)
			isect := geometry.Intersect(a.WorldMesh(), b.WorldMesh(), tol)

			out := pairOutcome{pair: pr, isect: isect}
			if isect.Category != geometry.CategoryNone {
				rule, ok := reg.Legal(a.TemplateName(), b.TemplateName(), isect.Category)
				out.legal = ok
				out.note = rule.Note
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &GeometryResult{IllegalPairs: make(map[spatial.Pair]bool)}
	for _, out := range outcomes {
		if out.isect.Category == geometry.CategoryNone {
			continue
		}
		if out.legal {
			continue
		}

		res.IllegalPairs[out.pair] = true
		loc := out.isect.Extent.Center()
		a := d.Get(out.pair.A)
		b := d.Get(out.pair.B)
		res.Findings = append(res.Findings, Finding{
			Severity: SeverityError,
			Source:   SourceGeometry,
			Parts:    []part.ID{out.pair.A, out.pair.B},
			Message: fmt.Sprintf(
				"unresolved %s intersection between %s (%s) and %s (%s)",
				out.isect.Category, out.pair.A, a.TemplateName(), out.pair.B, b.TemplateName(),
			),
			Location: &loc,
		})
	}
	return res, nil
}
