package solver

import (
	"context"
	"strings"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/go-cmp/cmp"

	"github.com/chazu/purlin/pkg/design"
	"github.com/chazu/purlin/pkg/geometry"
	"github.com/chazu/purlin/pkg/part"
	"github.com/chazu/purlin/pkg/spatial"
)

// crossDesign builds a beam and a post passing through each other in a
// full lap. When allow is set both templates declare the crossing legal.
func crossDesign(t *testing.T, allow bool) *design.Design {
	t.Helper()

	beam := &part.Template{Name: "beam", Base: geometry.Box(4, 1, 1)}
	post := &part.Template{Name: "post", Base: geometry.Box(1, 4, 1)}
	if allow {
		beam.Intersections = []part.AllowedIntersection{
			{With: "post", Category: geometry.CategoryCross, Note: "lap joint"},
		}
	}

	d := design.New("cross")
	b, err := beam.Instantiate("beam-1")
	if err != nil {
		t.Fatal(err)
	}
	p, err := post.Instantiate("post-1")
	if err != nil {
		t.Fatal(err)
	}
	p.PlaceAt(part.Placement{Position: v3.Vec{X: 1.5, Y: -1.5}})
	d.Add(b)
	d.Add(p)
	return d
}

func solveGeo(t *testing.T, d *design.Design) *GeometryResult {
	t.Helper()
	res, err := SolveGeometry(context.Background(), d, spatial.NewIndex(d), GatherPairRules(d), GeometryConfig{})
	if err != nil {
		t.Fatalf("SolveGeometry: %v", err)
	}
	return res
}

func TestSolveGeometryLegalCross(t *testing.T) {
	res := solveGeo(t, crossDesign(t, true))
	if len(res.Findings) != 0 {
		t.Errorf("legal joint produced findings: %v", res.Findings)
	}
	if len(res.IllegalPairs) != 0 {
		t.Errorf("legal joint flagged pairs: %v", res.IllegalPairs)
	}
}

func TestSolveGeometryUnregisteredCross(t *testing.T) {
	res := solveGeo(t, crossDesign(t, false))
	if len(res.Findings) != 1 {
		t.Fatalf("got %d findings, want 1: %v", len(res.Findings), res.Findings)
	}

	f := res.Findings[0]
	if f.Severity != SeverityError || f.Source != SourceGeometry {
		t.Errorf("finding = %+v, want a geometry error", f)
	}
	if len(f.Parts) != 2 || f.Parts[0] != "beam-1" || f.Parts[1] != "post-1" {
		t.Errorf("parts = %v, want [beam-1 post-1]", f.Parts)
	}
	if f.Location == nil {
		t.Error("finding has no location hint")
	}
	if !res.IllegalPairs[spatial.MakePair("beam-1", "post-1")] {
		t.Error("pair not flagged illegal")
	}
}

func TestSolveGeometryContainedPart(t *testing.T) {
	// A block floating wholly inside another part leaves no edge
	// crossings, so only the containment classification can flag it.
	shell := &part.Template{Name: "shell", Base: geometry.Box(10, 10, 10)}
	block := &part.Template{Name: "block", Base: geometry.Box(1, 1, 1)}

	d := design.New("swallowed")
	s, err := shell.Instantiate("shell-1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := block.Instantiate("block-1")
	if err != nil {
		t.Fatal(err)
	}
	b.PlaceAt(part.Placement{Position: v3.Vec{X: 4, Y: 4, Z: 4}})
	d.Add(s)
	d.Add(b)

	res := solveGeo(t, d)
	if len(res.Findings) != 1 {
		t.Fatalf("got %d findings, want 1: %v", len(res.Findings), res.Findings)
	}
	f := res.Findings[0]
	if f.Severity != SeverityError || f.Source != SourceGeometry {
		t.Errorf("finding = %+v, want a geometry error", f)
	}
	if !strings.Contains(f.Message, "contain") {
		t.Errorf("message %q does not name the containment", f.Message)
	}
	if !res.IllegalPairs[spatial.MakePair("block-1", "shell-1")] {
		t.Error("pair not flagged illegal")
	}
}

func TestSolveGeometryDisjointParts(t *testing.T) {
	beam := &part.Template{Name: "beam", Base: geometry.Box(4, 1, 1)}
	d := design.New("row")
	a, _ := beam.Instantiate("a")
	b, _ := beam.Instantiate("b")
	b.PlaceAt(part.Placement{Position: v3.Vec{X: 10}})
	d.Add(a)
	d.Add(b)

	res := solveGeo(t, d)
	if len(res.Findings) != 0 || len(res.IllegalPairs) != 0 {
		t.Errorf("disjoint parts produced output: %+v", res)
	}
}

func TestSolveGeometryDeterministic(t *testing.T) {
	// Parallel narrow-phase workers must not leak scheduling order into
	// the result. Two solves of the same design are byte-identical.
	cfg := GeometryConfig{Workers: 4}
	run := func() *GeometryResult {
		d := crossDesign(t, false)
		res, err := SolveGeometry(context.Background(), d, spatial.NewIndex(d), GatherPairRules(d), cfg)
		if err != nil {
			t.Fatal(err)
		}
		return res
	}
	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Errorf("two identical solves differ:\n%s", diff)
	}
}

func TestSolveGeometryRejectsMalformedMesh(t *testing.T) {
	tpl := &part.Template{Name: "beam", Base: geometry.Box(1, 1, 1)}
	p, _ := tpl.Instantiate("a")
	d := design.New("bad")
	d.Add(p)

	// Corrupt the mesh behind the accessor's back to simulate a
	// defective template that slipped past build validation.
	p.Mesh().Faces[0][0] = 99

	_, err := SolveGeometry(context.Background(), d, spatial.NewIndex(d), NewPairRules(), GeometryConfig{})
	if err == nil {
		t.Fatal("malformed mesh did not abort the solve")
	}
}

func TestGeometryConfigDefaults(t *testing.T) {
	var cfg GeometryConfig
	if cfg.seamTolerance() != DefaultSeamTolerance {
		t.Errorf("seamTolerance = %g", cfg.seamTolerance())
	}
	if cfg.workers() < 1 {
		t.Errorf("workers = %d", cfg.workers())
	}
	cfg = GeometryConfig{SeamTolerance: 2, Workers: 3}
	if cfg.seamTolerance() != 2 || cfg.workers() != 3 {
		t.Error("explicit config not honored")
	}
}
