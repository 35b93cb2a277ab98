package pipeline

import (
	"context"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/purlin/pkg/design"
	"github.com/chazu/purlin/pkg/geometry"
	"github.com/chazu/purlin/pkg/part"
	"github.com/chazu/purlin/pkg/rules"
	"github.com/chazu/purlin/pkg/solver"
)

func fptr(v float64) *float64 { return &v }

// lapDesign is a beam and a post crossing in a full lap. When allow is
// set the beam template declares the crossing legal.
func lapDesign(t *testing.T, allow bool) *design.Design {
	t.Helper()

	beam := &part.Template{
		Name: "beam",
		Base: geometry.Box(4, 1, 1),
		Attributes: []part.Attribute{
			{
				Name:    "length",
				Default: 0,
				Rules: []part.TransformRule{
					{Select: part.SelectRange(4, 8), Op: geometry.OpTranslate, Direction: v3.Vec{X: 1}, Multiplier: 1},
				},
			},
		},
	}
	post := &part.Template{Name: "post", Base: geometry.Box(1, 4, 1)}
	if allow {
		beam.Intersections = []part.AllowedIntersection{
			{With: "post", Category: geometry.CategoryCross, Note: "lap joint"},
		}
	}

	d := design.New("lap")
	b, err := beam.Instantiate("beam-1")
	require.NoError(t, err)
	p, err := post.Instantiate("post-1")
	require.NoError(t, err)
	p.PlaceAt(part.Placement{Position: v3.Vec{X: 1.5, Y: -1.5}})
	require.NoError(t, d.Add(b))
	require.NoError(t, d.Add(p))
	return d
}

func emptyRuleSet() *rules.RuleSet {
	return &rules.RuleSet{Jurisdiction: "us-or", Year: 2023}
}

func TestSolveValidDesign(t *testing.T) {
	report, err := New().Solve(context.Background(), lapDesign(t, true), emptyRuleSet())
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, report.Status)
	assert.True(t, report.Success)
	assert.Empty(t, report.Findings)
}

func TestSolveCollectsAllStages(t *testing.T) {
	// An illegal crossing plus a failing regulatory rule: the report
	// carries both, geometry findings first.
	rs := emptyRuleSet()
	rs.Rules = []rules.Rule{
		&rules.AttributeRangeRule{
			RuleName: "beam-length", RuleSev: solver.SeverityError,
			Template: "beam", Attribute: "length", Min: fptr(10),
		},
	}

	report, err := New().Solve(context.Background(), lapDesign(t, false), rs)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, report.Status)
	assert.False(t, report.Success)
	require.Len(t, report.Findings, 2)
	assert.Equal(t, solver.SourceGeometry, report.Findings[0].Source)
	assert.Equal(t, solver.SourceRegulatory, report.Findings[1].Source)
}

func TestSolveWarningsStillSucceed(t *testing.T) {
	rs := emptyRuleSet()
	rs.Rules = []rules.Rule{
		&rules.AttributeRangeRule{
			RuleName: "beam-length", RuleSev: solver.SeverityWarning,
			Template: "beam", Attribute: "length", Min: fptr(10),
		},
	}

	report, err := New().Solve(context.Background(), lapDesign(t, true), rs)
	require.NoError(t, err)
	assert.True(t, report.Success, "warnings must not invalidate the design")
	require.Len(t, report.Findings, 1)
	assert.Equal(t, solver.SeverityWarning, report.Findings[0].Severity)
}

func TestSolveNilRuleSet(t *testing.T) {
	report, err := New().Solve(context.Background(), lapDesign(t, true), nil)
	var rsErr *rules.RuleSetError
	require.ErrorAs(t, err, &rsErr)
	assert.Equal(t, rules.Unloadable, rsErr.Kind)
	assert.Equal(t, StatusAborted, report.Status)
}

func TestSolveCancelledBetweenStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := New().Solve(ctx, lapDesign(t, false), emptyRuleSet())
	require.NoError(t, err, "cancellation is not an error")
	assert.Equal(t, StatusCancelled, report.Status)
	// The geometry stage ran to completion before the check, so its
	// findings are present and internally consistent.
	require.Len(t, report.Findings, 1)
	assert.Equal(t, solver.SourceGeometry, report.Findings[0].Source)
	assert.False(t, report.Success)
}

func TestSolveDefectiveRuleAborts(t *testing.T) {
	rs := emptyRuleSet()
	rs.Rules = []rules.Rule{
		&rules.MinSpacingRule{RuleName: "broken", Template: "beam", Axis: "sideways", Min: 1},
	}

	report, err := New().Solve(context.Background(), lapDesign(t, false), rs)
	var rsErr *rules.RuleSetError
	require.ErrorAs(t, err, &rsErr)
	assert.Equal(t, rules.Malformed, rsErr.Kind)
	assert.Equal(t, StatusAborted, report.Status)
	// Findings from the stages that completed survive the abort.
	require.Len(t, report.Findings, 1)
	assert.Equal(t, solver.SourceGeometry, report.Findings[0].Source)
}

func TestSolveDeterministic(t *testing.T) {
	run := func() *SolveReport {
		report, err := New(WithGeometryConfig(solver.GeometryConfig{Workers: 4})).
			Solve(context.Background(), lapDesign(t, false), emptyRuleSet())
		require.NoError(t, err)
		return report
	}
	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Errorf("two solves of the same design differ:\n%s", diff)
	}
}

func TestSolveWithExtraPairRules(t *testing.T) {
	// The site-wide registry can legalize a crossing the templates do
	// not declare.
	extra := solver.NewPairRules()
	extra.Add(solver.PairRule{
		TemplateA: "beam", TemplateB: "post", Category: geometry.CategoryCross,
	})

	report, err := New(WithPairRules(extra)).
		Solve(context.Background(), lapDesign(t, false), emptyRuleSet())
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Empty(t, report.Findings)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "complete", StatusComplete.String())
	assert.Equal(t, "cancelled", StatusCancelled.String())
	assert.Equal(t, "aborted", StatusAborted.String())
}
