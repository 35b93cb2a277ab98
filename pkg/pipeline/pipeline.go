// Package pipeline orchestrates a solve: geometry solver, connection
// solver, then regulatory rule engine, in that fixed order over one
// design snapshot.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/chazu/purlin/pkg/design"
	"github.com/chazu/purlin/pkg/part"
	"github.com/chazu/purlin/pkg/rules"
	"github.com/chazu/purlin/pkg/solver"
	"github.com/chazu/purlin/pkg/spatial"
)

// Status reports how far a solve ran.
type Status int

const (
	// StatusComplete means all three stages ran.
	StatusComplete Status = iota
	// StatusCancelled means the run was cancelled between stages; the
	// report carries only the findings of stages that completed.
	StatusCancelled
	// StatusAborted means a stage failed fatally; the report carries
	// the findings of earlier completed stages and Solve also returned
	// an error.
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusCancelled:
		return "cancelled"
	case StatusAborted:
		return "aborted"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// SolveReport aggregates the findings of one solve run. Findings are
// ordered by stage (geometry, connection, regulatory) and canonically
// within each stage, so two solves of the same design produce
// byte-identical reports.
type SolveReport struct {
	Findings []solver.Finding
	Matches  []solver.Match
	Status   Status
	// Success is true iff the run completed and no finding has
	// severity error. A run that finds many violations is still a
	// successful run; Success just says the design is invalid.
	Success bool
}

// Orchestrator runs the solver stages. The zero value is not usable;
// construct with New.
type Orchestrator struct {
	log      *zap.Logger
	geometry solver.GeometryConfig
	conn     solver.ConnectionConfig
	extra    *solver.PairRules // registry entries beyond template declarations
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger. Default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithGeometryConfig overrides geometry solver tuning.
func WithGeometryConfig(cfg solver.GeometryConfig) Option {
	return func(o *Orchestrator) { o.geometry = cfg }
}

// WithConnectionConfig overrides connection solver tuning.
func WithConnectionConfig(cfg solver.ConnectionConfig) Option {
	return func(o *Orchestrator) { o.conn = cfg }
}

// WithPairRules adds registry entries on top of the designs' template
// declarations, e.g. a site-wide allowed-intersection file.
func WithPairRules(reg *solver.PairRules) Option {
	return func(o *Orchestrator) { o.extra = reg }
}

// New creates an orchestrator.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Solve runs the three solver stages over one design snapshot.
//
// The design is never mutated; only the report is produced. A fatal
// stage error (malformed geometry, defective rule set) aborts the
// pipeline: the returned report still carries the findings of earlier
// completed stages alongside the error. Cancellation is cooperative
// and checked between stages only, so stage outputs are always
// internally consistent; a cancelled run returns the completed stages'
// findings with StatusCancelled and no error.
func (o *Orchestrator) Solve(ctx context.Context, d *design.Design, rs *rules.RuleSet) (*SolveReport, error) {
	report := &SolveReport{Status: StatusComplete}
	if rs == nil {
		report.Status = StatusAborted
		return report, &rules.RuleSetError{Kind: rules.Unloadable, Source: "(nil)", Err: fmt.Errorf("no rule set supplied")}
	}

	o.log.Info("solve started",
		zap.String("design", d.Name),
		zap.Int("parts", d.Size()),
		zap.String("ruleset", rs.Version()),
	)

	ix := spatial.NewIndex(d)
	registry := solver.GatherPairRules(d)
	if o.extra != nil {
		mergeRegistries(registry, o.extra)
	}

	// Stage 1: geometry.
	geo, err := solver.SolveGeometry(ctx, d, ix, registry, o.geometry)
	if err != nil {
		o.log.Error("geometry stage failed", zap.Error(err))
		report.Status = StatusAborted
		return report, err
	}
	report.Findings = append(report.Findings, geo.Findings...)
	o.log.Debug("geometry stage done",
		zap.Int("findings", len(geo.Findings)),
		zap.Int("illegal_pairs", len(geo.IllegalPairs)),
	)

	if cancelled(ctx) {
		report.Status = StatusCancelled
		return report, nil
	}

	// Stage 2: connections, skipping pairs already flagged illegal.
	conn := solver.SolveConnections(d, ix, geo.IllegalPairs, o.conn)
	report.Findings = append(report.Findings, conn.Findings...)
	report.Matches = conn.Matches
	o.log.Debug("connection stage done",
		zap.Int("findings", len(conn.Findings)),
		zap.Int("matches", len(conn.Matches)),
	)

	if cancelled(ctx) {
		report.Status = StatusCancelled
		return report, nil
	}

	// Stage 3: regulatory rules.
	regFindings, err := o.evaluateRules(d, rs)
	if err != nil {
		o.log.Error("regulatory stage failed", zap.Error(err))
		report.Status = StatusAborted
		return report, err
	}
	report.Findings = append(report.Findings, regFindings...)
	o.log.Debug("regulatory stage done", zap.Int("findings", len(regFindings)))

	report.Success = true
	for _, f := range report.Findings {
		if f.Severity == solver.SeverityError {
			report.Success = false
			break
		}
	}
	o.log.Info("solve finished",
		zap.Bool("success", report.Success),
		zap.Int("findings", len(report.Findings)),
	)
	return report, nil
}

// evaluateRules runs every rule independently. A rule that cannot be
// evaluated makes the whole catalog unusable, which is fatal.
func (o *Orchestrator) evaluateRules(d *design.Design, rs *rules.RuleSet) ([]solver.Finding, error) {
	var findings []solver.Finding
	for _, rule := range rs.Rules {
		res, err := rule.Evaluate(d)
		if err != nil {
			return nil, &rules.RuleSetError{Kind: rules.Malformed, Source: rs.Version(), Err: err}
		}
		if res.Pass {
			continue
		}
		msg := res.Message
		if msg == "" {
			msg = fmt.Sprintf("rule %s failed", rule.Name())
		}
		findings = append(findings, solver.Finding{
			Severity: rule.Severity(),
			Source:   solver.SourceRegulatory,
			Parts:    []part.ID{},
			Message:  msg,
		})
	}
	solver.SortFindings(findings)
	return findings, nil
}

func cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// mergeRegistries copies src entries into dst.
func mergeRegistries(dst, src *solver.PairRules) {
	src.Each(func(rule solver.PairRule) {
		dst.Add(rule)
	})
}
