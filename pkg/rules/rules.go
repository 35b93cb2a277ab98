// Package rules evaluates externally authored regulatory rule sets
// against a design. A rule set is loaded from a per-jurisdiction file
// and passed to the solve as an immutable value; the core's only
// contract with rule content is the Rule predicate interface.
package rules

import (
	"fmt"

	"github.com/chazu/purlin/pkg/design"
	"github.com/chazu/purlin/pkg/solver"
)

// Result is one rule's verdict over a design.
type Result struct {
	Pass    bool
	Message string
}

// Rule is a single regulatory predicate. Rules are independent: no
// rule may depend on another rule's outcome. Evaluate returns an error
// only when the rule itself cannot be evaluated, which is a rule-set
// defect and aborts the whole stage.
type Rule interface {
	Name() string
	Severity() solver.Severity
	Evaluate(d *design.Design) (Result, error)
}

// RuleSet is an immutable, versioned collection of rules for one
// jurisdiction and code year.
type RuleSet struct {
	Jurisdiction string
	Year         int
	Rules        []Rule
}

// Version renders the jurisdiction/year identity, e.g. "us-or/2023".
func (rs *RuleSet) Version() string {
	return fmt.Sprintf("%s/%d", rs.Jurisdiction, rs.Year)
}

// ---------------------------------------------------------------------------
// Built-in rule kinds
// ---------------------------------------------------------------------------

// AttributeRangeRule requires that every instance of a template keeps
// an attribute within [Min, Max]. Nil bounds are unconstrained.
type AttributeRangeRule struct {
	RuleName  string
	RuleSev   solver.Severity
	Template  string
	Attribute string
	Min       *float64
	Max       *float64
}

func (r *AttributeRangeRule) Name() string              { return r.RuleName }
func (r *AttributeRangeRule) Severity() solver.Severity { return r.RuleSev }

func (r *AttributeRangeRule) Evaluate(d *design.Design) (Result, error) {
	for _, p := range d.PartsOf(r.Template) {
		v, ok := p.Attribute(r.Attribute)
		if !ok {
			// Template lacks the attribute entirely; the rule cannot
			// apply and the instance passes by vacuity.
			continue
		}
		if r.Min != nil && v < *r.Min {
			return Result{
				Pass:    false,
				Message: fmt.Sprintf("%s: part %s %s=%v below minimum %v", r.RuleName, p.ID(), r.Attribute, v, *r.Min),
			}, nil
		}
		if r.Max != nil && v > *r.Max {
			return Result{
				Pass:    false,
				Message: fmt.Sprintf("%s: part %s %s=%v above maximum %v", r.RuleName, p.ID(), r.Attribute, v, *r.Max),
			}, nil
		}
	}
	return Result{Pass: true}, nil
}

// MinSpacingRule requires a minimum center-to-center spacing along one
// axis between every pair of instances of a template, e.g. vertical
// stud spacing.
type MinSpacingRule struct {
	RuleName string
	RuleSev  solver.Severity
	Template string
	Axis     string // "x", "y" or "z"
	Min      float64
}

func (r *MinSpacingRule) Name() string              { return r.RuleName }
func (r *MinSpacingRule) Severity() solver.Severity { return r.RuleSev }

func (r *MinSpacingRule) Evaluate(d *design.Design) (Result, error) {
	parts := d.PartsOf(r.Template)
	centers := make([]float64, len(parts))
	for i, p := range parts {
		c := p.WorldBounds().Center()
		switch r.Axis {
		case "x":
			centers[i] = c.X
		case "y":
			centers[i] = c.Y
		case "z":
			centers[i] = c.Z
		default:
			return Result{}, fmt.Errorf("rule %q: unknown axis %q", r.RuleName, r.Axis)
		}
	}

	for i := range parts {
		for j := i + 1; j < len(parts); j++ {
			gap := centers[j] - centers[i]
			if gap < 0 {
				gap = -gap
			}
			if gap < r.Min {
				return Result{
					Pass: false,
					Message: fmt.Sprintf(
						"%s: parts %s and %s are %.4g apart along %s, minimum is %.4g",
						r.RuleName, parts[i].ID(), parts[j].ID(), gap, r.Axis, r.Min,
					),
				}, nil
			}
		}
	}
	return Result{Pass: true}, nil
}
