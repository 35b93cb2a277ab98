package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chazu/purlin/pkg/solver"
)

// RuleSetErrorKind distinguishes the ways a rule set can be rejected.
type RuleSetErrorKind int

const (
	// Unloadable means the rule set source could not be read.
	Unloadable RuleSetErrorKind = iota
	// Malformed means the source was read but does not describe a
	// valid rule set.
	Malformed
)

func (k RuleSetErrorKind) String() string {
	switch k {
	case Unloadable:
		return "unloadable"
	case Malformed:
		return "malformed"
	default:
		return fmt.Sprintf("RuleSetErrorKind(%d)", int(k))
	}
}

// RuleSetError is fatal: compliance cannot be partially evaluated
// without a complete rule catalog, so any rule-set defect aborts the
// whole solve.
type RuleSetError struct {
	Kind   RuleSetErrorKind
	Source string
	Err    error
}

func (e *RuleSetError) Error() string {
	return fmt.Sprintf("%s rule set %s: %v", e.Kind, e.Source, e.Err)
}

func (e *RuleSetError) Unwrap() error { return e.Err }

// ---------------------------------------------------------------------------
// YAML wire format
// ---------------------------------------------------------------------------

type ruleSetFile struct {
	Jurisdiction string     `yaml:"jurisdiction"`
	Year         int        `yaml:"year"`
	Rules        []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"`
	Severity string `yaml:"severity"`
	Message  string `yaml:"message"`

	// attribute-range
	Template  string   `yaml:"template"`
	Attribute string   `yaml:"attribute"`
	Min       *float64 `yaml:"min"`
	Max       *float64 `yaml:"max"`

	// min-spacing
	Axis string `yaml:"axis"`

	// expr
	Expr string `yaml:"expr"`
}

// Load reads a rule set from a YAML file. Any defect is a
// RuleSetError: Unloadable when the file cannot be read, Malformed
// when its content does not build a complete rule catalog.
func Load(path string) (*RuleSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &RuleSetError{Kind: Unloadable, Source: path, Err: err}
	}
	rs, err := Parse(raw)
	if err != nil {
		return nil, &RuleSetError{Kind: Malformed, Source: path, Err: err}
	}
	return rs, nil
}

// Parse builds a RuleSet from YAML bytes.
func Parse(raw []byte) (*RuleSet, error) {
	var f ruleSetFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if f.Jurisdiction == "" {
		return nil, fmt.Errorf("rule set has no jurisdiction")
	}
	if f.Year == 0 {
		return nil, fmt.Errorf("rule set has no year")
	}

	rs := &RuleSet{Jurisdiction: f.Jurisdiction, Year: f.Year}
	seen := make(map[string]bool, len(f.Rules))

	for i, spec := range f.Rules {
		if spec.Name == "" {
			return nil, fmt.Errorf("rule %d has no name", i)
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("duplicate rule name %q", spec.Name)
		}
		seen[spec.Name] = true

		sev, err := solver.ParseSeverity(spec.Severity)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", spec.Name, err)
		}

		rule, err := buildRule(spec, sev)
		if err != nil {
			return nil, err
		}
		rs.Rules = append(rs.Rules, rule)
	}
	return rs, nil
}

func buildRule(spec ruleSpec, sev solver.Severity) (Rule, error) {
	switch spec.Kind {
	case "attribute-range":
		if spec.Template == "" || spec.Attribute == "" {
			return nil, fmt.Errorf("rule %q: attribute-range needs template and attribute", spec.Name)
		}
		if spec.Min == nil && spec.Max == nil {
			return nil, fmt.Errorf("rule %q: attribute-range needs min or max", spec.Name)
		}
		return &AttributeRangeRule{
			RuleName:  spec.Name,
			RuleSev:   sev,
			Template:  spec.Template,
			Attribute: spec.Attribute,
			Min:       spec.Min,
			Max:       spec.Max,
		}, nil

	case "min-spacing":
		if spec.Template == "" || spec.Axis == "" || spec.Min == nil {
			return nil, fmt.Errorf("rule %q: min-spacing needs template, axis and min", spec.Name)
		}
		switch spec.Axis {
		case "x", "y", "z":
		default:
			return nil, fmt.Errorf("rule %q: unknown axis %q", spec.Name, spec.Axis)
		}
		return &MinSpacingRule{
			RuleName: spec.Name,
			RuleSev:  sev,
			Template: spec.Template,
			Axis:     spec.Axis,
			Min:      *spec.Min,
		}, nil

	case "expr":
		if spec.Expr == "" {
			return nil, fmt.Errorf("rule %q: expr rule has no expression", spec.Name)
		}
		r := &ExprRule{
			RuleName:    spec.Name,
			RuleSev:     sev,
			Expr:        spec.Expr,
			FailMessage: spec.Message,
		}
		if err := r.Compile(); err != nil {
			return nil, err
		}
		return r, nil

	default:
		return nil, fmt.Errorf("rule %q: unknown kind %q", spec.Name, spec.Kind)
	}
}
