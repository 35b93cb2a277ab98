package solver

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chazu/purlin/pkg/design"
	"github.com/chazu/purlin/pkg/geometry"
)

// Wildcard matches any template name in a pair rule.
const Wildcard = "*"

// pairKey keys the registry on an unordered template pair plus the
// intersection shape category.
type pairKey struct {
	a, b     string // template names, canonical order a <= b
	category geometry.Category
}

func makePairKey(a, b string, cat geometry.Category) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a: a, b: b, category: cat}
}

// PairRule declares that one template pair may legally intersect with
// a given overlap shape.
type PairRule struct {
	TemplateA string
	TemplateB string
	Category  geometry.Category
	Note      string
}

// PairRules is the registry of declared legal intersections. Lookup is
// fail-closed: a pair/category with no matching rule is illegal.
type PairRules struct {
	rules map[pairKey]PairRule
}

// NewPairRules creates an empty registry.
func NewPairRules() *PairRules {
	return &PairRules{rules: make(map[pairKey]PairRule)}
}

// Add registers a rule. Later additions of the same key overwrite.
func (r *PairRules) Add(rule PairRule) {
	r.rules[makePairKey(rule.TemplateA, rule.TemplateB, rule.Category)] = rule
}

// Legal reports whether an intersection of the given shape between the
// two templates is declared legal. Wildcard entries are consulted
// after exact ones.
func (r *PairRules) Legal(templateA, templateB string, cat geometry.Category) (PairRule, bool) {
	if rule, ok := r.rules[makePairKey(templateA, templateB, cat)]; ok {
		return rule, true
	}
	if rule, ok := r.rules[makePairKey(templateA, Wildcard, cat)]; ok {
		return rule, true
	}
	if rule, ok := r.rules[makePairKey(templateB, Wildcard, cat)]; ok {
		return rule, true
	}
	if rule, ok := r.rules[makePairKey(Wildcard, Wildcard, cat)]; ok {
		return rule, true
	}
	return PairRule{}, false
}

// Size returns the number of registered rules.
func (r *PairRules) Size() int {
	return len(r.rules)
}

// Each calls fn for every registered rule in unspecified order.
func (r *PairRules) Each(fn func(PairRule)) {
	for _, rule := range r.rules {
		fn(rule)
	}
}

// GatherPairRules collects the allowed-intersection declarations from
// every template used in the design into a registry. Declarations are
// symmetric: either side of a pair may declare the pattern.
func GatherPairRules(d *design.Design) *PairRules {
	reg := NewPairRules()
	for _, p := range d.Parts() {
		for _, ai := range p.AllowedIntersections() {
			reg.Add(PairRule{
				TemplateA: p.TemplateName(),
				TemplateB: ai.With,
				Category:  ai.Category,
				Note:      ai.Note,
			})
		}
	}
	return reg
}

// pairRuleFile is the YAML wire form of a registry file.
type pairRuleFile struct {
	Rules []pairRuleSpec `yaml:"rules"`
}

type pairRuleSpec struct {
	TemplateA string `yaml:"template_a"`
	TemplateB string `yaml:"template_b"`
	Category  string `yaml:"category"`
	Note      string `yaml:"note"`
}

// LoadPairRules reads additional pair rules from a YAML file and adds
// them to the registry.
func LoadPairRules(reg *PairRules, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("pair rules %s: %w", path, err)
	}
	var f pairRuleFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("pair rules %s: %w", path, err)
	}
	for i, spec := range f.Rules {
		cat, err := geometry.ParseCategory(spec.Category)
		if err != nil {
			return fmt.Errorf("pair rules %s: rule %d: %w", path, i, err)
		}
		if spec.TemplateA == "" || spec.TemplateB == "" {
			return fmt.Errorf("pair rules %s: rule %d: both template names are required", path, i)
		}
		reg.Add(PairRule{
			TemplateA: spec.TemplateA,
			TemplateB: spec.TemplateB,
			Category:  cat,
			Note:      spec.Note,
		})
	}
	return nil
}
