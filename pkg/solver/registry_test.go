package solver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/purlin/pkg/geometry"
)

func TestPairRulesFailClosed(t *testing.T) {
	reg := NewPairRules()
	if _, ok := reg.Legal("beam", "post", geometry.CategoryCross); ok {
		t.Error("empty registry declared an intersection legal")
	}
}

func TestPairRulesExactMatch(t *testing.T) {
	reg := NewPairRules()
	reg.Add(PairRule{TemplateA: "beam", TemplateB: "post", Category: geometry.CategoryCross, Note: "lap joint"})

	rule, ok := reg.Legal("beam", "post", geometry.CategoryCross)
	if !ok || rule.Note != "lap joint" {
		t.Fatalf("Legal = %+v, %v", rule, ok)
	}
	// The registry is symmetric in the template pair.
	if _, ok := reg.Legal("post", "beam", geometry.CategoryCross); !ok {
		t.Error("lookup is order-sensitive")
	}
	// A different category is a different key.
	if _, ok := reg.Legal("beam", "post", geometry.CategoryNotch); ok {
		t.Error("category was ignored in lookup")
	}
}

func TestPairRulesWildcard(t *testing.T) {
	reg := NewPairRules()
	reg.Add(PairRule{TemplateA: "beam", TemplateB: Wildcard, Category: geometry.CategorySeam})

	if _, ok := reg.Legal("beam", "anything", geometry.CategorySeam); !ok {
		t.Error("one-sided wildcard did not match")
	}
	if _, ok := reg.Legal("anything", "beam", geometry.CategorySeam); !ok {
		t.Error("one-sided wildcard is order-sensitive")
	}
	if _, ok := reg.Legal("post", "stud", geometry.CategorySeam); ok {
		t.Error("wildcard matched a pair not involving its template")
	}

	reg.Add(PairRule{TemplateA: Wildcard, TemplateB: Wildcard, Category: geometry.CategorySeam})
	if _, ok := reg.Legal("post", "stud", geometry.CategorySeam); !ok {
		t.Error("double wildcard did not match")
	}
}

func TestPairRulesExactWinsOverWildcard(t *testing.T) {
	reg := NewPairRules()
	reg.Add(PairRule{TemplateA: Wildcard, TemplateB: Wildcard, Category: geometry.CategoryCross, Note: "generic"})
	reg.Add(PairRule{TemplateA: "beam", TemplateB: "post", Category: geometry.CategoryCross, Note: "specific"})

	rule, ok := reg.Legal("beam", "post", geometry.CategoryCross)
	if !ok || rule.Note != "specific" {
		t.Errorf("Legal = %+v, want the specific rule", rule)
	}
}

func TestLoadPairRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	data := `rules:
  - template_a: beam
    template_b: post
    category: cross
    note: lap joint
  - template_a: stud
    template_b: "*"
    category: seam
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := NewPairRules()
	if err := LoadPairRules(reg, path); err != nil {
		t.Fatalf("LoadPairRules: %v", err)
	}
	if reg.Size() != 2 {
		t.Fatalf("Size = %d, want 2", reg.Size())
	}
	if rule, ok := reg.Legal("post", "beam", geometry.CategoryCross); !ok || rule.Note != "lap joint" {
		t.Errorf("loaded rule missing: %+v, %v", rule, ok)
	}
}

func TestLoadPairRulesErrors(t *testing.T) {
	reg := NewPairRules()
	if err := LoadPairRules(reg, filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file did not error")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte("rules:\n  - template_a: beam\n    template_b: post\n    category: sideways\n"), 0o644)
	if err := LoadPairRules(reg, bad); err == nil {
		t.Error("unknown category did not error")
	}

	incomplete := filepath.Join(t.TempDir(), "incomplete.yaml")
	os.WriteFile(incomplete, []byte("rules:\n  - template_a: beam\n    category: cross\n"), 0o644)
	if err := LoadPairRules(reg, incomplete); err == nil {
		t.Error("missing template name did not error")
	}
}
