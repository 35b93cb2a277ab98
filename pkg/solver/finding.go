// Package solver implements the geometry and connection constraint
// solvers. Each solver reads a design snapshot through the spatial
// index and produces findings; neither mutates the design.
package solver

import (
	"fmt"
	"sort"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/purlin/pkg/part"
)

// Severity indicates whether a finding blocks acceptance of the design
// or is merely advisory.
type Severity int

const (
	SeverityError   Severity = iota // design is invalid
	SeverityWarning                 // advisory
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ParseSeverity converts the wire form used in rule files.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "error":
		return SeverityError, nil
	case "warning":
		return SeverityWarning, nil
	default:
		return 0, fmt.Errorf("unknown severity %q", s)
	}
}

// Source names the solver stage that produced a finding.
type Source int

const (
	SourceGeometry Source = iota
	SourceConnection
	SourceRegulatory
)

func (s Source) String() string {
	switch s {
	case SourceGeometry:
		return "geometry"
	case SourceConnection:
		return "connection"
	case SourceRegulatory:
		return "regulatory"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// Finding is a non-fatal solver output describing one design problem.
// Findings are recomputed fresh on every solve run; they are never
// part of the persisted design.
type Finding struct {
	Severity Severity
	Source   Source
	Parts    []part.ID // the parts involved, canonical order
	Message  string
	// Location is a world-space hint at where the problem is, nil when
	// no single location applies.
	Location *v3.Vec
}

func (f Finding) String() string {
	parts := make([]string, len(f.Parts))
	for i, p := range f.Parts {
		parts[i] = string(p)
	}
	return fmt.Sprintf("[%s/%s] %s: %s", f.Source, f.Severity, strings.Join(parts, "+"), f.Message)
}

// SortFindings orders findings canonically: by source stage, then
// severity, then involved parts, then message. Solvers emit in this
// order already; the helper exists for aggregators that merge lists.
func SortFindings(fs []Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		if fs[i].Source != fs[j].Source {
			return fs[i].Source < fs[j].Source
		}
		if fs[i].Severity != fs[j].Severity {
			return fs[i].Severity < fs[j].Severity
		}
		pi := strings.Join(idStrings(fs[i].Parts), "\x00")
		pj := strings.Join(idStrings(fs[j].Parts), "\x00")
		if pi != pj {
			return pi < pj
		}
		return fs[i].Message < fs[j].Message
	})
}

func idStrings(ids []part.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
