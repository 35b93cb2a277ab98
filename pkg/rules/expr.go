package rules

import (
	"fmt"
	"math"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/purlin/pkg/design"
	"github.com/chazu/purlin/pkg/part"
	"github.com/chazu/purlin/pkg/solver"
)

// exprTimeout is the hard limit for evaluating one expression rule.
const exprTimeout = 5 * time.Second

// ExprRule is a regulatory predicate authored as a zygomys expression.
// The expression must evaluate to a boolean; true means the design
// passes. Each evaluation runs in a fresh sandboxed environment with
// design-query builtins registered, so rule authors cannot touch the
// filesystem or leak state between rules.
//
// Builtins available to expressions:
//
//	(attr "part-id" "Attribute")     attribute value on one part
//	(min_attr "template" "Attr")    minimum over instances, +Inf if none
//	(max_attr "template" "Attr")    maximum over instances, -Inf if none
//	(count_of "template")           number of placed instances
type ExprRule struct {
	RuleName string
	RuleSev  solver.Severity
	Expr     string
	// FailMessage is reported when the expression yields false.
	FailMessage string
}

func (r *ExprRule) Name() string              { return r.RuleName }
func (r *ExprRule) Severity() solver.Severity { return r.RuleSev }

// Compile checks that the expression parses. Called at rule-set load
// time so malformed expressions surface as load failures, not as
// mid-solve surprises.
func (r *ExprRule) Compile() error {
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, nil)
	if err := env.LoadString(r.Expr); err != nil {
		return fmt.Errorf("rule %q: %w", r.RuleName, err)
	}
	return nil
}

// exprOutcome passes an evaluation result through the timeout channel.
type exprOutcome struct {
	pass bool
	err  error
}

func (r *ExprRule) Evaluate(d *design.Design) (Result, error) {
	ch := make(chan exprOutcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				ch <- exprOutcome{err: fmt.Errorf("panic during rule evaluation: %v", rec)}
			}
		}()
		pass, err := r.run(d)
		ch <- exprOutcome{pass: pass, err: err}
	}()

	timer := time.NewTimer(exprTimeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		if out.err != nil {
			return Result{}, fmt.Errorf("rule %q: %w", r.RuleName, out.err)
		}
		if out.pass {
			return Result{Pass: true}, nil
		}
		msg := r.FailMessage
		if msg == "" {
			msg = fmt.Sprintf("%s: expression %q is false", r.RuleName, r.Expr)
		}
		return Result{Pass: false, Message: msg}, nil
	case <-timer.C:
		return Result{}, fmt.Errorf("rule %q: evaluation timed out after %s", r.RuleName, exprTimeout)
	}
}

// run evaluates the expression in a fresh sandbox.
func (r *ExprRule) run(d *design.Design) (bool, error) {
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, d)

	if err := env.LoadString(r.Expr); err != nil {
		return false, err
	}
	result, err := env.Run()
	if err != nil {
		return false, err
	}

	b, ok := result.(*zygo.SexpBool)
	if !ok {
		return false, fmt.Errorf("expression must yield a boolean, got %s", result.SexpString(nil))
	}
	return b.Val, nil
}

// registerBuiltins installs the design-query functions. A nil design
// is allowed for compile-only checks; the functions are registered but
// would error if called.
func registerBuiltins(env *zygo.Zlisp, d *design.Design) {
	env.AddFunction("attr", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("attr requires a part id and an attribute name")
		}
		partID, err := argString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("attr: part id: %w", err)
		}
		attrName, err := argString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("attr: attribute: %w", err)
		}
		if d == nil {
			return zygo.SexpNull, fmt.Errorf("attr: no design bound")
		}
		p := d.Get(part.ID(partID))
		if p == nil {
			return zygo.SexpNull, fmt.Errorf("attr: no part %q", partID)
		}
		v, ok := p.Attribute(attrName)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("attr: part %q has no attribute %q", partID, attrName)
		}
		return &zygo.SexpFloat{Val: v}, nil
	})

	env.AddFunction("min_attr", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return foldAttr(d, args, math.Inf(1), math.Min)
	})

	env.AddFunction("max_attr", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return foldAttr(d, args, math.Inf(-1), math.Max)
	})

	env.AddFunction("count_of", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("count_of requires a template name")
		}
		tmpl, err := argString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("count_of: %w", err)
		}
		if d == nil {
			return zygo.SexpNull, fmt.Errorf("count_of: no design bound")
		}
		return &zygo.SexpInt{Val: int64(len(d.PartsOf(tmpl)))}, nil
	})
}

// foldAttr reduces an attribute over every instance of a template.
func foldAttr(d *design.Design, args []zygo.Sexp, init float64, fold func(a, b float64) float64) (zygo.Sexp, error) {
	if len(args) != 2 {
		return zygo.SexpNull, fmt.Errorf("requires a template name and an attribute name")
	}
	tmpl, err := argString(args[0])
	if err != nil {
		return zygo.SexpNull, err
	}
	attrName, err := argString(args[1])
	if err != nil {
		return zygo.SexpNull, err
	}
	if d == nil {
		return zygo.SexpNull, fmt.Errorf("no design bound")
	}

	acc := init
	for _, p := range d.PartsOf(tmpl) {
		if v, ok := p.Attribute(attrName); ok {
			acc = fold(acc, v)
		}
	}
	return &zygo.SexpFloat{Val: acc}, nil
}

// argString extracts a string argument from a Sexp.
func argString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}
