// Package eval implements the expression evaluator (C6): it interprets a
// rules.Expr against (input, context, out) with the tri-valued semantics
// spec.md 4.5 specifies for every operator. Operator dispatch is a table
// from name to (arity, eval_fn), the same shape as the teacher's
// transform-function registry in internal/transform/transform.go, and it
// doubles as the UnknownOp oracle the validator consults.
package eval

import (
	"fmt"

	"github.com/vinhphatfsg/transform-rules/internal/diag"
	"github.com/vinhphatfsg/transform-rules/internal/pathx"
	"github.com/vinhphatfsg/transform-rules/internal/rules"
	"github.com/vinhphatfsg/transform-rules/internal/value"
)

// EvalFunc evaluates one operator application. args are the raw, not yet
// evaluated, operand expressions — each op decides its own evaluation
// order and short-circuit behaviour, as spec.md 5 requires.
type EvalFunc func(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic)

// OpSpec describes one operator: its arity bounds, an optional static
// shape check (e.g. lookup's key_path must be a non-empty string
// literal), and its evaluator.
type OpSpec struct {
	MinArgs      int
	MaxArgs      int // -1 means unbounded
	ValidateArgs func(args []*rules.Expr) string // returns a non-empty message on shape violation
	Eval         EvalFunc
}

// OpTable is the name -> spec dispatch table. The validate package checks
// UnknownOp/InvalidArgs against this same table so the two components can
// never drift apart on what a valid expression looks like.
var OpTable = map[string]OpSpec{}

func register(name string, spec OpSpec) {
	OpTable[name] = spec
}

// Evaluate interprets e against ns, returning Present(v), Missing, or a
// runtime diagnostic carrying logicalPath.
func Evaluate(e *rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
	switch e.Kind {
	case rules.ExprLit:
		return value.Of(e.Lit), nil
	case rules.ExprRef:
		p, err := pathx.Parse(e.RefPath, pathx.RefContext)
		if err != nil {
			return value.Missing, diag.Runtime(diag.CodeInvalidRef, logicalPath, err.Error())
		}
		return pathx.ResolveRef(p, ns), nil
	case rules.ExprOp:
		spec, ok := OpTable[e.OpName]
		if !ok {
			return value.Missing, diag.Runtime(diag.CodeExprError, logicalPath, fmt.Sprintf("unknown operator %q", e.OpName))
		}
		return spec.Eval(e.OpArgs, ns, logicalPath)
	default:
		return value.Missing, diag.Runtime(diag.CodeExprError, logicalPath, "expression node is neither literal, ref, nor op")
	}
}

// evalArg evaluates the i'th argument, tagging its logical path.
func evalArg(args []*rules.Expr, i int, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
	return Evaluate(args[i], ns, fmt.Sprintf("%s.args[%d]", logicalPath, i))
}

func exprErr(logicalPath, format string, a ...interface{}) *diag.Diagnostic {
	return diag.Runtime(diag.CodeExprError, logicalPath, fmt.Sprintf(format, a...))
}
