package eval

import (
	"math"
	"strconv"
	"strings"

	"github.com/vinhphatfsg/transform-rules/internal/diag"
	"github.com/vinhphatfsg/transform-rules/internal/pathx"
	"github.com/vinhphatfsg/transform-rules/internal/rules"
	"github.com/vinhphatfsg/transform-rules/internal/value"
)

func init() {
	register("+", OpSpec{MinArgs: 2, MaxArgs: -1, Eval: numericFold(func(acc, x float64) float64 { return acc + x })})
	register("*", OpSpec{MinArgs: 2, MaxArgs: -1, Eval: numericFold(func(acc, x float64) float64 { return acc * x })})
	register("-", OpSpec{MinArgs: 2, MaxArgs: 2, Eval: evalSubtract})
	register("/", OpSpec{MinArgs: 2, MaxArgs: 2, Eval: evalDivide})
	register("round", OpSpec{MinArgs: 1, MaxArgs: 2, Eval: evalRound})
	register("to_base", OpSpec{MinArgs: 2, MaxArgs: 2, Eval: evalToBase})
}

// numericArg evaluates arg i and reports (value, missing, diag). A
// Present(null) or non-numeric value is an error, matching the "null:
// error" column for every arithmetic op.
func numericArg(args []*rules.Expr, i int, ns pathx.Namespaces, logicalPath string) (f float64, missing bool, d *diag.Diagnostic) {
	v, err := evalArg(args, i, ns, logicalPath)
	if err != nil {
		return 0, false, err
	}
	if v.IsMissing() {
		return 0, true, nil
	}
	raw, _ := v.Interface()
	n, ok := ParseNumeric(raw)
	if !ok {
		return 0, false, exprErr(logicalPath, "expected a number or numeric string at position %d, got %s", i, value.KindOf(raw))
	}
	return n, false, nil
}

func numericFold(op func(acc, x float64) float64) EvalFunc {
	return func(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
		acc, missing, err := numericArg(args, 0, ns, logicalPath)
		if err != nil {
			return value.Missing, err
		}
		if missing {
			return value.Missing, nil
		}
		for i := 1; i < len(args); i++ {
			x, m, err := numericArg(args, i, ns, logicalPath)
			if err != nil {
				return value.Missing, err
			}
			if m {
				return value.Missing, nil
			}
			acc = op(acc, x)
		}
		return value.Of(acc), nil
	}
}

func evalSubtract(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
	a, am, err := numericArg(args, 0, ns, logicalPath)
	if err != nil {
		return value.Missing, err
	}
	if am {
		return value.Missing, nil
	}
	b, bm, err := numericArg(args, 1, ns, logicalPath)
	if err != nil {
		return value.Missing, err
	}
	if bm {
		return value.Missing, nil
	}
	return value.Of(a - b), nil
}

func evalDivide(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
	a, am, err := numericArg(args, 0, ns, logicalPath)
	if err != nil {
		return value.Missing, err
	}
	if am {
		return value.Missing, nil
	}
	b, bm, err := numericArg(args, 1, ns, logicalPath)
	if err != nil {
		return value.Missing, err
	}
	if bm {
		return value.Missing, nil
	}
	r := a / b
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return value.Missing, exprErr(logicalPath, "/: result is not finite")
	}
	return value.Of(r), nil
}

func evalRound(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
	x, xm, err := numericArg(args, 0, ns, logicalPath)
	if err != nil {
		return value.Missing, err
	}
	if xm {
		return value.Missing, nil
	}
	scale := 0.0
	if len(args) == 2 {
		s, sm, err := numericArg(args, 1, ns, logicalPath)
		if err != nil {
			return value.Missing, err
		}
		if sm {
			return value.Missing, nil
		}
		if s < 0 || s != math.Trunc(s) {
			return value.Missing, exprErr(logicalPath, "round: scale must be a non-negative integer")
		}
		scale = s
	}
	mult := math.Pow(10, scale)
	return value.Of(roundHalfAwayFromZero(x*mult) / mult), nil
}

func roundHalfAwayFromZero(x float64) float64 {
	if x >= 0 {
		return math.Floor(x + 0.5)
	}
	return math.Ceil(x - 0.5)
}

func evalToBase(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
	x, xm, err := numericArg(args, 0, ns, logicalPath)
	if err != nil {
		return value.Missing, err
	}
	if xm {
		return value.Missing, nil
	}
	if x != math.Trunc(x) {
		return value.Missing, exprErr(logicalPath, "to_base: value must be an integer")
	}
	base, bm, err := numericArg(args, 1, ns, logicalPath)
	if err != nil {
		return value.Missing, err
	}
	if bm {
		return value.Missing, nil
	}
	b := int(base)
	if base != math.Trunc(base) || b < 2 || b > 36 {
		return value.Missing, exprErr(logicalPath, "to_base: base must be an integer in [2, 36]")
	}
	s := strconv.FormatInt(int64(x), b)
	return value.Of(strings.ToLower(s)), nil
}
