package eval

import (
	"regexp"

	"github.com/vinhphatfsg/transform-rules/internal/diag"
	"github.com/vinhphatfsg/transform-rules/internal/pathx"
	"github.com/vinhphatfsg/transform-rules/internal/rules"
	"github.com/vinhphatfsg/transform-rules/internal/value"
)

func init() {
	register("and", OpSpec{MinArgs: 2, MaxArgs: -1, Eval: boolFold(false)})
	register("or", OpSpec{MinArgs: 2, MaxArgs: -1, Eval: boolFold(true)})
	register("not", OpSpec{MinArgs: 1, MaxArgs: 1, Eval: evalNot})
	register("==", OpSpec{MinArgs: 2, MaxArgs: 2, Eval: equalityOp(false)})
	register("!=", OpSpec{MinArgs: 2, MaxArgs: 2, Eval: equalityOp(true)})
	register("<", OpSpec{MinArgs: 2, MaxArgs: 2, Eval: compareOp(func(a, b float64) bool { return a < b })})
	register("<=", OpSpec{MinArgs: 2, MaxArgs: 2, Eval: compareOp(func(a, b float64) bool { return a <= b })})
	register(">", OpSpec{MinArgs: 2, MaxArgs: 2, Eval: compareOp(func(a, b float64) bool { return a > b })})
	register(">=", OpSpec{MinArgs: 2, MaxArgs: 2, Eval: compareOp(func(a, b float64) bool { return a >= b })})
	register("~=", OpSpec{MinArgs: 2, MaxArgs: 2, Eval: evalRegexMatch})
}

// boolFold implements and/or. decisive is the value that short-circuits
// the fold (false for and, true for or): the first operand equal to
// decisive returns immediately; a Missing operand is remembered but does
// not stop evaluation; a present non-bool operand (including null) is an
// error.
func boolFold(decisive bool) EvalFunc {
	return func(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
		sawMissing := false
		for i := range args {
			v, err := evalArg(args, i, ns, logicalPath)
			if err != nil {
				return value.Missing, err
			}
			if v.IsMissing() {
				sawMissing = true
				continue
			}
			raw, _ := v.Interface()
			b, ok := value.AsBool(raw)
			if !ok {
				return value.Missing, exprErr(logicalPath, "expected bool at position %d, got %s", i, value.KindOf(raw))
			}
			if b == decisive {
				return value.Of(decisive), nil
			}
		}
		if sawMissing {
			return value.Missing, nil
		}
		return value.Of(!decisive), nil
	}
}

func evalNot(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
	v, err := evalArg(args, 0, ns, logicalPath)
	if err != nil {
		return value.Missing, err
	}
	if v.IsMissing() {
		return value.Missing, nil
	}
	raw, _ := v.Interface()
	b, ok := value.AsBool(raw)
	if !ok {
		return value.Missing, exprErr(logicalPath, "not: expected bool, got %s", value.KindOf(raw))
	}
	return value.Of(!b), nil
}

// equalityOp implements == and !=. Missing is coerced to Present(null);
// only null==null is true; otherwise both sides are stringified per the
// shared canonical helper and compared.
func equalityOp(negate bool) EvalFunc {
	return func(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
		a, err := evalArg(args, 0, ns, logicalPath)
		if err != nil {
			return value.Missing, err
		}
		b, err := evalArg(args, 1, ns, logicalPath)
		if err != nil {
			return value.Missing, err
		}
		araw := rawOrNull(a)
		braw := rawOrNull(b)
		var eq bool
		if araw == nil && braw == nil {
			eq = true
		} else if araw == nil || braw == nil {
			eq = false
		} else {
			as, aerr := ToStringCanonical(araw)
			if aerr != nil {
				return value.Missing, exprErr(logicalPath, "==: %v", aerr)
			}
			bs, berr := ToStringCanonical(braw)
			if berr != nil {
				return value.Missing, exprErr(logicalPath, "==: %v", berr)
			}
			eq = as == bs
		}
		if negate {
			eq = !eq
		}
		return value.Of(eq), nil
	}
}

func rawOrNull(v value.Value) interface{} {
	if v.IsMissing() {
		return nil
	}
	raw, _ := v.Interface()
	return raw
}

func compareOp(cmp func(a, b float64) bool) EvalFunc {
	return func(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
		a, err := evalArg(args, 0, ns, logicalPath)
		if err != nil {
			return value.Missing, err
		}
		if a.IsMissing() || a.IsNull() {
			return value.Missing, exprErr(logicalPath, "comparison operand is missing or null")
		}
		b, err := evalArg(args, 1, ns, logicalPath)
		if err != nil {
			return value.Missing, err
		}
		if b.IsMissing() || b.IsNull() {
			return value.Missing, exprErr(logicalPath, "comparison operand is missing or null")
		}
		araw, _ := a.Interface()
		braw, _ := b.Interface()
		af, ok := ParseNumeric(araw)
		if !ok {
			return value.Missing, exprErr(logicalPath, "comparison operand is not numeric: %v", araw)
		}
		bf, ok := ParseNumeric(braw)
		if !ok {
			return value.Missing, exprErr(logicalPath, "comparison operand is not numeric: %v", braw)
		}
		return value.Of(cmp(af, bf)), nil
	}
}

func evalRegexMatch(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
	left, lErr := evalStringArg(args, 0, ns, logicalPath)
	if lErr.diag != nil {
		return value.Missing, lErr.diag
	}
	if lErr.missing {
		return value.Missing, nil
	}
	pattern, pErr := evalStringArg(args, 1, ns, logicalPath)
	if pErr.diag != nil {
		return value.Missing, pErr.diag
	}
	if pErr.missing {
		return value.Missing, nil
	}
	re, err := regexp.Compile(pattern.s)
	if err != nil {
		return value.Missing, exprErr(logicalPath, "~=: invalid regex %q: %v", pattern.s, err)
	}
	return value.Of(re.MatchString(left.s)), nil
}
