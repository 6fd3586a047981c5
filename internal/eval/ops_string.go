package eval

import (
	"regexp"
	"strings"

	"github.com/vinhphatfsg/transform-rules/internal/diag"
	"github.com/vinhphatfsg/transform-rules/internal/pathx"
	"github.com/vinhphatfsg/transform-rules/internal/rules"
	"github.com/vinhphatfsg/transform-rules/internal/value"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func init() {
	register("concat", OpSpec{MinArgs: 1, MaxArgs: -1, Eval: evalConcat})
	register("coalesce", OpSpec{MinArgs: 1, MaxArgs: -1, Eval: evalCoalesce})
	register("to_string", OpSpec{MinArgs: 1, MaxArgs: 1, Eval: evalToString})
	register("trim", OpSpec{MinArgs: 1, MaxArgs: 1, Eval: stringUnaryOp(strings.TrimSpace)})
	register("lowercase", OpSpec{MinArgs: 1, MaxArgs: 1, Eval: stringUnaryOp(cases.Lower(language.Und).String)})
	register("uppercase", OpSpec{MinArgs: 1, MaxArgs: 1, Eval: stringUnaryOp(cases.Upper(language.Und).String)})
	register("replace", OpSpec{MinArgs: 3, MaxArgs: 4, ValidateArgs: validateReplaceArgs, Eval: evalReplace})
	register("split", OpSpec{MinArgs: 2, MaxArgs: 2, Eval: evalSplit})
	register("pad_start", OpSpec{MinArgs: 2, MaxArgs: 3, Eval: padOp(true)})
	register("pad_end", OpSpec{MinArgs: 2, MaxArgs: 3, Eval: padOp(false)})
}

func evalConcat(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
	var sb strings.Builder
	for i := range args {
		v, err := evalArg(args, i, ns, logicalPath)
		if err != nil {
			return value.Missing, err
		}
		if v.IsMissing() {
			return value.Missing, nil
		}
		raw, _ := v.Interface()
		s, cerr := ToStringCanonical(raw)
		if cerr != nil {
			return value.Missing, exprErr(logicalPath, "concat: %v", cerr)
		}
		sb.WriteString(s)
	}
	return value.Of(sb.String()), nil
}

func evalCoalesce(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
	for i := range args {
		v, err := evalArg(args, i, ns, logicalPath)
		if err != nil {
			return value.Missing, err
		}
		if v.IsPresent() && !v.IsNull() {
			return v, nil
		}
	}
	return value.Missing, nil
}

func evalToString(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
	v, err := evalArg(args, 0, ns, logicalPath)
	if err != nil {
		return value.Missing, err
	}
	if v.IsMissing() {
		return value.Missing, nil
	}
	raw, _ := v.Interface()
	s, cerr := ToStringCanonical(raw)
	if cerr != nil {
		return value.Missing, exprErr(logicalPath, "to_string: %v", cerr)
	}
	return value.Of(s), nil
}

// stringUnaryOp wraps a pure string->string function into an EvalFunc with
// the standard missing/null policy: Missing -> Missing, null -> error,
// non-string -> error.
func stringUnaryOp(f func(string) string) EvalFunc {
	return func(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
		v, err := evalArg(args, 0, ns, logicalPath)
		if err != nil {
			return value.Missing, err
		}
		if v.IsMissing() {
			return value.Missing, nil
		}
		raw, _ := v.Interface()
		s, ok := value.AsString(raw)
		if !ok {
			return value.Missing, exprErr(logicalPath, "expected string argument, got %s", value.KindOf(raw))
		}
		return value.Of(f(s)), nil
	}
}

func validateReplaceArgs(args []*rules.Expr) string {
	if len(args) == 4 {
		mode := args[3]
		if mode.Kind == rules.ExprLit {
			if s, ok := mode.Lit.(string); ok {
				switch s {
				case "", "all", "regex", "regex_all":
					return ""
				}
				return "replace: mode must be one of \"\", \"all\", \"regex\", \"regex_all\""
			}
		}
	}
	return ""
}

func evalReplace(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
	haystack, hErr := evalStringArg(args, 0, ns, logicalPath)
	if hErr.diag != nil {
		return value.Missing, hErr.diag
	}
	if hErr.missing {
		return value.Missing, nil
	}
	needle, nErr := evalStringArg(args, 1, ns, logicalPath)
	if nErr.diag != nil {
		return value.Missing, nErr.diag
	}
	if nErr.missing {
		return value.Missing, nil
	}
	repl, rErr := evalStringArg(args, 2, ns, logicalPath)
	if rErr.diag != nil {
		return value.Missing, rErr.diag
	}
	if rErr.missing {
		return value.Missing, nil
	}
	mode := ""
	if len(args) == 4 {
		mv, err := evalArg(args, 3, ns, logicalPath)
		if err != nil {
			return value.Missing, err
		}
		if mv.IsMissing() {
			return value.Missing, nil
		}
		raw, _ := mv.Interface()
		s, ok := value.AsString(raw)
		if !ok {
			return value.Missing, exprErr(logicalPath, "replace: mode must be a string")
		}
		mode = s
	}
	switch mode {
	case "", "all":
		if needle.s == "" {
			return value.Missing, exprErr(logicalPath, "replace: needle must not be empty")
		}
		n := 1
		if mode == "all" {
			n = -1
		}
		return value.Of(strings.Replace(haystack.s, needle.s, repl.s, n)), nil
	case "regex", "regex_all":
		re, err := regexp.Compile(needle.s)
		if err != nil {
			return value.Missing, exprErr(logicalPath, "replace: invalid regex %q: %v", needle.s, err)
		}
		if mode == "regex" {
			done := false
			out := re.ReplaceAllStringFunc(haystack.s, func(m string) string {
				if done {
					return m
				}
				done = true
				return repl.s
			})
			return value.Of(out), nil
		}
		return value.Of(re.ReplaceAllString(haystack.s, repl.s)), nil
	default:
		return value.Missing, exprErr(logicalPath, "replace: unknown mode %q", mode)
	}
}

func evalSplit(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
	s, sErr := evalStringArg(args, 0, ns, logicalPath)
	if sErr.diag != nil {
		return value.Missing, sErr.diag
	}
	if sErr.missing {
		return value.Missing, nil
	}
	d, dErr := evalStringArg(args, 1, ns, logicalPath)
	if dErr.diag != nil {
		return value.Missing, dErr.diag
	}
	if dErr.missing {
		return value.Missing, nil
	}
	if d.s == "" {
		return value.Missing, exprErr(logicalPath, "split: delimiter must not be empty")
	}
	parts := strings.Split(s.s, d.s)
	out := make([]interface{}, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return value.Of(out), nil
}

func padOp(start bool) EvalFunc {
	return func(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
		s, sErr := evalStringArg(args, 0, ns, logicalPath)
		if sErr.diag != nil {
			return value.Missing, sErr.diag
		}
		if sErr.missing {
			return value.Missing, nil
		}
		lv, err := evalArg(args, 1, ns, logicalPath)
		if err != nil {
			return value.Missing, err
		}
		if lv.IsMissing() {
			return value.Missing, nil
		}
		lraw, _ := lv.Interface()
		length, ok := ParseNumeric(lraw)
		if !ok || length < 0 || length != float64(int(length)) {
			return value.Missing, exprErr(logicalPath, "pad: length must be a non-negative integer")
		}
		padChar := " "
		if len(args) == 3 {
			pc, pErr := evalStringArg(args, 2, ns, logicalPath)
			if pErr.diag != nil {
				return value.Missing, pErr.diag
			}
			if pErr.missing {
				return value.Missing, nil
			}
			if pc.s != "" {
				padChar = pc.s
			}
		}
		n := int(length)
		cur := []rune(s.s)
		if len(cur) >= n {
			return value.Of(s.s), nil
		}
		need := n - len(cur)
		padRunes := []rune(padChar)
		full := make([]rune, 0, need)
		for len(full) < need {
			full = append(full, padRunes...)
		}
		padStr := string(full[:need])
		if start {
			return value.Of(padStr + s.s), nil
		}
		return value.Of(s.s + padStr), nil
	}
}

type strResult struct {
	s       string
	missing bool
	diag    *diag.Diagnostic
}

func evalStringArg(args []*rules.Expr, i int, ns pathx.Namespaces, logicalPath string) strResult {
	v, err := evalArg(args, i, ns, logicalPath)
	if err != nil {
		return strResult{diag: err}
	}
	if v.IsMissing() {
		return strResult{missing: true}
	}
	raw, _ := v.Interface()
	s, ok := value.AsString(raw)
	if !ok {
		return strResult{diag: exprErr(logicalPath, "expected string argument at position %d, got %s", i, value.KindOf(raw))}
	}
	return strResult{s: s}
}
