// Package transform implements the record transformer (C7): for each
// input record it seeds out = {}, iterates mappings in declared order,
// applies when/default/required/type policy, and assembles the nested
// out tree. Grounded on the teacher's internal/processor.processSingleRecord
// per-mapping loop, generalised from the teacher's flat dotted-field writes
// to the full path parser/resolver and the typed expression evaluator.
package transform

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mohae/deepcopy"

	"github.com/vinhphatfsg/transform-rules/internal/diag"
	"github.com/vinhphatfsg/transform-rules/internal/eval"
	"github.com/vinhphatfsg/transform-rules/internal/pathx"
	"github.com/vinhphatfsg/transform-rules/internal/rules"
	"github.com/vinhphatfsg/transform-rules/internal/value"
)

// Result is the outcome of transforming one record: either an assembled
// out tree or the error that aborted the record, plus any when-warnings
// collected before that point.
type Result struct {
	Out      map[string]interface{}
	Warnings []*diag.Diagnostic
	Err      *diag.Diagnostic // first error-severity diagnostic, aborts the record
}

// Transform drives rf's mappings over one input record against ctx.
func Transform(rf *rules.RuleFile, input interface{}, context interface{}) Result {
	out := map[string]interface{}{}
	var warnings []*diag.Diagnostic

	for i := range rf.Mappings {
		m := &rf.Mappings[i]
		prefix := fmt.Sprintf("mappings[%d]", i)
		ns := pathx.Namespaces{Input: input, Context: context, Out: out}

		if m.When != nil {
			wv, werr := eval.Evaluate(m.When, ns, prefix+".when")
			skip := false
			if werr != nil {
				warnings = append(warnings, diag.Warning(werr.Code, werr.LogicalPath, werr.Message))
				skip = true
			} else if wv.IsMissing() || wv.IsNull() {
				warnings = append(warnings, diag.Warning(diag.CodeWhenSkipped, prefix+".when", "when resolved to missing or null, mapping skipped"))
				skip = true
			} else if raw, _ := wv.Interface(); raw != true {
				warnings = append(warnings, diag.Warning(diag.CodeWhenSkipped, prefix+".when", "when resolved to false, mapping skipped"))
				skip = true
			}
			if skip {
				continue
			}
		}

		resolved, rerr := resolveMappingValue(m, ns, prefix)
		if rerr != nil {
			return Result{Warnings: warnings, Err: rerr}
		}

		var toWrite interface{}
		write := true

		switch {
		case resolved.IsMissing():
			if m.HasDefault {
				toWrite = m.Default
			} else if m.Required {
				return Result{Warnings: warnings, Err: diag.Runtime(diag.CodeMissingRequired, prefix, fmt.Sprintf("target %q is required but resolved to missing", m.Target))}
			} else {
				write = false
			}
		case resolved.IsNull():
			if m.Required {
				return Result{Warnings: warnings, Err: diag.Runtime(diag.CodeMissingRequired, prefix, fmt.Sprintf("target %q is required but resolved to null", m.Target))}
			}
			toWrite = nil
		default:
			raw, _ := resolved.Interface()
			toWrite = raw
		}

		if write && m.Type != "" {
			cast, cerr := castType(toWrite, rules.TypeName(m.Type))
			if cerr != nil {
				return Result{Warnings: warnings, Err: diag.Runtime(diag.CodeTypeCastFailed, prefix+".type", cerr.Error())}
			}
			toWrite = cast
		}

		if !write {
			continue
		}

		targetPath, perr := pathx.Parse(m.Target, pathx.TargetContext)
		if perr != nil {
			return Result{Warnings: warnings, Err: diag.Runtime(diag.CodeInvalidTarget, prefix+".target", perr.Error())}
		}
		if err := pathx.Set(out, targetPath.Steps, toWrite); err != nil {
			return Result{Warnings: warnings, Err: diag.Runtime(diag.CodeInvalidTarget, prefix+".target", err.Error())}
		}
	}

	return Result{Out: out, Warnings: warnings}
}

// Preflight runs Transform over every record in records but discards the
// assembled out trees, returning only the runtime diagnostics and warnings
// so a caller can surface failures before committing to a real run.
func Preflight(rf *rules.RuleFile, records []interface{}, context interface{}) (errs, warnings []*diag.Diagnostic) {
	for _, rec := range records {
		// Transform runs on a deep copy, so the caller's records are never
		// shared with the transform.
		snapshot := deepcopy.Copy(rec)
		res := Transform(rf, snapshot, context)
		warnings = append(warnings, res.Warnings...)
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errs, warnings
}

// resolveMappingValue resolves the value side of a mapping: source, value,
// or expr — exactly one is populated, enforced by the validator.
func resolveMappingValue(m *rules.Mapping, ns pathx.Namespaces, prefix string) (value.Value, *diag.Diagnostic) {
	switch {
	case m.Source != "":
		p, err := pathx.Parse(m.Source, pathx.SourceContext)
		if err != nil {
			return value.Missing, diag.Runtime(diag.CodeInvalidRef, prefix+".source", err.Error())
		}
		if p.Namespace == pathx.NsNone {
			// Bare single key defaults to input.*.
			return pathx.Resolve(ns.Input, p.Steps), nil
		}
		return pathx.ResolveRef(p, ns), nil
	case m.HasValue:
		return value.Of(m.Value), nil
	case m.Expr != nil:
		return eval.Evaluate(m.Expr, ns, prefix+".expr")
	default:
		return value.Missing, diag.Runtime(diag.CodeExprError, prefix, "mapping has none of source, value, expr")
	}
}

// castType implements the four cast rules from spec.md 4.6.
func castType(raw interface{}, t rules.TypeName) (interface{}, error) {
	switch t {
	case rules.TypeString:
		switch v := raw.(type) {
		case string:
			return v, nil
		case bool:
			if v {
				return "true", nil
			}
			return "false", nil
		case float64, int, int64:
			n, _ := value.AsFloat64(v)
			return eval.ToStringCanonical(n)
		default:
			return nil, fmt.Errorf("cannot cast %s to string", value.KindOf(raw))
		}
	case rules.TypeInt:
		n, ok := numericOf(raw)
		if !ok {
			return nil, fmt.Errorf("cannot cast %s to int", value.KindOf(raw))
		}
		if n != float64(int64(n)) {
			return nil, fmt.Errorf("value %v has a non-zero fractional part", n)
		}
		return int64(n), nil
	case rules.TypeFloat:
		n, ok := numericOf(raw)
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("cannot cast %s to float", value.KindOf(raw))
		}
		return n, nil
	case rules.TypeBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(v) {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
			return nil, fmt.Errorf("cannot cast string %q to bool", v)
		default:
			return nil, fmt.Errorf("cannot cast %s to bool", value.KindOf(raw))
		}
	default:
		return nil, fmt.Errorf("unknown type %q", t)
	}
}

func numericOf(raw interface{}) (float64, bool) {
	if n, ok := value.AsFloat64(raw); ok {
		return n, true
	}
	if s, ok := value.AsString(raw); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

