// Package validate implements the static validator (C5): it shape-checks a
// loaded rule.RuleFile and emits a diag.List of diagnostics. Grounded on the
// teacher's internal/config/validation.go accumulator pattern: every check
// appends to a list, nothing short-circuits, the final list is either empty
// or the full set of findings.
package validate

import (
	"fmt"

	"github.com/vinhphatfsg/transform-rules/internal/diag"
	"github.com/vinhphatfsg/transform-rules/internal/eval"
	"github.com/vinhphatfsg/transform-rules/internal/pathx"
	"github.com/vinhphatfsg/transform-rules/internal/rules"
)

// Validate runs every check against rf and returns the accumulated
// diagnostics. An empty list means the rule file is safe to execute.
func Validate(rf *rules.RuleFile) *diag.List {
	l := &diag.List{}

	if rf.Version != 1 {
		l.Add(diag.New(diag.CodeInvalidVersion, "version", fmt.Sprintf("version must be 1, got %d", rf.Version)))
	}

	validateInput(l, &rf.Input)

	targetIndex := map[string]int{} // target -> first mapping index that produces it
	for i, m := range rf.Mappings {
		validateMapping(l, rf, i, &m, targetIndex)
	}

	return l
}

func validateInput(l *diag.List, in *rules.InputSpec) {
	switch in.Format {
	case rules.FormatCSV:
		if in.CSV == nil {
			l.Add(diag.New(diag.CodeMissingCsvSection, "input", "format is csv but input.csv is absent"))
			return
		}
		if len(in.CSV.Delimiter) != 1 {
			l.Add(diag.New(diag.CodeInvalidDelimiterLen, "input.csv.delimiter", fmt.Sprintf("delimiter must be exactly one character, got %q", in.CSV.Delimiter)))
		}
		if !in.CSV.HasHeader && len(in.CSV.Columns) == 0 {
			l.Add(diag.New(diag.CodeMissingCsvColumns, "input.csv.columns", "has_header=false requires non-empty columns"))
		}
	case rules.FormatJSON:
		if in.JSON == nil {
			l.Add(diag.New(diag.CodeMissingJsonSection, "input", "format is json but input.json is absent"))
			return
		}
		if in.JSON.RecordsPath != "" {
			if _, err := pathx.Parse(in.JSON.RecordsPath, pathx.RecordsPathContext); err != nil {
				l.Add(diag.New(diag.CodeInvalidPath, "input.json.records_path", err.Error()))
			}
		}
	case rules.FormatXLSX:
		if in.XLSX == nil {
			l.Add(diag.New(diag.CodeMissingCsvSection, "input", "format is xlsx but input.xlsx is absent"))
			return
		}
		if !in.XLSX.HasHeader && len(in.XLSX.Columns) == 0 {
			l.Add(diag.New(diag.CodeMissingCsvColumns, "input.xlsx.columns", "has_header=false requires non-empty columns"))
		}
	case rules.FormatPostgres:
		if in.Postgres == nil {
			l.Add(diag.New(diag.CodeMissingJsonSection, "input", "format is postgres but input.postgres is absent"))
			return
		}
		if in.Postgres.Query == "" {
			l.Add(diag.New(diag.CodeInvalidInputFormat, "input.postgres.query", "query must not be empty"))
		}
	case "":
		l.Add(diag.New(diag.CodeMissingInputFormat, "input.format", "input.format is required"))
	default:
		l.Add(diag.New(diag.CodeInvalidInputFormat, "input.format", fmt.Sprintf("unrecognised input format %q", in.FormatRaw)))
	}
}

func validateMapping(l *diag.List, rf *rules.RuleFile, idx int, m *rules.Mapping, targetIndex map[string]int) {
	prefix := fmt.Sprintf("mappings[%d]", idx)

	if m.Target == "" {
		l.Add(diag.New(diag.CodeMissingTarget, prefix+".target", "mapping has no target"))
	} else {
		if _, err := pathx.Parse(m.Target, pathx.TargetContext); err != nil {
			l.Add(diag.New(diag.CodeInvalidPath, prefix+".target", err.Error()))
		}
		if first, seen := targetIndex[m.Target]; seen {
			_ = first
			l.Add(diag.New(diag.CodeDuplicateTarget, prefix+".target", fmt.Sprintf("duplicate target %q", m.Target)))
		} else {
			targetIndex[m.Target] = idx
		}
	}

	count := 0
	if m.Source != "" {
		count++
	}
	if m.HasValue {
		count++
	}
	if m.Expr != nil {
		count++
	}
	switch {
	case count == 0:
		l.Add(diag.New(diag.CodeMissingMappingValue, prefix, "mapping has none of source, value, expr"))
	case count > 1:
		l.Add(diag.New(diag.CodeSourceValueExclusive, prefix, "mapping has more than one of source, value, expr"))
	}

	if m.Source != "" {
		validateSourcePath(l, prefix+".source", m.Source, idx, rf, targetIndex)
	}
	if m.Expr != nil {
		validateExpr(l, prefix+".expr", m.Expr, idx, rf, targetIndex)
	}
	if m.When != nil {
		validateExpr(l, prefix+".when", m.When, idx, rf, targetIndex)
	}

	if m.Type != "" {
		switch rules.TypeName(m.Type) {
		case rules.TypeString, rules.TypeInt, rules.TypeFloat, rules.TypeBool:
		default:
			l.Add(diag.New(diag.CodeInvalidTypeName, prefix+".type", fmt.Sprintf("unrecognised type %q", m.Type)))
		}
	}
}

// validateSourcePath applies the namespace-defaulting rule from spec.md 3:
// a single bare segment needs no namespace (defaults to input.*); any
// multi-segment or bracketed source must carry a valid namespace prefix.
func validateSourcePath(l *diag.List, logicalPath, raw string, mappingIdx int, rf *rules.RuleFile, targetIndex map[string]int) {
	p, err := pathx.Parse(raw, pathx.SourceContext)
	if err != nil {
		l.Add(diag.New(diag.CodeInvalidPath, logicalPath, err.Error()))
		return
	}
	if p.Namespace == pathx.NsNone {
		if len(p.Steps) != 1 || p.Steps[0].Kind != pathx.KeyStep || raw[0] == '[' {
			l.Add(diag.New(diag.CodeInvalidRefNamespace, logicalPath, "multi-segment or bracketed source must carry an input/context/out namespace"))
			return
		}
		return // bare single key, implicitly input.*
	}
	checkOutReference(l, logicalPath, p, mappingIdx, rf, targetIndex)
}

func validateExpr(l *diag.List, logicalPath string, e *rules.Expr, mappingIdx int, rf *rules.RuleFile, targetIndex map[string]int) {
	switch e.Kind {
	case rules.ExprLit:
		return
	case rules.ExprRef:
		p, err := pathx.Parse(e.RefPath, pathx.RefContext)
		if err != nil {
			l.Add(diag.New(diag.CodeInvalidPath, logicalPath, err.Error()))
			return
		}
		if p.Namespace != pathx.NsInput && p.Namespace != pathx.NsContext && p.Namespace != pathx.NsOut {
			l.Add(diag.New(diag.CodeInvalidRefNamespace, logicalPath, fmt.Sprintf("ref namespace must be input, context, or out, got %q", p.Namespace)))
			return
		}
		checkOutReference(l, logicalPath, p, mappingIdx, rf, targetIndex)
	case rules.ExprOp:
		spec, ok := eval.OpTable[e.OpName]
		if !ok {
			l.Add(diag.New(diag.CodeUnknownOp, logicalPath, fmt.Sprintf("unknown operator %q", e.OpName)))
			return
		}
		n := len(e.OpArgs)
		if n < spec.MinArgs || (spec.MaxArgs >= 0 && n > spec.MaxArgs) {
			l.Add(diag.New(diag.CodeInvalidArgs, logicalPath, fmt.Sprintf("operator %q takes %s arguments, got %d", e.OpName, arityDesc(spec.MinArgs, spec.MaxArgs), n)))
		}
		if spec.ValidateArgs != nil {
			if msg := spec.ValidateArgs(e.OpArgs); msg != "" {
				l.Add(diag.New(diag.CodeInvalidArgs, logicalPath, msg))
			}
		}
		for i, arg := range e.OpArgs {
			validateExpr(l, fmt.Sprintf("%s.args[%d]", logicalPath, i), arg, mappingIdx, rf, targetIndex)
		}
	default:
		l.Add(diag.New(diag.CodeInvalidExprShape, logicalPath, "expression node is neither literal, ref, nor op"))
	}
}

func arityDesc(min, max int) string {
	if max < 0 {
		return fmt.Sprintf("at least %d", min)
	}
	if min == max {
		return fmt.Sprintf("exactly %d", min)
	}
	return fmt.Sprintf("%d-%d", min, max)
}

// checkOutReference implements P1 / ForwardOutReference: an out.X
// reference is only valid if X's producing mapping has a strictly smaller
// index than the referencing mapping.
func checkOutReference(l *diag.List, logicalPath string, p pathx.Path, mappingIdx int, rf *rules.RuleFile, targetIndex map[string]int) {
	if p.Namespace != pathx.NsOut {
		return
	}
	target := outTargetString(p)
	producerIdx, exists := findProducer(rf, target)
	if !exists || producerIdx >= mappingIdx {
		l.Add(diag.New(diag.CodeForwardOutReference, logicalPath, fmt.Sprintf("out reference %q has no earlier producing mapping", target)))
	}
}

// outTargetString renders the out.<path> steps as the bare target string a
// Mapping.target would use (steps joined by dots; an index step renders as
// "[N]", which no target contains, so an indexed out reference never finds
// a producer).
func outTargetString(p pathx.Path) string {
	s := ""
	for i, step := range p.Steps {
		if i > 0 {
			s += "."
		}
		s += step.String()
	}
	return s
}

// findProducer returns the index of the first mapping whose target equals
// target exactly. Prefixes are not matched: a reference to out.user.id is
// not produced by a mapping whose target is user, nor the other way round.
func findProducer(rf *rules.RuleFile, target string) (int, bool) {
	for i, m := range rf.Mappings {
		if m.Target == target {
			return i, true
		}
	}
	return 0, false
}
