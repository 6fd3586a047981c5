package validate

import (
	"testing"

	"github.com/vinhphatfsg/transform-rules/internal/rules"
)

func codesOf(rf *rules.RuleFile) []string {
	l := Validate(rf)
	var out []string
	for _, d := range l.Items {
		out = append(out, d.Code)
	}
	return out
}

func contains(codes []string, want string) bool {
	for _, c := range codes {
		if c == want {
			return true
		}
	}
	return false
}

func TestValidateRejectsBadVersion(t *testing.T) {
	rf := &rules.RuleFile{Version: 2, Input: rules.InputSpec{Format: rules.FormatCSV, CSV: &rules.CSVSpec{HasHeader: true, Delimiter: ","}}}
	if !contains(codesOf(rf), "InvalidVersion") {
		t.Fatalf("expected InvalidVersion")
	}
}

func TestValidateMissingInputFormat(t *testing.T) {
	rf := &rules.RuleFile{Version: 1}
	if !contains(codesOf(rf), "MissingInputFormat") {
		t.Fatalf("expected MissingInputFormat")
	}
}

func TestValidateCsvDelimiterLength(t *testing.T) {
	rf := &rules.RuleFile{Version: 1, Input: rules.InputSpec{Format: rules.FormatCSV, CSV: &rules.CSVSpec{HasHeader: true, Delimiter: ",,"}}}
	if !contains(codesOf(rf), "InvalidDelimiterLength") {
		t.Fatalf("expected InvalidDelimiterLength")
	}
}

func validRF(mappings ...rules.Mapping) *rules.RuleFile {
	return &rules.RuleFile{
		Version:  1,
		Input:    rules.InputSpec{Format: rules.FormatCSV, CSV: &rules.CSVSpec{HasHeader: true, Delimiter: ","}},
		Mappings: mappings,
	}
}

func TestValidateMissingTarget(t *testing.T) {
	rf := validRF(rules.Mapping{Source: "id"})
	if !contains(codesOf(rf), "MissingTarget") {
		t.Fatalf("expected MissingTarget")
	}
}

func TestValidateSourceValueExprExclusive(t *testing.T) {
	rf := validRF(rules.Mapping{Target: "id", Source: "id", HasValue: true, Value: 1})
	if !contains(codesOf(rf), "SourceValueExprExclusive") {
		t.Fatalf("expected SourceValueExprExclusive")
	}
}

func TestValidateMissingMappingValue(t *testing.T) {
	rf := validRF(rules.Mapping{Target: "id"})
	if !contains(codesOf(rf), "MissingMappingValue") {
		t.Fatalf("expected MissingMappingValue")
	}
}

func TestValidateDuplicateTarget(t *testing.T) {
	rf := validRF(
		rules.Mapping{Target: "id", Source: "id"},
		rules.Mapping{Target: "id", Source: "other_id"},
	)
	if !contains(codesOf(rf), "DuplicateTarget") {
		t.Fatalf("expected DuplicateTarget")
	}
}

func TestValidateUnknownOp(t *testing.T) {
	rf := validRF(rules.Mapping{Target: "x", Expr: &rules.Expr{Kind: rules.ExprOp, OpName: "nope"}})
	if !contains(codesOf(rf), "UnknownOp") {
		t.Fatalf("expected UnknownOp")
	}
}

func TestValidateInvalidArgsArity(t *testing.T) {
	rf := validRF(rules.Mapping{Target: "x", Expr: &rules.Expr{
		Kind: rules.ExprOp, OpName: "concat",
	}})
	if !contains(codesOf(rf), "InvalidArgs") {
		t.Fatalf("expected InvalidArgs for concat with zero args")
	}
}

func TestValidateForwardOutReference(t *testing.T) {
	rf := validRF(
		rules.Mapping{Target: "a", Expr: &rules.Expr{Kind: rules.ExprRef, RefPath: "out.b"}},
		rules.Mapping{Target: "b", Source: "b"},
	)
	if !contains(codesOf(rf), "ForwardOutReference") {
		t.Fatalf("expected ForwardOutReference when out.b is referenced before it's produced")
	}
}

func TestValidateBackwardOutReferenceOK(t *testing.T) {
	rf := validRF(
		rules.Mapping{Target: "b", Source: "b"},
		rules.Mapping{Target: "a", Expr: &rules.Expr{Kind: rules.ExprRef, RefPath: "out.b"}},
	)
	if contains(codesOf(rf), "ForwardOutReference") {
		t.Fatalf("did not expect ForwardOutReference when out.b is produced earlier")
	}
}

func TestValidateInvalidTypeName(t *testing.T) {
	rf := validRF(rules.Mapping{Target: "x", Source: "x", Type: "blob"})
	if !contains(codesOf(rf), "InvalidTypeName") {
		t.Fatalf("expected InvalidTypeName")
	}
}

func TestValidateMultiSegmentSourceRequiresNamespace(t *testing.T) {
	rf := validRF(rules.Mapping{Target: "x", Source: "a.b"})
	if !contains(codesOf(rf), "InvalidRefNamespace") {
		t.Fatalf("expected InvalidRefNamespace for a bare multi-segment source")
	}
}

func TestValidateCleanRuleFileHasNoDiagnostics(t *testing.T) {
	rf := validRF(rules.Mapping{Target: "id", Source: "id"})
	l := Validate(rf)
	if l.HasErrors() {
		t.Fatalf("expected no diagnostics, got %+v", l.Items)
	}
}
