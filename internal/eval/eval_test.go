package eval

import (
	"testing"

	"github.com/vinhphatfsg/transform-rules/internal/pathx"
	"github.com/vinhphatfsg/transform-rules/internal/rules"
	"github.com/vinhphatfsg/transform-rules/internal/value"
)

func lit(v interface{}) *rules.Expr { return &rules.Expr{Kind: rules.ExprLit, Lit: v} }
func ref(path string) *rules.Expr   { return &rules.Expr{Kind: rules.ExprRef, RefPath: path} }
func op(name string, args ...*rules.Expr) *rules.Expr {
	return &rules.Expr{Kind: rules.ExprOp, OpName: name, OpArgs: args}
}

func evalOK(t *testing.T, e *rules.Expr, ns pathx.Namespaces) value.Value {
	t.Helper()
	v, err := Evaluate(e, ns, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}

var emptyNS = pathx.Namespaces{}

func TestEvaluateLitAndRef(t *testing.T) {
	ns := pathx.Namespaces{Input: map[string]interface{}{"name": "ada"}}
	v := evalOK(t, lit(5), emptyNS)
	if raw, _ := v.Interface(); raw != 5 {
		t.Fatalf("lit = %v", raw)
	}
	v = evalOK(t, ref("input.name"), ns)
	if raw, _ := v.Interface(); raw != "ada" {
		t.Fatalf("ref = %v", raw)
	}
	v = evalOK(t, ref("input.missing"), ns)
	if !v.IsMissing() {
		t.Fatalf("expected Missing for unresolved ref, got %v", v)
	}
}

func TestUnknownOperator(t *testing.T) {
	_, err := Evaluate(op("nope", lit(1)), emptyNS, "test")
	if err == nil {
		t.Fatalf("expected an error for an unknown operator")
	}
}

func TestConcatMissingPropagates(t *testing.T) {
	ns := pathx.Namespaces{Input: map[string]interface{}{}}
	v := evalOK(t, op("concat", lit("a"), ref("input.absent")), ns)
	if !v.IsMissing() {
		t.Fatalf("expected Missing, got %v", v)
	}
}

func TestConcatNumberCanonicalization(t *testing.T) {
	v := evalOK(t, op("concat", lit("x"), lit(10.0)), emptyNS)
	if raw, _ := v.Interface(); raw != "x10" {
		t.Fatalf("concat = %v, want x10", raw)
	}
}

func TestCoalesceSkipsMissingAndNull(t *testing.T) {
	v := evalOK(t, op("coalesce", ref("input.absent"), lit(nil), lit("b")), emptyNS)
	if raw, _ := v.Interface(); raw != "b" {
		t.Fatalf("coalesce = %v, want b", raw)
	}
}

func TestTrimLowerUpper(t *testing.T) {
	if v := evalOK(t, op("trim", lit("  hi  ")), emptyNS); v.MustInterface() != "hi" {
		t.Fatalf("trim = %v", v)
	}
	if v := evalOK(t, op("lowercase", lit("HI")), emptyNS); v.MustInterface() != "hi" {
		t.Fatalf("lowercase = %v", v)
	}
	if v := evalOK(t, op("uppercase", lit("hi")), emptyNS); v.MustInterface() != "HI" {
		t.Fatalf("uppercase = %v", v)
	}
}

func TestReplaceModes(t *testing.T) {
	v := evalOK(t, op("replace", lit("a-b-a"), lit("a"), lit("X")), emptyNS)
	if v.MustInterface() != "X-b-a" {
		t.Fatalf("replace first = %v", v)
	}
	v = evalOK(t, op("replace", lit("a-b-a"), lit("a"), lit("X"), lit("all")), emptyNS)
	if v.MustInterface() != "X-b-X" {
		t.Fatalf("replace all = %v", v)
	}
	v = evalOK(t, op("replace", lit("a1b2"), lit(`\d`), lit("#"), lit("regex_all")), emptyNS)
	if v.MustInterface() != "a#b#" {
		t.Fatalf("replace regex_all = %v", v)
	}
}

func TestSplit(t *testing.T) {
	v := evalOK(t, op("split", lit("a,b,c"), lit(",")), emptyNS)
	arr, ok := v.Interface()
	if !ok {
		t.Fatalf("split missing")
	}
	got := arr.([]interface{})
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("split = %v", got)
	}
}

func TestPadStartEnd(t *testing.T) {
	v := evalOK(t, op("pad_start", lit("7"), lit(3.0), lit("0")), emptyNS)
	if v.MustInterface() != "007" {
		t.Fatalf("pad_start = %v", v)
	}
	v = evalOK(t, op("pad_end", lit("7"), lit(3.0), lit("0")), emptyNS)
	if v.MustInterface() != "700" {
		t.Fatalf("pad_end = %v", v)
	}
}

func TestNumericOps(t *testing.T) {
	v := evalOK(t, op("+", lit(1.0), lit(2.0), lit(3.0)), emptyNS)
	if v.MustInterface() != 6.0 {
		t.Fatalf("+ = %v", v)
	}
	v = evalOK(t, op("-", lit(10.0), lit(4.0)), emptyNS)
	if v.MustInterface() != 6.0 {
		t.Fatalf("- = %v", v)
	}
	v = evalOK(t, op("/", lit(9.0), lit(2.0)), emptyNS)
	if v.MustInterface() != 4.5 {
		t.Fatalf("/ = %v", v)
	}
	v = evalOK(t, op("round", lit(1.2345), lit(2.0)), emptyNS)
	if v.MustInterface() != 1.23 {
		t.Fatalf("round = %v", v)
	}
	v = evalOK(t, op("to_base", lit(255.0), lit(16.0)), emptyNS)
	if v.MustInterface() != "ff" {
		t.Fatalf("to_base = %v", v)
	}
}

func TestDivideByZeroIsError(t *testing.T) {
	_, err := Evaluate(op("/", lit(1.0), lit(0.0)), emptyNS, "test")
	if err == nil {
		t.Fatalf("expected an error dividing by zero")
	}
}

func TestLogicOps(t *testing.T) {
	v := evalOK(t, op("and", lit(true), lit(true)), emptyNS)
	if v.MustInterface() != true {
		t.Fatalf("and = %v", v)
	}
	v = evalOK(t, op("or", lit(false), lit(true)), emptyNS)
	if v.MustInterface() != true {
		t.Fatalf("or = %v", v)
	}
	v = evalOK(t, op("not", lit(false)), emptyNS)
	if v.MustInterface() != true {
		t.Fatalf("not = %v", v)
	}
}

func TestEqualityNullHandling(t *testing.T) {
	v := evalOK(t, op("==", lit(nil), lit(nil)), emptyNS)
	if v.MustInterface() != true {
		t.Fatalf("null == null should be true, got %v", v)
	}
	v = evalOK(t, op("==", lit(nil), lit("x")), emptyNS)
	if v.MustInterface() != false {
		t.Fatalf("null == x should be false, got %v", v)
	}
	v = evalOK(t, op("==", lit(10.0), lit("10")), emptyNS)
	if v.MustInterface() != true {
		t.Fatalf("10 == \"10\" should be true via canonicalisation, got %v", v)
	}
}

func TestCompareOps(t *testing.T) {
	v := evalOK(t, op("<", lit(1.0), lit(2.0)), emptyNS)
	if v.MustInterface() != true {
		t.Fatalf("< = %v", v)
	}
	_, err := Evaluate(op("<", lit(nil), lit(2.0)), emptyNS, "test")
	if err == nil {
		t.Fatalf("expected error comparing against null")
	}
}

func TestRegexMatch(t *testing.T) {
	v := evalOK(t, op("~=", lit("abc123"), lit(`^[a-z]+\d+$`)), emptyNS)
	if v.MustInterface() != true {
		t.Fatalf("~= = %v", v)
	}
}

func TestLookup(t *testing.T) {
	ns := pathx.Namespaces{Context: map[string]interface{}{
		"countries": []interface{}{
			map[string]interface{}{"code": "US", "name": "United States"},
			map[string]interface{}{"code": "FR", "name": "France"},
		},
	}}
	v := evalOK(t, op("lookup", ref("context.countries"), lit("code"), lit("FR"), lit("name")), ns)
	if got, ok := v.MustInterface().([]interface{}); !ok || len(got) != 1 || got[0] != "France" {
		t.Fatalf("lookup = %v, want [France]", v)
	}
	v = evalOK(t, op("lookup", ref("context.countries"), lit("code"), lit("ZZ"), lit("name")), ns)
	if !v.IsMissing() {
		t.Fatalf("expected Missing for no match, got %v", v)
	}
}

func TestLookupFirstReturnsWholeElement(t *testing.T) {
	ns := pathx.Namespaces{Context: map[string]interface{}{
		"rows": []interface{}{
			map[string]interface{}{"id": 1.0, "label": "one"},
		},
	}}
	v := evalOK(t, op("lookup_first", ref("context.rows"), lit("id"), lit(1.0)), ns)
	obj, ok := v.Interface()
	if !ok {
		t.Fatalf("expected a present value")
	}
	m := obj.(map[string]interface{})
	if m["label"] != "one" {
		t.Fatalf("lookup_first result = %v", m)
	}
}

func TestDateFormat(t *testing.T) {
	v := evalOK(t, op("date_format", lit("2024-03-05"), lit("YYYY/MM/DD"), lit("YYYY-MM-DD")), emptyNS)
	if v.MustInterface() != "2024/03/05" {
		t.Fatalf("date_format = %v", v)
	}
}

func TestToUnixtime(t *testing.T) {
	v := evalOK(t, op("to_unixtime", lit("2024-01-01T00:00:00Z")), emptyNS)
	raw, _ := v.Interface()
	if _, ok := raw.(float64); !ok {
		t.Fatalf("to_unixtime did not return a number: %v (%T)", raw, raw)
	}
}
