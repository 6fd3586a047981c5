// Package value implements the tri-valued data model shared by the path
// resolver, the expression evaluator, and the transformer: a JSON value is
// either Present (which may itself be JSON null) or Missing. The distinction
// between Present(null) and Missing must survive every operation until a
// mapping decides how to apply default/required/type policy.
package value

import (
	"fmt"
	"sort"
)

// Value is a tri-valued wrapper around a JSON value. The zero Value is
// Missing; construct a present value with Of.
type Value struct {
	ok bool
	v  interface{}
}

// Missing is the sentinel returned whenever a reference does not resolve.
var Missing = Value{}

// Of wraps v (including nil, which becomes Present(null)) as present.
func Of(v interface{}) Value {
	return Value{ok: true, v: v}
}

// Null is Present(nil) spelled out for readability at call sites.
var Null = Of(nil)

// IsMissing reports whether v carries no value at all.
func (v Value) IsMissing() bool {
	return !v.ok
}

// IsPresent is the complement of IsMissing.
func (v Value) IsPresent() bool {
	return v.ok
}

// IsNull reports whether v is Present(null). A Missing value is never null.
func (v Value) IsNull() bool {
	return v.ok && v.v == nil
}

// Interface returns the underlying JSON value and whether it was present.
// Callers that need to distinguish Missing from Present(null) must check ok.
func (v Value) Interface() (raw interface{}, ok bool) {
	return v.v, v.ok
}

// MustInterface returns the underlying value, panicking on Missing. Only
// safe once a caller has already checked IsPresent.
func (v Value) MustInterface() interface{} {
	if !v.ok {
		panic("value: MustInterface on Missing")
	}
	return v.v
}

func (v Value) String() string {
	if !v.ok {
		return "<missing>"
	}
	if v.v == nil {
		return "null"
	}
	return fmt.Sprintf("%v", v.v)
}

// Kind names describe JSON value kinds, used in diagnostics and the type
// cast rules in the transformer.
const (
	KindString = "string"
	KindNumber = "number"
	KindBool   = "bool"
	KindNull   = "null"
	KindArray  = "array"
	KindObject = "object"
)

// KindOf classifies a present, non-missing raw JSON value.
func KindOf(raw interface{}) string {
	switch raw.(type) {
	case string:
		return KindString
	case float64, int, int64:
		return KindNumber
	case bool:
		return KindBool
	case nil:
		return KindNull
	case []interface{}:
		return KindArray
	case map[string]interface{}:
		return KindObject
	default:
		return fmt.Sprintf("%T", raw)
	}
}

// AsFloat64 reports whether raw is a JSON number (decoded as float64, the
// form produced by encoding/json and by this package's own literal
// decoding) and returns it.
func AsFloat64(raw interface{}) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// AsString reports whether raw is a JSON string.
func AsString(raw interface{}) (string, bool) {
	s, ok := raw.(string)
	return s, ok
}

// AsBool reports whether raw is a JSON bool.
func AsBool(raw interface{}) (bool, bool) {
	b, ok := raw.(bool)
	return b, ok
}

// AsArray reports whether raw is a JSON array.
func AsArray(raw interface{}) ([]interface{}, bool) {
	a, ok := raw.([]interface{})
	return a, ok
}

// AsObject reports whether raw is a JSON object.
func AsObject(raw interface{}) (map[string]interface{}, bool) {
	o, ok := raw.(map[string]interface{})
	return o, ok
}

// SortedKeys returns an object's keys in sorted order, used anywhere output
// must be deterministic (the DTO generator, golden-test friendly logging).
func SortedKeys(o map[string]interface{}) []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
