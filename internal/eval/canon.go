package eval

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vinhphatfsg/transform-rules/internal/value"
)

// ToStringCanonical is the single shared stringification helper spec.md 9
// requires: concat, ==/!=, lookup's compare step, and the `string` type
// cast must all agree on how a number/bool/string renders as text, or
// golden tests drift. null is rejected by returning an error; callers that
// need a different null policy (==/!= coerce Missing to null themselves)
// check for null before calling this.
func ToStringCanonical(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case bool:
		if v {
			return "true", nil
		}
		return "false", nil
	case nil:
		return "", fmt.Errorf("cannot stringify null")
	case float64:
		return formatNumber(v), nil
	case int:
		return formatNumber(float64(v)), nil
	case int64:
		return formatNumber(float64(v)), nil
	default:
		return "", fmt.Errorf("cannot stringify value of type %T", raw)
	}
}

// formatNumber renders a float64 the way to_string must: "10.0" -> "10",
// trailing zeros and a bare decimal point are never emitted.
func formatNumber(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return s
}

// ParseNumeric reports whether raw is a number or a "numeric string" (a
// string that parses to a finite 64-bit float) and returns that float.
func ParseNumeric(raw interface{}) (float64, bool) {
	if f, ok := value.AsFloat64(raw); ok {
		return f, true
	}
	if s, ok := value.AsString(raw); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return 0, false
}
