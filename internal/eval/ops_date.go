package eval

import (
	"strings"
	"time"

	"github.com/vinhphatfsg/transform-rules/internal/diag"
	"github.com/vinhphatfsg/transform-rules/internal/pathx"
	"github.com/vinhphatfsg/transform-rules/internal/rules"
	"github.com/vinhphatfsg/transform-rules/internal/value"
)

func init() {
	register("date_format", OpSpec{MinArgs: 2, MaxArgs: 4, Eval: evalDateFormat})
	register("to_unixtime", OpSpec{MinArgs: 1, MaxArgs: 3, Eval: evalToUnixtime})
}

// autoDetectLayouts are tried, in order, when no input_format is supplied.
var autoDetectLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// tokenLayout translates the common YYYY/MM/DD/HH/mm/ss pattern language
// used across the rule file's input_format strings into a Go reference
// time layout.
func tokenLayout(pattern string) string {
	replacer := strings.NewReplacer(
		"YYYY", "2006",
		"MM", "01",
		"DD", "02",
		"HH", "15",
		"mm", "04",
		"ss", "05",
		"SSS", "000",
	)
	return replacer.Replace(pattern)
}

func parseTimezone(tz string) (*time.Location, error) {
	if tz == "" || strings.EqualFold(tz, "UTC") {
		return time.UTC, nil
	}
	sign := 1
	rest := tz
	switch rest[0] {
	case '+':
		rest = rest[1:]
	case '-':
		sign = -1
		rest = rest[1:]
	default:
		return nil, errInvalidTimezone(tz)
	}
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 {
		return nil, errInvalidTimezone(tz)
	}
	hours, err1 := time.ParseDuration(parts[0] + "h")
	mins, err2 := time.ParseDuration(parts[1] + "m")
	if err1 != nil || err2 != nil {
		return nil, errInvalidTimezone(tz)
	}
	offset := sign * int((hours + mins).Seconds())
	return time.FixedZone(tz, offset), nil
}

type tzError struct{ tz string }

func (e *tzError) Error() string { return "invalid timezone " + e.tz }
func errInvalidTimezone(tz string) error { return &tzError{tz: tz} }

func parseInputFormats(args []*rules.Expr, idx int, ns pathx.Namespaces, logicalPath string) (layouts []string, missing bool, d *diag.Diagnostic) {
	if idx >= len(args) {
		return nil, false, nil
	}
	v, err := evalArg(args, idx, ns, logicalPath)
	if err != nil {
		return nil, false, err
	}
	if v.IsMissing() {
		return nil, true, nil
	}
	raw, _ := v.Interface()
	if s, ok := value.AsString(raw); ok {
		return []string{tokenLayout(s)}, false, nil
	}
	if arr, ok := value.AsArray(raw); ok {
		for _, elem := range arr {
			s, ok := value.AsString(elem)
			if !ok {
				return nil, false, exprErr(logicalPath, "date_format: input_format entries must be strings")
			}
			layouts = append(layouts, tokenLayout(s))
		}
		return layouts, false, nil
	}
	return nil, false, exprErr(logicalPath, "date_format: input_format must be a string or array of strings")
}

func parseDateInput(dateStr string, layouts []string, loc *time.Location) (time.Time, error) {
	if len(layouts) == 0 {
		layouts = autoDetectLayouts
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, dateStr, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func evalDateFormat(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
	dateStr, dErr := evalStringArg(args, 0, ns, logicalPath)
	if dErr.diag != nil {
		return value.Missing, dErr.diag
	}
	if dErr.missing {
		return value.Missing, nil
	}
	outFormat, oErr := evalStringArg(args, 1, ns, logicalPath)
	if oErr.diag != nil {
		return value.Missing, oErr.diag
	}
	if oErr.missing {
		return value.Missing, nil
	}
	layouts, missing, err := parseInputFormats(args, 2, ns, logicalPath)
	if err != nil {
		return value.Missing, err
	}
	if missing {
		return value.Missing, nil
	}
	tzStr := ""
	if len(args) == 4 {
		tz, tErr := evalStringArg(args, 3, ns, logicalPath)
		if tErr.diag != nil {
			return value.Missing, tErr.diag
		}
		if tErr.missing {
			return value.Missing, nil
		}
		tzStr = tz.s
	}
	loc, lerr := parseTimezone(tzStr)
	if lerr != nil {
		return value.Missing, exprErr(logicalPath, "date_format: %v", lerr)
	}
	t, perr := parseDateInput(dateStr.s, layouts, loc)
	if perr != nil {
		return value.Missing, exprErr(logicalPath, "date_format: cannot parse %q: %v", dateStr.s, perr)
	}
	return value.Of(t.In(loc).Format(tokenLayout(outFormat.s))), nil
}

func evalToUnixtime(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
	dateStr, dErr := evalStringArg(args, 0, ns, logicalPath)
	if dErr.diag != nil {
		return value.Missing, dErr.diag
	}
	if dErr.missing {
		return value.Missing, nil
	}
	layouts, missing, err := parseInputFormats(args, 1, ns, logicalPath)
	if err != nil {
		return value.Missing, err
	}
	if missing {
		return value.Missing, nil
	}
	unit := "s"
	if len(args) == 3 {
		u, uErr := evalStringArg(args, 2, ns, logicalPath)
		if uErr.diag != nil {
			return value.Missing, uErr.diag
		}
		if uErr.missing {
			return value.Missing, nil
		}
		unit = u.s
	}
	if unit != "s" && unit != "ms" {
		return value.Missing, exprErr(logicalPath, "to_unixtime: unit must be \"s\" or \"ms\"")
	}
	t, perr := parseDateInput(dateStr.s, layouts, time.UTC)
	if perr != nil {
		return value.Missing, exprErr(logicalPath, "to_unixtime: cannot parse %q: %v", dateStr.s, perr)
	}
	if unit == "ms" {
		return value.Of(float64(t.UnixMilli())), nil
	}
	return value.Of(float64(t.Unix())), nil
}
