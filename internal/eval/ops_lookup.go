package eval

import (
	"github.com/vinhphatfsg/transform-rules/internal/diag"
	"github.com/vinhphatfsg/transform-rules/internal/pathx"
	"github.com/vinhphatfsg/transform-rules/internal/rules"
	"github.com/vinhphatfsg/transform-rules/internal/value"
)

func init() {
	register("lookup", OpSpec{MinArgs: 3, MaxArgs: 4, ValidateArgs: validateLookupArgs, Eval: evalLookup})
	register("lookup_first", OpSpec{MinArgs: 3, MaxArgs: 4, ValidateArgs: validateLookupArgs, Eval: evalLookupFirst})
}

func validateLookupArgs(args []*rules.Expr) string {
	if len(args) < 2 {
		return ""
	}
	if !isNonEmptyStringLit(args[1]) {
		return "lookup: key_path must be a non-empty string literal"
	}
	if len(args) == 4 && !isNonEmptyStringLit(args[3]) {
		return "lookup: output_path must be a non-empty string literal"
	}
	return ""
}

func isNonEmptyStringLit(e *rules.Expr) bool {
	if e.Kind != rules.ExprLit {
		return false
	}
	s, ok := e.Lit.(string)
	return ok && s != ""
}

// plainPathContext parses a bare dotted/indexed path with no namespace,
// used for lookup's key_path/output_path which address fields inside an
// arbitrary collection element rather than input/context/out.
var plainPathContext = pathx.Context{}

func evalLookup(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
	result, err := doLookup(args, ns, logicalPath)
	if err != nil {
		return value.Missing, err
	}
	if len(result) == 0 {
		return value.Missing, nil
	}
	return value.Of(result), nil
}

func evalLookupFirst(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) (value.Value, *diag.Diagnostic) {
	result, err := doLookup(args, ns, logicalPath)
	if err != nil {
		return value.Missing, err
	}
	if len(result) == 0 {
		return value.Missing, nil
	}
	return value.Of(result[0]), nil
}

func doLookup(args []*rules.Expr, ns pathx.Namespaces, logicalPath string) ([]interface{}, *diag.Diagnostic) {
	collV, err := evalArg(args, 0, ns, logicalPath)
	if err != nil {
		return nil, err
	}
	if collV.IsMissing() {
		return nil, exprErr(logicalPath, "lookup: collection must not be missing")
	}
	collRaw, _ := collV.Interface()
	if collRaw == nil {
		return nil, exprErr(logicalPath, "lookup: collection must not be null")
	}
	coll, ok := value.AsArray(collRaw)
	if !ok {
		return nil, exprErr(logicalPath, "lookup: collection must be an array, got %s", value.KindOf(collRaw))
	}

	keyPath, ok := args[1].Lit.(string)
	if !ok || keyPath == "" {
		return nil, exprErr(logicalPath, "lookup: key_path must be a non-empty string literal")
	}
	keyParsed, perr := pathx.Parse(keyPath, plainPathContext)
	if perr != nil {
		return nil, exprErr(logicalPath, "lookup: invalid key_path: %v", perr)
	}

	matchV, err := evalArg(args, 2, ns, logicalPath)
	if err != nil {
		return nil, err
	}
	if matchV.IsMissing() {
		return nil, nil
	}
	matchRaw, _ := matchV.Interface()
	if matchRaw == nil {
		return nil, exprErr(logicalPath, "lookup: match_value must not be null")
	}
	matchStr, cerr := ToStringCanonical(matchRaw)
	if cerr != nil {
		return nil, exprErr(logicalPath, "lookup: %v", cerr)
	}

	var outParsed *pathx.Path
	if len(args) == 4 {
		outPath, ok := args[3].Lit.(string)
		if !ok || outPath == "" {
			return nil, exprErr(logicalPath, "lookup: output_path must be a non-empty string literal")
		}
		p, perr := pathx.Parse(outPath, plainPathContext)
		if perr != nil {
			return nil, exprErr(logicalPath, "lookup: invalid output_path: %v", perr)
		}
		outParsed = &p
	}

	var results []interface{}
	for _, elem := range coll {
		keyVal := pathx.Resolve(elem, keyParsed.Steps)
		if keyVal.IsMissing() {
			continue
		}
		keyRaw, _ := keyVal.Interface()
		if keyRaw == nil {
			continue
		}
		keyStr, kerr := ToStringCanonical(keyRaw)
		if kerr != nil {
			continue
		}
		if keyStr != matchStr {
			continue
		}
		if outParsed == nil {
			results = append(results, elem)
			continue
		}
		outVal := pathx.Resolve(elem, outParsed.Steps)
		if outVal.IsMissing() {
			continue
		}
		outRaw, _ := outVal.Interface()
		results = append(results, outRaw)
	}
	return results, nil
}
