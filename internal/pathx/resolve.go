package pathx

import "github.com/vinhphatfsg/transform-rules/internal/value"

// Resolve walks root step-by-step along p.Steps. It is total and
// side-effect-free: a mismatch (key step on a non-object, index step on a
// non-array, index out of range) yields Missing rather than an error, and
// Present(null) is distinguished from Missing throughout.
func Resolve(root interface{}, steps []Step) value.Value {
	cur := root
	for _, s := range steps {
		switch s.Kind {
		case KeyStep:
			obj, ok := value.AsObject(cur)
			if !ok {
				return value.Missing
			}
			next, present := obj[s.Key]
			if !present {
				return value.Missing
			}
			cur = next
		case IndexStep:
			arr, ok := value.AsArray(cur)
			if !ok {
				return value.Missing
			}
			if s.Index < 0 || s.Index >= len(arr) {
				return value.Missing
			}
			cur = arr[s.Index]
		}
	}
	return value.Of(cur)
}

// Namespaces bundles the three read-only roots a reference may address.
type Namespaces struct {
	Input   interface{}
	Context interface{}
	Out     interface{}
}

// ResolveRef resolves a fully namespaced Path against ns.
func ResolveRef(p Path, ns Namespaces) value.Value {
	switch p.Namespace {
	case NsInput:
		return Resolve(ns.Input, p.Steps)
	case NsContext:
		return Resolve(ns.Context, p.Steps)
	case NsOut:
		return Resolve(ns.Out, p.Steps)
	default:
		return value.Missing
	}
}

// Set writes v into root at the path described by steps, creating
// intermediate objects as needed. Index steps are never valid in a target
// path (enforced by the parser's TargetContext), so Set only ever creates
// nested objects. It returns an error if an intermediate step would need to
// overwrite an existing non-object value.
func Set(root map[string]interface{}, steps []Step, v interface{}) error {
	cur := root
	for i, s := range steps {
		if s.Kind != KeyStep {
			return &ParseError{Msg: "index step in target path"}
		}
		if i == len(steps)-1 {
			cur[s.Key] = v
			return nil
		}
		existing, present := cur[s.Key]
		if !present {
			next := make(map[string]interface{})
			cur[s.Key] = next
			cur = next
			continue
		}
		next, ok := existing.(map[string]interface{})
		if !ok {
			return &ParseError{Msg: "target path collides with a non-object value"}
		}
		cur = next
	}
	return nil
}
