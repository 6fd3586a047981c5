// Package gen implements the DTO Generator (A5): a best-effort Go struct
// and JSON-Schema sketch derived from a validated rule file's mapping
// targets and types. There is no teacher precedent for code generation;
// this is built in the teacher's general idiom (plain string building,
// deterministic ordering, no external templating engine) since no pack
// dependency covers Go-source generation from a dynamic schema.
package gen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vinhphatfsg/transform-rules/internal/pathx"
	"github.com/vinhphatfsg/transform-rules/internal/rules"
)

// field is one leaf of the target tree, with its declared or inferred type.
type field struct {
	path []string
	typ  rules.TypeName
}

// GoStruct renders a Go struct named after rf.Output.Name (defaulting to
// "Record") whose fields mirror the mapping targets' nested shape.
// Field order is sorted by dotted path for determinism (A-P2).
func GoStruct(rf *rules.RuleFile) (string, error) {
	name := structName(rf.Output.Name)
	tree, err := buildTree(rf)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "type %s struct {\n", name)
	writeStructBody(&b, tree, 1)
	b.WriteString("}\n")
	return b.String(), nil
}

// JSONSchema renders a minimal JSON-Schema-flavoured object describing the
// same target tree, for tooling that prefers schema over Go source.
func JSONSchema(rf *rules.RuleFile) (string, error) {
	tree, err := buildTree(rf)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("{\n  \"type\": \"object\",\n  \"properties\": {\n")
	writeSchemaBody(&b, tree, 2)
	b.WriteString("  }\n}\n")
	return b.String(), nil
}

// node is one level of the nested target tree: either a leaf (typ set,
// children empty) or an object (children populated).
type node struct {
	typ      rules.TypeName
	isLeaf   bool
	children map[string]*node
	order    []string // insertion order of children, re-sorted before emit
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

func buildTree(rf *rules.RuleFile) (*node, error) {
	root := newNode()
	for _, m := range rf.Mappings {
		p, err := pathx.Parse(m.Target, pathx.TargetContext)
		if err != nil {
			return nil, fmt.Errorf("gen: invalid target %q: %w", m.Target, err)
		}
		if len(p.Steps) == 0 {
			return nil, fmt.Errorf("gen: empty target")
		}
		cur := root
		for i, step := range p.Steps {
			if step.Kind != pathx.KeyStep {
				return nil, fmt.Errorf("gen: target %q addresses an array index, unsupported by the generator", m.Target)
			}
			last := i == len(p.Steps)-1
			child, ok := cur.children[step.Key]
			if !ok {
				child = newNode()
				cur.children[step.Key] = child
				cur.order = append(cur.order, step.Key)
			}
			if last {
				child.isLeaf = true
				if m.Type != "" {
					child.typ = rules.TypeName(m.Type)
				} else {
					child.typ = rules.TypeString
				}
			}
			cur = child
		}
	}
	return root, nil
}

func sortedKeys(n *node) []string {
	keys := append([]string(nil), n.order...)
	sort.Strings(keys)
	return keys
}

func writeStructBody(b *strings.Builder, n *node, depth int) {
	indent := strings.Repeat("\t", depth)
	for _, key := range sortedKeys(n) {
		child := n.children[key]
		fieldName := exportedName(key)
		if child.isLeaf && len(child.children) == 0 {
			fmt.Fprintf(b, "%s%s %s `json:%q`\n", indent, fieldName, goType(child.typ), key)
			continue
		}
		fmt.Fprintf(b, "%s%s struct {\n", indent, fieldName)
		writeStructBody(b, child, depth+1)
		fmt.Fprintf(b, "%s} `json:%q`\n", indent, key)
	}
}

func writeSchemaBody(b *strings.Builder, n *node, depth int) {
	indent := strings.Repeat("  ", depth)
	keys := sortedKeys(n)
	for i, key := range keys {
		child := n.children[key]
		comma := ","
		if i == len(keys)-1 {
			comma = ""
		}
		if child.isLeaf && len(child.children) == 0 {
			fmt.Fprintf(b, "%s%q: { \"type\": %q }%s\n", indent, key, schemaType(child.typ), comma)
			continue
		}
		fmt.Fprintf(b, "%s%q: {\n%s  \"type\": \"object\",\n%s  \"properties\": {\n", indent, key, indent, indent)
		writeSchemaBody(b, child, depth+2)
		fmt.Fprintf(b, "%s  }\n%s}%s\n", indent, indent, comma)
	}
}

func goType(t rules.TypeName) string {
	switch t {
	case rules.TypeInt:
		return "int64"
	case rules.TypeFloat:
		return "float64"
	case rules.TypeBool:
		return "bool"
	default:
		return "string"
	}
}

func schemaType(t rules.TypeName) string {
	switch t {
	case rules.TypeInt:
		return "integer"
	case rules.TypeFloat:
		return "number"
	case rules.TypeBool:
		return "boolean"
	default:
		return "string"
	}
}

func structName(name string) string {
	if name == "" {
		return "Record"
	}
	return exportedName(name)
}

// exportedName turns a snake_case or dotted key into an exported Go
// identifier, e.g. "user_id" -> "UserId".
func exportedName(key string) string {
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	if len(parts) == 0 {
		return "Field"
	}
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
