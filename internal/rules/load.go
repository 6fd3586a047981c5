package rules

import (
	"fmt"
	"os"

	"github.com/vinhphatfsg/transform-rules/internal/diag"
	"github.com/vinhphatfsg/transform-rules/internal/util"
	"gopkg.in/yaml.v3"
)

// LoadFile reads and parses filename into a RuleFile. Shape requirements
// here are minimal: strong typing of the expr/value/source and lit/ref/op
// variants. Deep validation (namespaces, forward references, op arities,
// path syntax) is deferred to the validate package (C5). A YAML syntax
// error is returned as a single Diagnostic carrying the position yaml.v3
// reports, per spec.md 4.3.
func LoadFile(filename string) (*RuleFile, *diag.Diagnostic) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, diag.New(diag.CodeYAMLSyntax, "$", fmt.Sprintf("reading rule file: %v", err))
	}
	return Load(data)
}

// Load parses data into a RuleFile.
func Load(data []byte) (*RuleFile, *diag.Diagnostic) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		d := yamlErrDiagnostic(err)
		if util.LooksLikeJSON(string(data)) {
			d.Message += fmt.Sprintf(" (input looks like JSON, not YAML: %s)", util.Snippet(data))
		}
		return nil, d
	}
	if len(doc.Content) == 0 {
		return &RuleFile{}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, diag.NewAt(diag.CodeYAMLSyntax, "$", "rule file must be a YAML mapping", root.Line, root.Column)
	}

	rf := &RuleFile{}

	if n := lookup(root, "version"); n != nil {
		var v int
		if err := n.Decode(&v); err == nil {
			rf.Version = v
		} else {
			rf.Version = -1
		}
	}

	if n := lookup(root, "input"); n != nil {
		spec, derr := decodeInputSpec(n)
		if derr != nil {
			return nil, derr
		}
		rf.Input = spec
	}

	if n := lookup(root, "mappings"); n != nil {
		if n.Kind != yaml.SequenceNode {
			return nil, diag.NewAt(diag.CodeYAMLSyntax, "mappings", "mappings must be a YAML sequence", n.Line, n.Column)
		}
		for i, item := range n.Content {
			m, derr := decodeMapping(item, i)
			if derr != nil {
				return nil, derr
			}
			rf.Mappings = append(rf.Mappings, m)
		}
	}

	if n := lookup(root, "output"); n != nil {
		if name := lookup(n, "name"); name != nil {
			_ = name.Decode(&rf.Output.Name)
		}
	}

	return rf, nil
}

func yamlErrDiagnostic(err error) *diag.Diagnostic {
	if te, ok := err.(*yaml.TypeError); ok {
		return diag.New(diag.CodeYAMLSyntax, "$", fmt.Sprintf("yaml type error: %v", te.Errors))
	}
	d := diag.New(diag.CodeYAMLSyntax, "$", fmt.Sprintf("yaml syntax error: %v", err))
	var line int
	if _, serr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); serr == nil {
		d.Line = line
	}
	return d
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func decodeInputSpec(n *yaml.Node) (InputSpec, *diag.Diagnostic) {
	spec := InputSpec{Line: n.Line, Column: n.Column}
	if fn := lookup(n, "format"); fn != nil {
		_ = fn.Decode(&spec.FormatRaw)
		spec.Format = InputFormat(spec.FormatRaw)
	}
	if cn := lookup(n, "csv"); cn != nil {
		var c CSVSpec
		if err := cn.Decode(&c); err != nil {
			return spec, diag.NewAt(diag.CodeYAMLSyntax, "input.csv", err.Error(), cn.Line, cn.Column)
		}
		spec.CSV = &c
	}
	if jn := lookup(n, "json"); jn != nil {
		var j JSONSpec
		if err := jn.Decode(&j); err != nil {
			return spec, diag.NewAt(diag.CodeYAMLSyntax, "input.json", err.Error(), jn.Line, jn.Column)
		}
		spec.JSON = &j
	}
	if xn := lookup(n, "xlsx"); xn != nil {
		var x XLSXSpec
		if err := xn.Decode(&x); err != nil {
			return spec, diag.NewAt(diag.CodeYAMLSyntax, "input.xlsx", err.Error(), xn.Line, xn.Column)
		}
		spec.XLSX = &x
	}
	if pn := lookup(n, "postgres"); pn != nil {
		var pg PostgresSpec
		if err := pn.Decode(&pg); err != nil {
			return spec, diag.NewAt(diag.CodeYAMLSyntax, "input.postgres", err.Error(), pn.Line, pn.Column)
		}
		spec.Postgres = &pg
	}
	return spec, nil
}

func decodeMapping(n *yaml.Node, idx int) (Mapping, *diag.Diagnostic) {
	prefix := fmt.Sprintf("mappings[%d]", idx)
	if n.Kind != yaml.MappingNode {
		return Mapping{}, diag.NewAt(diag.CodeYAMLSyntax, prefix, "mapping entry must be a YAML mapping", n.Line, n.Column)
	}
	m := Mapping{Line: n.Line, Column: n.Column}

	if tn := lookup(n, "target"); tn != nil {
		_ = tn.Decode(&m.Target)
	}
	if sn := lookup(n, "source"); sn != nil {
		_ = sn.Decode(&m.Source)
	}
	if vn := lookup(n, "value"); vn != nil {
		var v interface{}
		if err := vn.Decode(&v); err != nil {
			return m, diag.NewAt(diag.CodeYAMLSyntax, prefix+".value", err.Error(), vn.Line, vn.Column)
		}
		m.HasValue = true
		m.Value = v
	}
	if en := lookup(n, "expr"); en != nil {
		e, derr := decodeExpr(en, prefix+".expr")
		if derr != nil {
			return m, derr
		}
		m.Expr = e
	}
	if wn := lookup(n, "when"); wn != nil {
		w, derr := decodeExpr(wn, prefix+".when")
		if derr != nil {
			return m, derr
		}
		m.When = w
	}
	if tyn := lookup(n, "type"); tyn != nil {
		_ = tyn.Decode(&m.Type)
	}
	if rn := lookup(n, "required"); rn != nil {
		_ = rn.Decode(&m.Required)
	}
	if dn := lookup(n, "default"); dn != nil {
		var d interface{}
		if err := dn.Decode(&d); err != nil {
			return m, diag.NewAt(diag.CodeYAMLSyntax, prefix+".default", err.Error(), dn.Line, dn.Column)
		}
		m.HasDefault = true
		m.Default = d
	}
	return m, nil
}

// decodeExpr decodes an Expr node. Surface syntax: a bare scalar/sequence
// literal is Lit; {ref: "path"} is Ref; {op: "name", args: [...]} is Op.
func decodeExpr(n *yaml.Node, logicalPath string) (*Expr, *diag.Diagnostic) {
	if n.Kind == yaml.MappingNode {
		if refNode := lookup(n, "ref"); refNode != nil {
			var path string
			if err := refNode.Decode(&path); err != nil {
				return nil, diag.NewAt(diag.CodeYAMLSyntax, logicalPath+".ref", err.Error(), refNode.Line, refNode.Column)
			}
			return &Expr{Kind: ExprRef, RefPath: path, Line: n.Line, Column: n.Column}, nil
		}
		if opNode := lookup(n, "op"); opNode != nil {
			var name string
			if err := opNode.Decode(&name); err != nil {
				return nil, diag.NewAt(diag.CodeYAMLSyntax, logicalPath+".op", err.Error(), opNode.Line, opNode.Column)
			}
			e := &Expr{Kind: ExprOp, OpName: name, Line: n.Line, Column: n.Column}
			if argsNode := lookup(n, "args"); argsNode != nil {
				if argsNode.Kind != yaml.SequenceNode {
					return nil, diag.NewAt(diag.CodeYAMLSyntax, logicalPath+".args", "args must be a YAML sequence", argsNode.Line, argsNode.Column)
				}
				for i, argNode := range argsNode.Content {
					arg, derr := decodeExpr(argNode, fmt.Sprintf("%s.args[%d]", logicalPath, i))
					if derr != nil {
						return nil, derr
					}
					e.OpArgs = append(e.OpArgs, arg)
				}
			}
			return e, nil
		}
		return nil, diag.NewAt(diag.CodeInvalidExprShape, logicalPath, "expression mapping must contain 'ref' or 'op'", n.Line, n.Column)
	}
	// Scalar or sequence: treat as a Lit.
	var lit interface{}
	if err := n.Decode(&lit); err != nil {
		return nil, diag.NewAt(diag.CodeYAMLSyntax, logicalPath, err.Error(), n.Line, n.Column)
	}
	return &Expr{Kind: ExprLit, Lit: lit, Line: n.Line, Column: n.Column}, nil
}
