// Package rules holds the rule AST (spec.md 3: RuleFile, InputSpec,
// Mapping, Expr) and the YAML loader that builds it (C4).
package rules

// ExprKind tags an Expr node as one of the three variants spec.md 3
// describes: Lit, Ref, Op.
type ExprKind int

const (
	ExprLit ExprKind = iota
	ExprRef
	ExprOp
)

// Expr is a tagged tree node. Exactly one of the Lit/Ref/Op fields is
// meaningful, selected by Kind. Line/Column are stamped by the loader from
// the originating yaml.Node and are zero when unavailable.
type Expr struct {
	Kind ExprKind

	Lit interface{} // ExprLit: string/number/bool/nil

	RefPath string // ExprRef: raw path string, e.g. "input.items[0].id"

	OpName string // ExprOp
	OpArgs []*Expr

	Line   int
	Column int
}

// InputFormat tags which variant of InputSpec is populated.
type InputFormat string

const (
	FormatCSV      InputFormat = "csv"
	FormatJSON     InputFormat = "json"
	FormatXLSX     InputFormat = "xlsx"
	FormatPostgres InputFormat = "postgres"
)

// ColumnSpec names a CSV/XLSX column when there is no header row.
type ColumnSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// CSVSpec is the InputSpec.CSV variant.
type CSVSpec struct {
	HasHeader bool         `yaml:"has_header"`
	Delimiter string       `yaml:"delimiter"`
	Columns   []ColumnSpec `yaml:"columns"`
}

// JSONSpec is the InputSpec.JSON variant.
type JSONSpec struct {
	RecordsPath string `yaml:"records_path"`
}

// XLSXSpec is the [NEW] InputSpec.XLSX variant (SPEC_FULL 3).
type XLSXSpec struct {
	Sheet     string       `yaml:"sheet"`
	HasHeader bool         `yaml:"has_header"`
	Columns   []ColumnSpec `yaml:"columns"`
}

// PostgresSpec is the [NEW] InputSpec.Postgres variant (SPEC_FULL 3).
type PostgresSpec struct {
	DSN   string `yaml:"dsn"`
	Query string `yaml:"query"`
}

// InputSpec is the tagged InputSpec choice from spec.md 3, widened per
// SPEC_FULL 3 with XLSX and Postgres variants.
type InputSpec struct {
	Format      InputFormat
	FormatRaw   string // as written in the rule file, for diagnostics on bad values
	CSV         *CSVSpec
	JSON        *JSONSpec
	XLSX        *XLSXSpec
	Postgres    *PostgresSpec
	Line        int
	Column      int
}

// TypeName is a Mapping.type cast target.
type TypeName string

const (
	TypeString TypeName = "string"
	TypeInt    TypeName = "int"
	TypeFloat  TypeName = "float"
	TypeBool   TypeName = "bool"
)

// Mapping is a single target-producing rule (spec.md 3 and GLOSSARY).
type Mapping struct {
	Target   string
	Source   string // raw path string, empty if unset
	HasValue bool
	Value    interface{} // literal JSON value, meaningful when HasValue
	Expr     *Expr       // meaningful when non-nil
	When     *Expr       // optional guard
	Type     string      // raw type name, "" if unset
	Required bool
	HasDefault bool
	Default    interface{}

	Line   int
	Column int
}

// OutputSpec carries the DTO-generator-only `output.name` field.
type OutputSpec struct {
	Name string `yaml:"name"`
}

// RuleFile is the loaded, immutable rule document (spec.md 3). It is
// read-only after Load returns and may be shared across concurrent
// transform invocations.
type RuleFile struct {
	Version  int
	Input    InputSpec
	Mappings []Mapping
	Output   OutputSpec
}
