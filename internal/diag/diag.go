// Package diag defines the diagnostic type shared by the rule loader, the
// static validator, and the transformer's runtime error/warning channel.
// A Diagnostic implements error so it composes with ordinary Go error
// wrapping at the IO/CLI layer, while still carrying the stable
// code/logical-path contract spec.md requires for downstream tooling.
package diag

import "fmt"

// Severity distinguishes the two reporting channels spec.md separates:
// errors abort (validation failure, preflight/transform runtime failure)
// and warnings do not change the exit code.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Kind distinguishes static diagnostics from runtime ones for the CLI's
// `type=validation|runtime|warning` tag.
type Kind string

const (
	KindValidation Kind = "validation"
	KindRuntime    Kind = "runtime"
)

// Static diagnostic codes, per spec.md 4.4.
const (
	CodeYAMLSyntax            = "YAMLSyntax"
	CodeInvalidVersion        = "InvalidVersion"
	CodeMissingInputFormat    = "MissingInputFormat"
	CodeInvalidInputFormat    = "InvalidInputFormat"
	CodeMissingCsvSection     = "MissingCsvSection"
	CodeMissingJsonSection    = "MissingJsonSection"
	CodeInvalidDelimiterLen   = "InvalidDelimiterLength"
	CodeMissingCsvColumns     = "MissingCsvColumns"
	CodeMissingTarget         = "MissingTarget"
	CodeMissingMappingValue   = "MissingMappingValue"
	CodeSourceValueExclusive  = "SourceValueExprExclusive"
	CodeDuplicateTarget       = "DuplicateTarget"
	CodeInvalidRefNamespace   = "InvalidRefNamespace"
	CodeForwardOutReference   = "ForwardOutReference"
	CodeUnknownOp             = "UnknownOp"
	CodeInvalidArgs           = "InvalidArgs"
	CodeInvalidExprShape      = "InvalidExprShape"
	CodeInvalidTypeName       = "InvalidTypeName"
	CodeInvalidPath           = "InvalidPath"
)

// Runtime diagnostic codes, per spec.md 7.
const (
	CodeInvalidInput       = "InvalidInput"
	CodeInvalidRecordsPath = "InvalidRecordsPath"
	CodeInvalidRef         = "InvalidRef"
	CodeInvalidTarget      = "InvalidTarget"
	CodeMissingRequired    = "MissingRequired"
	CodeTypeCastFailed     = "TypeCastFailed"
	CodeExprError          = "ExprError"
	CodeWhenSkipped        = "WhenSkipped"
)

// Diagnostic is a single machine-readable finding.
type Diagnostic struct {
	Code        string
	Message     string
	LogicalPath string
	Kind        Kind
	Severity    Severity
	Line        int // 0 when unknown
	Column      int // 0 when unknown
}

func (d *Diagnostic) Error() string {
	if d.Line > 0 {
		return fmt.Sprintf("code=%s path=%s line=%d col=%d msg=%q", d.Code, d.LogicalPath, d.Line, d.Column, d.Message)
	}
	return fmt.Sprintf("code=%s path=%s msg=%q", d.Code, d.LogicalPath, d.Message)
}

// New builds a static-kind, error-severity diagnostic.
func New(code, logicalPath, message string) *Diagnostic {
	return &Diagnostic{Code: code, LogicalPath: logicalPath, Message: message, Kind: KindValidation, Severity: SeverityError}
}

// NewAt is New with a source position.
func NewAt(code, logicalPath, message string, line, column int) *Diagnostic {
	d := New(code, logicalPath, message)
	d.Line, d.Column = line, column
	return d
}

// Runtime builds a runtime-kind, error-severity diagnostic.
func Runtime(code, logicalPath, message string) *Diagnostic {
	return &Diagnostic{Code: code, LogicalPath: logicalPath, Message: message, Kind: KindRuntime, Severity: SeverityError}
}

// Warning builds a runtime-kind, warning-severity diagnostic (the `when`
// evaluation-failure channel).
func Warning(code, logicalPath, message string) *Diagnostic {
	return &Diagnostic{Code: code, LogicalPath: logicalPath, Message: message, Kind: KindRuntime, Severity: SeverityWarning}
}

// List is an ordered collection of diagnostics with the teacher's
// accumulator-pattern helpers: append as you go, ask HasErrors at the end,
// never short-circuit on the first finding.
type List struct {
	Items []*Diagnostic
}

func (l *List) Add(d *Diagnostic) {
	l.Items = append(l.Items, d)
}

func (l *List) HasErrors() bool {
	for _, d := range l.Items {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (l *List) Errors() []*Diagnostic {
	var out []*Diagnostic
	for _, d := range l.Items {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

func (l *List) Warnings() []*Diagnostic {
	var out []*Diagnostic
	for _, d := range l.Items {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}
