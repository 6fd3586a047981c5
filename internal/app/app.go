// Package app implements the CLI / App Runner (A1): flag parsing and the
// wiring of loader -> validator -> filter -> transformer -> IO. Grounded
// on the teacher's internal/app.AppRunner: package-level factory function
// variables so tests can substitute fakes, and a single Run entry point.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/vinhphatfsg/transform-rules/internal/config"
	"github.com/vinhphatfsg/transform-rules/internal/diag"
	"github.com/vinhphatfsg/transform-rules/internal/filter"
	"github.com/vinhphatfsg/transform-rules/internal/gen"
	ioadapter "github.com/vinhphatfsg/transform-rules/internal/io"
	"github.com/vinhphatfsg/transform-rules/internal/logging"
	"github.com/vinhphatfsg/transform-rules/internal/rules"
	"github.com/vinhphatfsg/transform-rules/internal/transform"
	"github.com/vinhphatfsg/transform-rules/internal/util"
	"github.com/vinhphatfsg/transform-rules/internal/validate"
)

// Exit codes per spec.md 6.
const (
	ExitOK              = 0
	ExitUsageError      = 1
	ExitValidationError = 2
	ExitRuntimeError    = 3
)

// Factory variables, overridable in tests exactly as the teacher's
// newInputReaderFunc/newOutputWriterFunc/newExpressionEvaluatorFunc were.
var (
	loadRuleFileFunc    = rules.LoadFile
	newInputReaderFunc  = ioadapter.NewInputReader
	newOutputWriterFunc = ioadapter.NewOutputWriter
	loadContextPgFunc   = ioadapter.LoadContextFromPostgres
)

// AppRunner encapsulates the CLI's execution logic.
type AppRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewAppRunner builds an AppRunner writing to os.Stdout/os.Stderr.
func NewAppRunner() *AppRunner {
	return &AppRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

const usageText = `Usage:
  transform-rules <validate|preflight|transform|generate> [options]

Options:
  --rules <path>        rule file (required)
  --input <path>         input data file
  --input-format <fmt>   override detected input format (csv|json|xlsx|postgres)
  --context <path>       JSON context file
  --context-json <json>  inline JSON context literal
  --output <path>        output file (transform only)
  --output-format <fmt>  json (default) or ndjson
  --filter <expr>        govaluate pre-pass expression, applied before transform
  --error-format <fmt>   line (default) or json
  --loglevel <level>     none|error|warning|info|debug (default info)
`

// Usage writes the CLI help text to w.
func (a *AppRunner) Usage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// Run parses args and executes the requested subcommand, returning the
// process exit code per spec.md 6.
func (a *AppRunner) Run(args []string) int {
	if len(args) == 0 {
		a.Usage(a.Stderr)
		return ExitUsageError
	}
	cmd := args[0]
	rest := args[1:]

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	opts := config.Options{Command: config.Command(cmd)}
	fs.StringVar(&opts.RulesPath, "rules", "", "rule file path")
	fs.StringVar(&opts.InputPath, "input", "", "input data file")
	fs.StringVar(&opts.InputFormat, "input-format", "", "override input format")
	fs.StringVar(&opts.ContextPath, "context", "", "JSON context file")
	fs.StringVar(&opts.ContextLiteral, "context-json", "", "inline JSON context literal")
	fs.StringVar(&opts.ContextPostgresDSN, "context-dsn", "", "Postgres DSN for a single-row context query")
	fs.StringVar(&opts.ContextPostgresQuery, "context-query", "", "Postgres query whose single row becomes the context value")
	fs.StringVar(&opts.OutputPath, "output", "", "output file path")
	fs.StringVar(&opts.OutputFormat, "output-format", "", "json or ndjson")
	fs.StringVar(&opts.FilterExpr, "filter", "", "govaluate pre-pass expression")
	fs.StringVar(&opts.ErrorFormat, "error-format", "", "line or json")
	fs.StringVar(&opts.LogLevel, "loglevel", "", "log level")
	help := fs.Bool("help", false, "show help")

	if err := fs.Parse(rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			a.Usage(a.Stderr)
			return ExitOK
		}
		fmt.Fprintln(a.Stderr, err)
		return ExitUsageError
	}
	if *help {
		a.Usage(a.Stderr)
		return ExitOK
	}

	config.ApplyDefaults(&opts)
	if err := config.Validate(&opts); err != nil {
		fmt.Fprintln(a.Stderr, err)
		return ExitUsageError
	}
	logging.SetupLogging(opts.LogLevel)

	opts.RulesPath = util.ExpandEnvUniversal(opts.RulesPath)
	opts.InputPath = util.ExpandEnvUniversal(opts.InputPath)
	opts.ContextPath = util.ExpandEnvUniversal(opts.ContextPath)

	rf, derr := loadRuleFileFunc(opts.RulesPath)
	if derr != nil {
		a.printDiagnostic(derr, &opts)
		return ExitValidationError
	}

	diags := validate.Validate(rf)
	if diags.HasErrors() {
		for _, d := range diags.Errors() {
			a.printDiagnostic(d, &opts)
		}
		return ExitValidationError
	}

	if opts.Command == config.CommandPreflight || opts.Command == config.CommandTransform {
		effectiveFormat := rf.Input.Format
		if opts.InputFormat != "" {
			effectiveFormat = rules.InputFormat(opts.InputFormat)
		}
		if opts.InputPath == "" && effectiveFormat != rules.FormatPostgres {
			fmt.Fprintln(a.Stderr, "input path is required (--input)")
			return ExitUsageError
		}
	}

	switch opts.Command {
	case config.CommandValidate:
		logging.Logf(logging.Info, "rules file %s is valid", opts.RulesPath)
		return ExitOK
	case config.CommandGenerate:
		return a.runGenerate(rf, &opts)
	case config.CommandPreflight:
		return a.runPreflight(rf, &opts)
	case config.CommandTransform:
		return a.runTransform(rf, &opts)
	default:
		fmt.Fprintf(a.Stderr, "unrecognised command %q\n", cmd)
		return ExitUsageError
	}
}

func (a *AppRunner) runGenerate(rf *rules.RuleFile, opts *config.Options) int {
	structSrc, err := gen.GoStruct(rf)
	if err != nil {
		fmt.Fprintln(a.Stderr, err)
		return ExitRuntimeError
	}
	schemaSrc, err := gen.JSONSchema(rf)
	if err != nil {
		fmt.Fprintln(a.Stderr, err)
		return ExitRuntimeError
	}
	fmt.Fprint(a.Stdout, structSrc)
	fmt.Fprint(a.Stdout, "\n")
	fmt.Fprint(a.Stdout, schemaSrc)
	return ExitOK
}

func (a *AppRunner) runPreflight(rf *rules.RuleFile, opts *config.Options) int {
	records, ctxVal, err := a.loadRecordsAndContext(rf, opts)
	if err != nil {
		a.reportLoadError(err, opts)
		return ExitRuntimeError
	}
	if opts.FilterExpr != "" {
		records, err = applyFilter(opts.FilterExpr, records)
		if err != nil {
			fmt.Fprintln(a.Stderr, err)
			return ExitRuntimeError
		}
	}
	errs, warnings := transform.Preflight(rf, records, ctxVal)
	for _, w := range warnings {
		a.printDiagnostic(w, opts)
	}
	for _, e := range errs {
		a.printDiagnostic(e, opts)
	}
	if len(errs) > 0 {
		return ExitRuntimeError
	}
	logging.Logf(logging.Info, "preflight: %d records checked, %d warnings", len(records), len(warnings))
	return ExitOK
}

func (a *AppRunner) runTransform(rf *rules.RuleFile, opts *config.Options) int {
	records, ctxVal, err := a.loadRecordsAndContext(rf, opts)
	if err != nil {
		a.reportLoadError(err, opts)
		return ExitRuntimeError
	}
	if opts.FilterExpr != "" {
		records, err = applyFilter(opts.FilterExpr, records)
		if err != nil {
			fmt.Fprintln(a.Stderr, err)
			return ExitRuntimeError
		}
	}

	out, err := os.Create(opts.OutputPath)
	if err != nil {
		fmt.Fprintln(a.Stderr, err)
		return ExitRuntimeError
	}
	defer out.Close()

	writer, err := newOutputWriterFunc(ioadapter.OutputFormat(opts.OutputFormat), out)
	if err != nil {
		fmt.Fprintln(a.Stderr, err)
		return ExitRuntimeError
	}

	hadRuntimeError := false
	for _, rec := range records {
		res := transform.Transform(rf, rec, ctxVal)
		for _, w := range res.Warnings {
			a.printDiagnostic(w, opts)
		}
		if res.Err != nil {
			a.printDiagnostic(res.Err, opts)
			if m, ok := rec.(map[string]interface{}); ok {
				logging.Logf(logging.Debug, "transform: failing record (masked): %v", util.MaskSensitiveData(m))
			}
			hadRuntimeError = true
			continue
		}
		if err := writer.Write(res.Out); err != nil {
			fmt.Fprintln(a.Stderr, err)
			return ExitRuntimeError
		}
	}
	if err := writer.Close(); err != nil {
		fmt.Fprintln(a.Stderr, err)
		return ExitRuntimeError
	}
	if hadRuntimeError {
		return ExitRuntimeError
	}
	logging.Logf(logging.Info, "transform: %d records written to %s", len(records), opts.OutputPath)
	return ExitOK
}

// loadRecordsAndContext builds the input reader and drains it into a
// slice (spec.md's preflight/transform operate over the whole record
// batch so P1/P2 style diagnostics can reference siblings), and resolves
// the optional context value from file, inline literal, or Postgres.
func (a *AppRunner) loadRecordsAndContext(rf *rules.RuleFile, opts *config.Options) ([]interface{}, interface{}, error) {
	spec := rf.Input
	if opts.InputFormat != "" {
		spec.Format = rules.InputFormat(opts.InputFormat)
	}

	reader, err := newInputReaderFunc(context.Background(), &spec, opts.InputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("building input reader: %w", err)
	}
	defer reader.Close()

	var records []interface{}
	for {
		rec, ok, err := reader.Next()
		if err != nil {
			return nil, nil, fmt.Errorf("reading input: %w", err)
		}
		if !ok {
			break
		}
		records = append(records, rec)
	}

	ctxVal, err := a.loadContext(opts)
	if err != nil {
		return nil, nil, err
	}
	return records, ctxVal, nil
}

func (a *AppRunner) loadContext(opts *config.Options) (interface{}, error) {
	switch {
	case opts.ContextLiteral != "":
		var v interface{}
		if err := json.Unmarshal([]byte(opts.ContextLiteral), &v); err != nil {
			return nil, fmt.Errorf("parsing --context-json: %w", err)
		}
		return v, nil
	case opts.ContextPath != "":
		data, err := os.ReadFile(opts.ContextPath)
		if err != nil {
			return nil, fmt.Errorf("reading --context file: %w", err)
		}
		var v interface{}
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parsing --context file: %w", err)
		}
		return v, nil
	case opts.ContextPostgresQuery != "":
		row, err := loadContextPgFunc(context.Background(), &rules.PostgresSpec{
			DSN:   util.ExpandEnvUniversal(opts.ContextPostgresDSN),
			Query: opts.ContextPostgresQuery,
		})
		if err != nil {
			return nil, fmt.Errorf("loading --context-query: %w", err)
		}
		return row, nil
	default:
		return nil, nil
	}
}

// reportLoadError surfaces a loadRecordsAndContext failure the same way
// every other runtime failure is reported: if the error chain carries a
// *diag.Diagnostic (e.g. the JSON reader's malformed-input or bad
// records_path diagnostics), route it through printDiagnostic so it gets
// the stable code/path contract; otherwise fall back to a plain message
// for errors with no diagnostic (missing file, DSN failure, etc).
func (a *AppRunner) reportLoadError(err error, opts *config.Options) {
	var d *diag.Diagnostic
	if errors.As(err, &d) {
		a.printDiagnostic(d, opts)
		return
	}
	fmt.Fprintln(a.Stderr, err)
}

func applyFilter(expr string, records []interface{}) ([]interface{}, error) {
	f, err := filter.Compile(expr)
	if err != nil {
		return nil, err
	}
	return f.Apply(records), nil
}

// printDiagnostic writes one diagnostic line to stderr in the configured
// format, tagged per spec.md 6 with its reporting channel.
func (a *AppRunner) printDiagnostic(d *diag.Diagnostic, opts *config.Options) {
	tag := "validation"
	if d.Kind == diag.KindRuntime {
		tag = "runtime"
		if d.Severity == diag.SeverityWarning {
			tag = "warning"
		}
	}
	if opts.ErrorFormat == "json" {
		enc, _ := json.Marshal(map[string]interface{}{
			"type": tag,
			"code": d.Code,
			"path": d.LogicalPath,
			"line": d.Line,
			"col":  d.Column,
			"msg":  d.Message,
		})
		fmt.Fprintln(a.Stderr, string(enc))
		return
	}
	fmt.Fprintf(a.Stderr, "type=%s %s\n", tag, d.Error())
}
