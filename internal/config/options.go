// Package config holds the CLI's Runtime Options (A3): a flag-derived
// struct plus ApplyDefaults/Validate functions in the same shape as the
// teacher's internal/config.applyDefaults/ValidateConfig, scaled down from
// a YAML ETL config to a CLI flag surface.
package config

import "fmt"

// Command names the four CLI subcommands from spec.md 6.
type Command string

const (
	CommandValidate  Command = "validate"
	CommandPreflight Command = "preflight"
	CommandTransform Command = "transform"
	CommandGenerate  Command = "generate"
)

// Options is the fully resolved CLI configuration for one invocation.
type Options struct {
	Command Command

	RulesPath string

	InputPath   string
	InputFormat string // overrides rules.InputSpec.Format detection when set; usually left blank

	ContextPath    string // JSON file; when several context sources are set, ContextLiteral wins, then ContextPath, then ContextPostgresQuery
	ContextLiteral string
	ContextPostgresDSN   string // single-row query result becomes the context value
	ContextPostgresQuery string

	OutputPath   string
	OutputFormat string // "json" (default) or "ndjson"

	FilterExpr string // optional govaluate pre-pass expression (A4)

	ErrorFormat string // "line" (default) or "json", per spec.md 6

	LogLevel string
}

// ApplyDefaults fills in Options fields left unset by flag parsing.
func ApplyDefaults(o *Options) {
	if o.OutputFormat == "" {
		o.OutputFormat = "json"
	}
	if o.ErrorFormat == "" {
		o.ErrorFormat = "line"
	}
	if o.LogLevel == "" {
		o.LogLevel = "info"
	}
}

// Validate checks the CLI-flag-level invariants that are independent of
// the rule file's own static validation (C5): required flags present,
// recognised enum values.
func Validate(o *Options) error {
	var problems []string

	if o.RulesPath == "" {
		problems = append(problems, "rules file path is required (--rules)")
	}
	switch o.Command {
	case CommandValidate, CommandGenerate:
		// no input required
	case CommandPreflight, CommandTransform:
		// --input's presence is checked later, against the rule file's own
		// input.format, once loaded: a postgres input needs no file path,
		// and that format may come from the rule file rather than --input-format.
		if o.Command == CommandTransform && o.OutputPath == "" {
			problems = append(problems, "output path is required (--output)")
		}
	default:
		problems = append(problems, fmt.Sprintf("unrecognised command %q", o.Command))
	}

	switch o.OutputFormat {
	case "json", "ndjson":
	default:
		problems = append(problems, fmt.Sprintf("unrecognised output format %q", o.OutputFormat))
	}
	switch o.ErrorFormat {
	case "line", "json":
	default:
		problems = append(problems, fmt.Sprintf("unrecognised error format %q", o.ErrorFormat))
	}

	if len(problems) == 0 {
		return nil
	}
	msg := "invalid options:"
	for _, p := range problems {
		msg += "\n  - " + p
	}
	return fmt.Errorf("%s", msg)
}
