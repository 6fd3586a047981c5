// Package filter implements the optional pre-pass (A4) that drops raw
// input records before the Transformer runs. Grounded directly on the
// teacher's internal/app/app.go filter step: compile one govaluate
// expression, evaluate it per record, keep only records where it is true.
// This is a CLI convenience wired to the pack's govaluate dependency — it
// is not the engine's own Expr/when language (C6), and per spec.md's
// Non-goals the engine never gains a second expression dialect because of
// it (SPEC_FULL 4.9).
package filter

import (
	"fmt"

	"github.com/Knetic/govaluate"

	"github.com/vinhphatfsg/transform-rules/internal/logging"
	"github.com/vinhphatfsg/transform-rules/internal/util"
)

// Filter compiles expr once and can be applied to many records.
type Filter struct {
	expr *govaluate.EvaluableExpression
}

// Compile parses expr. An empty expr is invalid; callers should only
// construct a Filter when the --filter flag was supplied.
func Compile(expr string) (*Filter, error) {
	e, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return nil, fmt.Errorf("filter: invalid expression %q: %w", expr, err)
	}
	return &Filter{expr: e}, nil
}

// Apply evaluates the filter against every record (spec.md's raw input
// record, never `out` — A-P1) and returns the kept subset in order.
func (f *Filter) Apply(records []interface{}) []interface{} {
	kept := make([]interface{}, 0, len(records))
	skipped := 0
	for i, rec := range records {
		params, ok := rec.(map[string]interface{})
		if !ok {
			logging.Logf(logging.Warning, "filter: record %d is not an object, skipping", i)
			skipped++
			continue
		}
		result, err := f.expr.Evaluate(params)
		if err != nil {
			logging.Logf(logging.Warning, "filter: record %d failed to evaluate: %v. Record (masked): %v", i, err, util.MaskSensitiveData(params))
			skipped++
			continue
		}
		keep, ok := result.(bool)
		if !ok {
			logging.Logf(logging.Warning, "filter: record %d produced non-bool result %v (%T)", i, result, result)
			skipped++
			continue
		}
		if keep {
			kept = append(kept, rec)
		} else {
			skipped++
		}
	}
	logging.Logf(logging.Info, "filter: kept %d, skipped %d", len(kept), skipped)
	return kept
}
