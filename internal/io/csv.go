package io

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/vinhphatfsg/transform-rules/internal/logging"
	"github.com/vinhphatfsg/transform-rules/internal/rules"
)

// CSVReader adapts encoding/csv to InputReader. Values are always strings,
// per spec.md 6 — type coercion is a mapping-level concern (C7), not this
// adapter's. Grounded on the teacher's internal/io/csv.go header-handling
// and row-length-mismatch idiom (skip with a warning, not a hard error).
type CSVReader struct {
	r       *csv.Reader
	closer  io.Closer
	columns []string
}

// NewCSVReader builds a CSVReader from spec, reading the header row or
// using spec.Columns when has_header is false.
func NewCSVReader(rc io.ReadCloser, spec *rules.CSVSpec) (*CSVReader, error) {
	if len(spec.Delimiter) != 1 {
		return nil, fmt.Errorf("csv: delimiter must be exactly one character, got %q", spec.Delimiter)
	}
	r := csv.NewReader(rc)
	r.Comma = rune(spec.Delimiter[0])
	r.FieldsPerRecord = -1

	cr := &CSVReader{r: r, closer: rc}

	if spec.HasHeader {
		header, err := r.Read()
		if err != nil {
			return nil, fmt.Errorf("csv: reading header row: %w", err)
		}
		cr.columns = header
	} else {
		for _, c := range spec.Columns {
			cr.columns = append(cr.columns, c.Name)
		}
	}
	return cr, nil
}

func (r *CSVReader) Next() (interface{}, bool, error) {
	for {
		row, err := r.r.Read()
		if err == io.EOF {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("csv: reading row: %w", err)
		}
		if len(row) != len(r.columns) {
			logging.Logf(logging.Warning, "csv: skipping row with %d fields, expected %d", len(row), len(r.columns))
			continue
		}
		rec := make(map[string]interface{}, len(r.columns))
		for i, col := range r.columns {
			rec[col] = row[i]
		}
		return rec, true, nil
	}
}

func (r *CSVReader) Close() error {
	return r.closer.Close()
}
