package io

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/vinhphatfsg/transform-rules/internal/rules"
)

// XLSXReader adapts excelize to InputReader, the [NEW] input format
// SPEC_FULL 3 adds to exercise the pack's spreadsheet dependency. Rows are
// read eagerly (excelize has no per-row streaming cursor as simple as
// encoding/csv's, so this mirrors the teacher's internal/io/xlsx.go
// load-all-rows-then-iterate shape) and, like CSV, every cell value is a
// string.
type XLSXReader struct {
	rows [][]string
	idx  int
	cols []string
}

func NewXLSXReader(rc io.ReadCloser, spec *rules.XLSXSpec) (*XLSXReader, error) {
	defer rc.Close()
	f, err := excelize.OpenReader(rc)
	if err != nil {
		return nil, fmt.Errorf("xlsx: opening workbook: %w", err)
	}
	defer f.Close()

	sheet := spec.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx: reading sheet %q: %w", sheet, err)
	}

	xr := &XLSXReader{}
	if spec.HasHeader {
		if len(rows) == 0 {
			return nil, fmt.Errorf("xlsx: sheet %q has no header row", sheet)
		}
		xr.cols = rows[0]
		xr.rows = rows[1:]
	} else {
		for _, c := range spec.Columns {
			xr.cols = append(xr.cols, c.Name)
		}
		xr.rows = rows
	}
	return xr, nil
}

func (r *XLSXReader) Next() (interface{}, bool, error) {
	if r.idx >= len(r.rows) {
		return nil, false, nil
	}
	row := r.rows[r.idx]
	r.idx++
	rec := make(map[string]interface{}, len(r.cols))
	for i, col := range r.cols {
		if i < len(row) {
			rec[col] = row[i]
		} else {
			rec[col] = ""
		}
	}
	return rec, true, nil
}

func (r *XLSXReader) Close() error {
	return nil
}
