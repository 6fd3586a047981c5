package io

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/vinhphatfsg/transform-rules/internal/rules"
)

// NewInputReader builds the InputReader named by spec.Format, opening
// path when the format reads from a file. Grounded on the teacher's
// internal/io/factory.go switch-based NewInputReader.
func NewInputReader(ctx context.Context, spec *rules.InputSpec, path string) (InputReader, error) {
	switch spec.Format {
	case rules.FormatCSV:
		if spec.CSV == nil {
			return nil, fmt.Errorf("io: input.csv section is required for format csv")
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("io: opening csv input: %w", err)
		}
		return NewCSVReader(f, spec.CSV)
	case rules.FormatJSON:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("io: opening json input: %w", err)
		}
		return NewJSONReader(f, spec.JSON)
	case rules.FormatXLSX:
		if spec.XLSX == nil {
			return nil, fmt.Errorf("io: input.xlsx section is required for format xlsx")
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("io: opening xlsx input: %w", err)
		}
		return NewXLSXReader(f, spec.XLSX)
	case rules.FormatPostgres:
		if spec.Postgres == nil {
			return nil, fmt.Errorf("io: input.postgres section is required for format postgres")
		}
		return NewPostgresReader(ctx, spec.Postgres)
	default:
		return nil, fmt.Errorf("io: unrecognised input format %q", spec.Format)
	}
}

// OutputFormat names the two C9 encodings.
type OutputFormat string

const (
	OutputJSONArray OutputFormat = "json"
	OutputNDJSON    OutputFormat = "ndjson"
)

// NewOutputWriter builds the OutputWriter named by format, writing to w.
func NewOutputWriter(format OutputFormat, w io.Writer) (OutputWriter, error) {
	switch format {
	case OutputJSONArray, "":
		return NewJSONArrayWriter(w), nil
	case OutputNDJSON:
		return NewNDJSONWriter(w), nil
	default:
		return nil, fmt.Errorf("io: unrecognised output format %q", format)
	}
}
