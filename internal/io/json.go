package io

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/vinhphatfsg/transform-rules/internal/diag"
	"github.com/vinhphatfsg/transform-rules/internal/pathx"
	"github.com/vinhphatfsg/transform-rules/internal/rules"
	"github.com/vinhphatfsg/transform-rules/internal/value"
)

// JSONReader adapts encoding/json to InputReader, applying records_path
// per spec.md 6: the root value is an array of records, an object treated
// as a single record, or a nested value addressed by records_path.
type JSONReader struct {
	rc      io.ReadCloser
	records []interface{}
	idx     int
}

func NewJSONReader(rc io.ReadCloser, spec *rules.JSONSpec) (*JSONReader, error) {
	var root interface{}
	dec := json.NewDecoder(rc)
	dec.UseNumber()
	if err := dec.Decode(&root); err != nil {
		return nil, diag.Runtime(diag.CodeInvalidInput, "$", fmt.Sprintf("decoding input: %v", err))
	}
	root = normalizeNumbers(root)

	target := root
	if spec != nil && spec.RecordsPath != "" {
		p, err := pathx.Parse(spec.RecordsPath, pathx.RecordsPathContext)
		if err != nil {
			return nil, diag.Runtime(diag.CodeInvalidRecordsPath, "input.json.records_path", fmt.Sprintf("invalid records_path: %v", err))
		}
		rv := pathx.Resolve(root, p.Steps)
		if rv.IsMissing() {
			return nil, diag.Runtime(diag.CodeInvalidRecordsPath, "input.json.records_path", fmt.Sprintf("records_path %q did not resolve", spec.RecordsPath))
		}
		raw, _ := rv.Interface()
		target = raw
	}

	var records []interface{}
	switch t := target.(type) {
	case []interface{}:
		records = t
	case map[string]interface{}:
		records = []interface{}{t}
	default:
		return nil, diag.Runtime(diag.CodeInvalidInput, "$", fmt.Sprintf("input resolves to neither an object nor an array (got %s)", value.KindOf(target)))
	}

	return &JSONReader{rc: rc, records: records}, nil
}

// normalizeNumbers converts json.Number leaves (produced by UseNumber) into
// float64, the numeric representation the rest of the engine assumes.
// Integers beyond float64's exact range therefore lose precision here, and
// a number that does not convert becomes 0.
func normalizeNumbers(v interface{}) interface{} {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0.0
		}
		return f
	case []interface{}:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
		return t
	case map[string]interface{}:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
		return t
	default:
		return v
	}
}

func (r *JSONReader) Next() (interface{}, bool, error) {
	if r.idx >= len(r.records) {
		return nil, false, nil
	}
	rec := r.records[r.idx]
	r.idx++
	return rec, true, nil
}

func (r *JSONReader) Close() error {
	return r.rc.Close()
}

// marshalRecord produces the one canonical JSON body shared by both output
// writers, satisfying P6 (NDJSON concatenation equals array-mode output).
func marshalRecord(rec map[string]interface{}) ([]byte, error) {
	return json.Marshal(rec)
}

// JSONArrayWriter streams a JSON array, one record at a time, without
// buffering the whole output in memory.
type JSONArrayWriter struct {
	w       *bufio.Writer
	started bool
}

func NewJSONArrayWriter(w io.Writer) *JSONArrayWriter {
	return &JSONArrayWriter{w: bufio.NewWriter(w)}
}

func (w *JSONArrayWriter) Write(rec map[string]interface{}) error {
	body, err := marshalRecord(rec)
	if err != nil {
		return fmt.Errorf("json: marshalling record: %w", err)
	}
	if !w.started {
		if _, err := w.w.WriteString("["); err != nil {
			return err
		}
		w.started = true
	} else {
		if _, err := w.w.WriteString(","); err != nil {
			return err
		}
	}
	if _, err := w.w.Write(body); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONArrayWriter) Close() error {
	if !w.started {
		if _, err := w.w.WriteString("[]\n"); err != nil {
			return err
		}
		return w.w.Flush()
	}
	if _, err := w.w.WriteString("]\n"); err != nil {
		return err
	}
	return w.w.Flush()
}

// NDJSONWriter emits one record per line, flushing after every write so a
// slow consumer applies backpressure naturally (spec.md 5).
type NDJSONWriter struct {
	w *bufio.Writer
}

func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{w: bufio.NewWriter(w)}
}

func (w *NDJSONWriter) Write(rec map[string]interface{}) error {
	body, err := marshalRecord(rec)
	if err != nil {
		return fmt.Errorf("json: marshalling record: %w", err)
	}
	if _, err := w.w.Write(body); err != nil {
		return err
	}
	if _, err := w.w.WriteString("\n"); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *NDJSONWriter) Close() error {
	return w.w.Flush()
}
