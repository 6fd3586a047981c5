package io

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/vinhphatfsg/transform-rules/internal/rules"
)

func TestNewInputReaderCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	spec := &rules.InputSpec{Format: rules.FormatCSV, CSV: &rules.CSVSpec{HasHeader: true, Delimiter: ","}}
	r, err := NewInputReader(context.Background(), spec, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer r.Close()
	rec, ok, err := r.Next()
	if err != nil || !ok {
		t.Fatalf("Next() = %v, %v, %v", rec, ok, err)
	}
}

func TestNewInputReaderCSVRequiresSection(t *testing.T) {
	spec := &rules.InputSpec{Format: rules.FormatCSV}
	if _, err := NewInputReader(context.Background(), spec, "anything.csv"); err == nil {
		t.Fatalf("expected an error when input.csv section is missing")
	}
}

func TestNewInputReaderJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.json")
	if err := os.WriteFile(path, []byte(`[{"a":1}]`), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	spec := &rules.InputSpec{Format: rules.FormatJSON, JSON: &rules.JSONSpec{}}
	r, err := NewInputReader(context.Background(), spec, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer r.Close()
	_, ok, err := r.Next()
	if err != nil || !ok {
		t.Fatalf("Next() = %v, %v", ok, err)
	}
}

func TestNewInputReaderUnrecognisedFormat(t *testing.T) {
	spec := &rules.InputSpec{Format: "bogus"}
	if _, err := NewInputReader(context.Background(), spec, "x"); err == nil {
		t.Fatalf("expected an error for an unrecognised input format")
	}
}

func TestNewOutputWriterDefaultsToJSONArray(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewOutputWriter("", &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := w.(*JSONArrayWriter); !ok {
		t.Fatalf("writer type = %T, want *JSONArrayWriter", w)
	}
}

func TestNewOutputWriterNDJSON(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewOutputWriter(OutputNDJSON, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := w.(*NDJSONWriter); !ok {
		t.Fatalf("writer type = %T, want *NDJSONWriter", w)
	}
}

func TestNewOutputWriterUnrecognisedFormat(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewOutputWriter("xml", &buf); err == nil {
		t.Fatalf("expected an error for an unrecognised output format")
	}
}
