package app

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/vinhphatfsg/transform-rules/internal/diag"
	ioadapter "github.com/vinhphatfsg/transform-rules/internal/io"
	"github.com/vinhphatfsg/transform-rules/internal/rules"
)

type fakeReader struct {
	records []interface{}
	i       int
}

func (f *fakeReader) Next() (interface{}, bool, error) {
	if f.i >= len(f.records) {
		return nil, false, nil
	}
	rec := f.records[f.i]
	f.i++
	return rec, true, nil
}

func (f *fakeReader) Close() error { return nil }

type fakeWriter struct {
	buf *bytes.Buffer
}

func (w *fakeWriter) Write(rec map[string]interface{}) error {
	w.buf.WriteString("wrote\n")
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func withFakes(t *testing.T, rf *rules.RuleFile, loadErr *diag.Diagnostic, records []interface{}) {
	t.Helper()
	origLoad, origReader, origWriter := loadRuleFileFunc, newInputReaderFunc, newOutputWriterFunc
	loadRuleFileFunc = func(string) (*rules.RuleFile, *diag.Diagnostic) { return rf, loadErr }
	newInputReaderFunc = func(ctx context.Context, spec *rules.InputSpec, path string) (ioadapter.InputReader, error) {
		return &fakeReader{records: records}, nil
	}
	newOutputWriterFunc = func(format ioadapter.OutputFormat, w io.Writer) (ioadapter.OutputWriter, error) {
		return &fakeWriter{buf: &bytes.Buffer{}}, nil
	}
	t.Cleanup(func() {
		loadRuleFileFunc, newInputReaderFunc, newOutputWriterFunc = origLoad, origReader, origWriter
	})
}

func cleanRuleFile() *rules.RuleFile {
	return &rules.RuleFile{
		Version: 1,
		Input:   rules.InputSpec{Format: rules.FormatCSV, CSV: &rules.CSVSpec{HasHeader: true, Delimiter: ","}},
		Mappings: []rules.Mapping{
			{Target: "id", Source: "id"},
		},
	}
}

func TestRunValidateExitsOKOnCleanRuleFile(t *testing.T) {
	withFakes(t, cleanRuleFile(), nil, nil)
	a := &AppRunner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	code := a.Run([]string{"validate", "--rules", "r.yaml"})
	if code != ExitOK {
		t.Fatalf("code = %d, want ExitOK", code)
	}
}

func TestRunValidateExitsUsageErrorOnMissingFlags(t *testing.T) {
	a := &AppRunner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	code := a.Run([]string{"validate"})
	if code != ExitUsageError {
		t.Fatalf("code = %d, want ExitUsageError", code)
	}
}

func TestRunExitsValidationErrorOnLoadFailure(t *testing.T) {
	withFakes(t, nil, diag.New(diag.CodeYAMLSyntax, "$", "bad yaml"), nil)
	a := &AppRunner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	code := a.Run([]string{"validate", "--rules", "r.yaml"})
	if code != ExitValidationError {
		t.Fatalf("code = %d, want ExitValidationError", code)
	}
}

func TestRunExitsValidationErrorOnStaticDiagnostic(t *testing.T) {
	rf := &rules.RuleFile{Version: -1}
	withFakes(t, rf, nil, nil)
	a := &AppRunner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	code := a.Run([]string{"validate", "--rules", "r.yaml"})
	if code != ExitValidationError {
		t.Fatalf("code = %d, want ExitValidationError", code)
	}
}

func TestRunTransformReportsReaderDiagnosticThroughPrintDiagnostic(t *testing.T) {
	origLoad, origReader := loadRuleFileFunc, newInputReaderFunc
	loadRuleFileFunc = func(string) (*rules.RuleFile, *diag.Diagnostic) { return cleanRuleFile(), nil }
	newInputReaderFunc = func(ctx context.Context, spec *rules.InputSpec, path string) (ioadapter.InputReader, error) {
		return nil, diag.Runtime(diag.CodeInvalidInput, "$", "malformed input")
	}
	t.Cleanup(func() { loadRuleFileFunc, newInputReaderFunc = origLoad, origReader })

	stderr := &bytes.Buffer{}
	a := &AppRunner{Stdout: &bytes.Buffer{}, Stderr: stderr}
	outDir := t.TempDir()
	code := a.Run([]string{"transform", "--rules", "r.yaml", "--input", "in.json", "--output", outDir + "/out.json", "--error-format", "json"})
	if code != ExitRuntimeError {
		t.Fatalf("code = %d, want ExitRuntimeError", code)
	}
	if !bytes.Contains(stderr.Bytes(), []byte(`"code":"InvalidInput"`)) {
		t.Fatalf("stderr = %q, want a runtime diagnostic with code InvalidInput", stderr.String())
	}
}

func TestRunAllowsMissingInputForPostgresRuleFile(t *testing.T) {
	rf := &rules.RuleFile{
		Version:  1,
		Input:    rules.InputSpec{Format: rules.FormatPostgres, Postgres: &rules.PostgresSpec{DSN: "postgres://x", Query: "select 1"}},
		Mappings: []rules.Mapping{{Target: "id", Source: "id"}},
	}
	records := []interface{}{map[string]interface{}{"id": "1"}}
	withFakes(t, rf, nil, records)
	outDir := t.TempDir()
	a := &AppRunner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	code := a.Run([]string{"transform", "--rules", "r.yaml", "--output", outDir + "/out.json"})
	if code != ExitOK {
		t.Fatalf("code = %d, want ExitOK (rule file's own postgres format should exempt --input)", code)
	}
}

func TestRunRequiresInputForNonPostgresRuleFileWithoutFlag(t *testing.T) {
	withFakes(t, cleanRuleFile(), nil, nil)
	a := &AppRunner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	code := a.Run([]string{"preflight", "--rules", "r.yaml"})
	if code != ExitUsageError {
		t.Fatalf("code = %d, want ExitUsageError when --input is missing for a non-postgres rule file", code)
	}
}

func TestRunTransformWritesEachRecord(t *testing.T) {
	records := []interface{}{
		map[string]interface{}{"id": "1"},
		map[string]interface{}{"id": "2"},
	}
	withFakes(t, cleanRuleFile(), nil, records)
	outDir := t.TempDir()
	a := &AppRunner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	code := a.Run([]string{"transform", "--rules", "r.yaml", "--input", "in.csv", "--output", outDir + "/out.json"})
	if code != ExitOK {
		t.Fatalf("code = %d, want ExitOK", code)
	}
}

func TestRunTransformExitsRuntimeErrorOnRequiredMissing(t *testing.T) {
	rf := &rules.RuleFile{
		Version: 1,
		Input:   rules.InputSpec{Format: rules.FormatCSV, CSV: &rules.CSVSpec{HasHeader: true, Delimiter: ","}},
		Mappings: []rules.Mapping{
			{Target: "id", Source: "id", Required: true},
		},
	}
	records := []interface{}{map[string]interface{}{}}
	withFakes(t, rf, nil, records)
	outDir := t.TempDir()
	a := &AppRunner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	code := a.Run([]string{"transform", "--rules", "r.yaml", "--input", "in.csv", "--output", outDir + "/out.json"})
	if code != ExitRuntimeError {
		t.Fatalf("code = %d, want ExitRuntimeError", code)
	}
}

func TestRunGenerateWritesStructAndSchema(t *testing.T) {
	withFakes(t, cleanRuleFile(), nil, nil)
	var stdout bytes.Buffer
	a := &AppRunner{Stdout: &stdout, Stderr: &bytes.Buffer{}}
	code := a.Run([]string{"generate", "--rules", "r.yaml"})
	if code != ExitOK {
		t.Fatalf("code = %d, want ExitOK", code)
	}
	if stdout.Len() == 0 {
		t.Fatalf("expected generate to write struct/schema output")
	}
}

func TestRunErrorFormatJSONEmitsJSONLines(t *testing.T) {
	withFakes(t, nil, diag.New(diag.CodeYAMLSyntax, "$", "bad yaml"), nil)
	var stderr bytes.Buffer
	a := &AppRunner{Stdout: &bytes.Buffer{}, Stderr: &stderr}
	code := a.Run([]string{"validate", "--rules", "r.yaml", "--error-format", "json"})
	if code != ExitValidationError {
		t.Fatalf("code = %d, want ExitValidationError", code)
	}
	if !bytes.Contains(stderr.Bytes(), []byte(`"code"`)) {
		t.Fatalf("stderr = %q, want JSON diagnostic", stderr.String())
	}
}
