package io

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vinhphatfsg/transform-rules/internal/rules"
	"github.com/vinhphatfsg/transform-rules/internal/util"
)

// PostgresReader adapts pgx to InputReader, the [NEW] input format
// SPEC_FULL 3 adds: each result row of spec.Query becomes a record, column
// names become object keys. Grounded on the teacher's
// internal/io/postgres.go connection/query idiom, inverted from writing
// destination rows to reading source rows.
type PostgresReader struct {
	ctx  context.Context
	conn *pgx.Conn
	rows pgx.Rows
	cols []string
}

func NewPostgresReader(ctx context.Context, spec *rules.PostgresSpec) (*PostgresReader, error) {
	dsn := util.ExpandEnvUniversal(spec.DSN)
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connecting to %s: %w", util.MaskCredentials(dsn), err)
	}
	rows, err := conn.Query(ctx, spec.Query)
	if err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("postgres: running query: %w", err)
	}
	cols := make([]string, 0, len(rows.FieldDescriptions()))
	for _, fd := range rows.FieldDescriptions() {
		cols = append(cols, fd.Name)
	}
	return &PostgresReader{ctx: ctx, conn: conn, rows: rows, cols: cols}, nil
}

func (r *PostgresReader) Next() (interface{}, bool, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, false, fmt.Errorf("postgres: reading rows: %w", err)
		}
		return nil, false, nil
	}
	values, err := r.rows.Values()
	if err != nil {
		return nil, false, fmt.Errorf("postgres: decoding row: %w", err)
	}
	rec := make(map[string]interface{}, len(r.cols))
	for i, col := range r.cols {
		if i < len(values) {
			rec[col] = normalizePgValue(values[i])
		}
	}
	return rec, true, nil
}

func (r *PostgresReader) Close() error {
	r.rows.Close()
	return r.conn.Close(r.ctx)
}

// normalizePgValue maps a driver-level value to a JSON value kind per
// SPEC_FULL 3: numeric -> number, text -> string, bool -> bool, anything
// else passes through as its Go representation (pgx already decodes
// JSON/JSONB columns into map[string]interface{}/[]interface{}).
func normalizePgValue(v interface{}) interface{} {
	switch t := v.(type) {
	case int16:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

// LoadContextFromPostgres runs spec.Query and returns its single result
// row as a JSON object, for use as the injected context value.
func LoadContextFromPostgres(ctx context.Context, spec *rules.PostgresSpec) (map[string]interface{}, error) {
	r, err := NewPostgresReader(ctx, spec)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	rec, ok, err := r.Next()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("postgres: context query returned no rows")
	}
	m, _ := rec.(map[string]interface{})
	return m, nil
}
