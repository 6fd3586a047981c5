// Package io implements the input reader adapters (C8) and output writers
// (C9). Grounded on the teacher's internal/io package: one interface pair,
// one factory per format, one reader/writer per format file.
package io

// InputReader yields records one at a time. Next returns ok=false with a
// nil error once the input is exhausted; any error aborts iteration.
type InputReader interface {
	Next() (record interface{}, ok bool, err error)
	Close() error
}

// OutputWriter emits one transformed record at a time. Close finalises the
// stream (writing a trailing bracket for array mode, nothing extra for
// NDJSON beyond the last record's own newline).
type OutputWriter interface {
	Write(record map[string]interface{}) error
	Close() error
}
