// Package output writes fetched records as NDJSON or CSV. Records are
// schemaless, so the CSV writer buffers all rows to compute the column
// set before emitting anything.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// NDJSONWriter streams one JSON object per line.
type NDJSONWriter struct {
	encoder *json.Encoder
	closer  io.Closer
}

// NewNDJSONWriter creates a writer that streams records to w.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{encoder: json.NewEncoder(w)}
}

// NewNDJSONFileWriter creates a writer that streams records to a file.
func NewNDJSONFileWriter(path string) (*NDJSONWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return &NDJSONWriter{encoder: json.NewEncoder(f), closer: f}, nil
}

// Write encodes one record as a JSON line.
func (w *NDJSONWriter) Write(record map[string]any) error {
	if err := w.encoder.Encode(record); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return nil
}

// Close closes the underlying file, if any.
func (w *NDJSONWriter) Close() error {
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// CSVWriter buffers flattened records and writes the full table on
// Close, once the union of columns is known.
type CSVWriter struct {
	out    io.Writer
	closer io.Closer
	rows   []map[string]any
}

// NewCSVWriter creates a CSV writer targeting w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{out: w}
}

// NewCSVFileWriter creates a CSV writer targeting a file.
func NewCSVFileWriter(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return &CSVWriter{out: f, closer: f}, nil
}

// Write buffers one record, flattened.
func (w *CSVWriter) Write(record map[string]any) error {
	w.rows = append(w.rows, Flatten(record))
	return nil
}

// Close writes the header and all buffered rows, then closes the
// underlying file, if any.
func (w *CSVWriter) Close() error {
	writeErr := w.flush()

	if w.closer != nil {
		if err := w.closer.Close(); err != nil && writeErr == nil {
			writeErr = err
		}
	}

	return writeErr
}

func (w *CSVWriter) flush() error {
	if len(w.rows) == 0 {
		return nil
	}

	columns := Columns(w.rows)
	cw := csv.NewWriter(w.out)

	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(columns))
	for _, r := range w.rows {
		for i, col := range columns {
			v, ok := r[col]
			if !ok || v == nil {
				row[i] = ""
				continue
			}
			if s, isStr := v.(string); isStr {
				row[i] = s
				continue
			}
			row[i] = scalarString(v)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
