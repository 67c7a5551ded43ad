package output

// Writer defines the interface for writing fetched records. Formats
// that need the full column set (CSV) may buffer and only produce
// output on Close.
type Writer interface {
	// Write writes a single record to the output.
	Write(record map[string]any) error

	// Close flushes buffered data and releases resources. It must be
	// called when all writing is complete.
	Close() error
}
