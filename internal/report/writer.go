package report

import (
	"io"

	"hashharvest/internal/model"
)

// Writer defines the interface for inventory output.
// Implementations write the finished collection in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// Write outputs the inventory to the configured destination.
	// Returns the number of bytes written and any error encountered.
	// A write failure is a hard failure of the overall run: the
	// accumulated data is intact, but the artifact was not produced.
	Write(inv *model.Inventory) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the inventory to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(inv *model.Inventory) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(inv)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for inventory writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
