package report

import (
	"encoding/json"
	"io"

	"hashharvest/internal/model"
)

// JSONWriter outputs the inventory in JSON format.
// This format is designed for tool integration and programmatic processing:
// it carries the full records plus the run statistics.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because it is sufficient for a write-once artifact and
// keeps behavior consistent across Go versions.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the inventory in JSON format.
func (w *JSONWriter) Write(inv *model.Inventory) (int, error) {
	counter := &countingWriter{w: w.output}
	encoder := json.NewEncoder(counter)
	if w.indent {
		encoder.SetIndent("", "  ")
	}

	err := encoder.Encode(inv)
	return counter.n, err
}
