package report

import (
	"encoding/csv"
	"io"

	"hashharvest/internal/model"
)

// csvTimeLayout is the Collection_Date format, kept compatible with the
// downstream threat-intel tooling that consumes these inventories.
const csvTimeLayout = "2006-01-02 15:04:05"

// csvHeader is the fixed column header of the artifact.
var csvHeader = []string{"Hash", "Hash_Type", "Collection_Date"}

// CSVWriter outputs the inventory as CSV, one row per hash.
// Rows follow the inventory's record order, which is ascending by hash
// string, so output is deterministic given a fixed input set.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the inventory in CSV format.
// The byte count is approximate (encoding/csv does not report it); we
// count through an intermediate counter so MultiWriter totals stay honest.
func (w *CSVWriter) Write(inv *model.Inventory) (int, error) {
	counter := &countingWriter{w: w.output}
	cw := csv.NewWriter(counter)

	if err := cw.Write(csvHeader); err != nil {
		return counter.n, err
	}

	for _, record := range inv.Records {
		row := []string{
			record.Hash,
			record.Kind.String(),
			record.CollectedAt.Format(csvTimeLayout),
		}
		if err := cw.Write(row); err != nil {
			return counter.n, err
		}
	}

	cw.Flush()
	return counter.n, cw.Error()
}

// countingWriter counts bytes passing through to the underlying writer.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
