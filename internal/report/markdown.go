package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"hashharvest/internal/model"
)

// markdownSampleLimit caps the number of hashes listed in the sample
// table so the summary stays readable for multi-million hash runs.
const markdownSampleLimit = 20

// MarkdownWriter outputs a human-readable collection summary in
// Markdown format. Unlike the CSV and JSON writers it does not carry
// the full hash inventory: the Markdown artifact is a run report for
// humans, with only a small sample of the collected hashes.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the collection summary in Markdown format.
func (w *MarkdownWriter) Write(inv *model.Inventory) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, inv)
	w.writeStats(md, inv)
	w.writeKindBreakdown(md, inv)
	w.writeSample(md, inv)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, inv *model.Inventory) {
	md.H1("Hash Collection Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Server", "`" + inv.Server + "`"},
			{"Started", inv.Stats.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", inv.Stats.Duration.Round(time.Millisecond).String()},
			{"Stop Reason", inv.Stats.StopReason},
		},
	})
	md.PlainText("")
}

// writeStats writes the collection statistics section.
func (w *MarkdownWriter) writeStats(md *markdown.Markdown, inv *model.Inventory) {
	md.H2("Statistics")
	md.PlainText("")

	secondary := "no"
	if inv.Stats.SecondaryUsed {
		secondary = "yes"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Unique Hashes", strconv.Itoa(inv.Stats.UniqueHashes)},
			{"Batches Processed", strconv.Itoa(inv.Stats.BatchesProcessed)},
			{"Errors", strconv.Itoa(inv.Stats.Errors)},
			{"Hashes/sec", fmt.Sprintf("%.1f", inv.Stats.Rate())},
			{"Secondary Query Used", secondary},
		},
	})
	md.PlainText("")
}

// writeKindBreakdown writes the per-algorithm hash counts.
func (w *MarkdownWriter) writeKindBreakdown(md *markdown.Markdown, inv *model.Inventory) {
	counts := map[model.HashKind]int{}
	for _, record := range inv.Records {
		counts[record.Kind]++
	}

	md.H2("Hash Types")
	md.PlainText("")

	rows := [][]string{}
	for _, kind := range []model.HashKind{model.KindMD5, model.KindSHA1, model.KindSHA256, model.KindUnknown} {
		if counts[kind] == 0 {
			continue
		}
		rows = append(rows, []string{kind.String(), strconv.Itoa(counts[kind])})
	}
	if len(rows) == 0 {
		md.PlainText("No hashes collected.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Type", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeSample writes a small sample of the collected hashes.
func (w *MarkdownWriter) writeSample(md *markdown.Markdown, inv *model.Inventory) {
	if len(inv.Records) == 0 {
		return
	}

	md.H2("Sample")
	md.PlainText("")

	limit := len(inv.Records)
	if limit > markdownSampleLimit {
		limit = markdownSampleLimit
	}

	rows := make([][]string, 0, limit)
	for _, record := range inv.Records[:limit] {
		rows = append(rows, []string{"`" + record.Hash + "`", record.Kind.String()})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Hash", "Type"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(inv.Records) > limit {
		md.PlainTextf("Showing %d of %d hashes. See the CSV or JSON artifact for the full inventory.", limit, len(inv.Records))
		md.PlainText("")
	}
}
