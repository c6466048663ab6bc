// Package report provides output writers for the collected hash inventory.
//
// This package contains writers for different output formats:
//   - CSVWriter: the default artifact, one row per hash
//   - JSONWriter: structured output for tool integration
//   - MarkdownWriter: a human-readable run summary document
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output. Writers consume a
// finished model.Inventory; they never observe a collection in progress,
// so output is always a complete artifact or nothing.
package report
