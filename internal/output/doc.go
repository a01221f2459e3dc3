// Package output formats scan reports and documents for display or machine
// consumption.
//
// Four report formats are supported:
//   - text: human-readable terminal output (default)
//   - json: full structured JSON report
//   - markdown: summary table with collapsible sections per severity
//   - sarif: SARIF v2.1.0, with the field path as a logical location
//
// Use [GetWriter] to obtain a [Writer] for a given format string, then call
// [Writer.Write] with an [io.Writer] and a [*report.Report]. [WriteReport]
// handles destination selection.
//
// [ViewWriter] renders every leaf of a document with sensitive fields
// highlighted and selected fields masked, and [WriteEntries] prints the
// flattened path/value list.
package output
