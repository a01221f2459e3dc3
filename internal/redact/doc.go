// Package redact applies the redaction selection at display time.
//
// Values of selected field paths are shown as [Placeholder]; everything else
// is rendered as a JSON-style scalar. The document itself is never modified.
//
// Path-based selection is also supported: field paths matching configured
// patterns (exact paths, subtree prefixes or globs, see flatten.MatchPattern)
// can be added to the selection in bulk.
package redact
