// Package selection tracks which field paths are marked for redaction.
package selection
