package output

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/dshills/privfilter/internal/filter"
	"github.com/dshills/privfilter/internal/redact"
)

// maxPathWidth caps the path column; longer paths push their value right.
const maxPathWidth = 48

// ViewWriter renders every leaf of a document with sensitive fields
// highlighted and redacted fields masked.
type ViewWriter struct {
	Color bool
}

func (v *ViewWriter) Write(w io.Writer, snap filter.Snapshot) error {
	ew := &errWriter{w: w}
	if !snap.Loaded() {
		ew.println("(no document loaded)")
		return ew.err
	}

	ew.printf("%s", paint(v.Color, color.Bold).Sprint(snap.FileName))
	ew.printf("  %d fields, %d sensitive, %d redacted\n",
		snap.LeafCount(), len(snap.Sensitive), len(snap.Redactions))

	width := 0
	for _, e := range snap.Entries {
		if n := utf8.RuneCountInString(e.Path); n > width {
			width = n
		}
	}
	width = min(width, maxPathWidth)

	masked := paint(v.Color, color.FgRed)
	flagged := paint(v.Color, color.FgYellow)
	faint := paint(v.Color, color.Faint)

	findings := snap.DescriptorsByPath()
	selected := snap.RedactionSet()
	for _, e := range snap.Entries {
		pad := strings.Repeat(" ", max(0, width-utf8.RuneCountInString(e.Path)))
		d, sensitive := findings[e.Path]
		redacted := selected[e.Path]
		val := redact.Field(e.Value, redacted)

		switch {
		case redacted && sensitive:
			ew.printf("  %s%s = %s  %s\n", e.Path, pad, masked.Sprint(val), faint.Sprintf("(%s)", d.Category))
		case redacted:
			ew.printf("  %s%s = %s  %s\n", e.Path, pad, masked.Sprint(val), faint.Sprint("(manual)"))
		case sensitive:
			ew.printf("  %s%s = %s  %s\n", e.Path, pad, flagged.Sprint(val), faint.Sprintf("(%s, not redacted)", d.Category))
		default:
			ew.printf("  %s%s = %s\n", e.Path, pad, val)
		}
	}
	return ew.err
}
