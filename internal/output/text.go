package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/dshills/privfilter/internal/classify"
	"github.com/dshills/privfilter/internal/report"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct {
	// Color enables ANSI highlighting of severities.
	Color bool
}

func (t *TextWriter) Write(w io.Writer, rep *report.Report) error {
	ew := &errWriter{w: w}

	// Summary header
	total := rep.Summary.Total()
	ew.printf("Privacy Scan — %s\n", rep.Document.File)
	if rep.Document.Envelope != "" {
		ew.printf("Envelope: %s (unwrapped)\n", rep.Document.Envelope)
	}
	ew.println(strings.Repeat("─", 60))
	ew.printf("Fields: %d | Sensitive: %d", rep.Document.Leaves, total)
	if total > 0 {
		ew.printf(" (%d high, %d medium, %d low)",
			rep.Summary.Counts.High,
			rep.Summary.Counts.Medium,
			rep.Summary.Counts.Low,
		)
	}
	ew.printf(" | Redacted: %d (%s)\n", rep.Summary.Redacted, rep.Selection.State)
	ew.println(strings.Repeat("─", 60))

	if total == 0 && len(rep.Selection.Added) == 0 {
		ew.println("\nNo sensitive fields found.")
		return ew.err
	}

	// Group by severity (high first), keeping document order within a group
	grouped := groupBySeverity(rep.Findings)
	for _, sev := range []classify.Severity{classify.SeverityHigh, classify.SeverityMedium, classify.SeverityLow} {
		findings := grouped[sev]
		if len(findings) == 0 {
			continue
		}

		label := strings.ToUpper(string(sev))
		ew.printf("\n%s\n", severityColor(sev, t.Color).Sprintf("%s %s", severityIcon(sev), label))
		ew.println(strings.Repeat("─", 40))

		for _, f := range findings {
			state := "kept"
			if f.Redacted {
				state = "redacted"
			}
			ew.printf("\n  %s  %s\n", f.Path, paint(t.Color, color.Faint).Sprintf("[%s]", state))
			ew.printf("  Category: %s | Rules: %s\n", categoryList(f), strings.Join(f.Rules, ", "))
			if f.Value != nil {
				ew.printf("    value: %v\n", f.Value)
			}
		}
	}

	if len(rep.Selection.Added) > 0 || len(rep.Selection.Kept) > 0 {
		ew.printf("\n%s\n", strings.Repeat("─", 60))
		if len(rep.Selection.Added) > 0 {
			ew.printf("Also redacted: %s\n", strings.Join(rep.Selection.Added, ", "))
		}
		if len(rep.Selection.Kept) > 0 {
			ew.printf("Not redacted: %s\n", strings.Join(rep.Selection.Kept, ", "))
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.printf("Completed in %dms\n", rep.Timing.TotalMs)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func groupBySeverity(findings []report.Finding) map[classify.Severity][]report.Finding {
	m := make(map[classify.Severity][]report.Finding)
	for _, f := range findings {
		m[f.Severity] = append(m[f.Severity], f)
	}
	return m
}

func categoryList(f report.Finding) string {
	if len(f.Categories) == 0 {
		return string(f.Category)
	}
	parts := make([]string, len(f.Categories))
	for i, c := range f.Categories {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}

func severityIcon(s classify.Severity) string {
	switch s {
	case classify.SeverityHigh:
		return "[!!]"
	case classify.SeverityMedium:
		return "[!]"
	case classify.SeverityLow:
		return "[-]"
	default:
		return "[?]"
	}
}

func severityColor(s classify.Severity, on bool) *color.Color {
	switch s {
	case classify.SeverityHigh:
		return paint(on, color.FgRed, color.Bold)
	case classify.SeverityMedium:
		return paint(on, color.FgYellow)
	default:
		return paint(on, color.FgCyan)
	}
}
