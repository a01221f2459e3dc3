package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/privfilter/internal/classify"
	"github.com/dshills/privfilter/internal/report"
)

// MarkdownWriter outputs a markdown report suitable for tickets and PR comments.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, rep *report.Report) error {
	ew := &errWriter{w: w}
	total := rep.Summary.Total()

	// Heading
	ew.printf("## Privacy Scan: `%s`\n\n", rep.Document.File)
	if rep.Document.Envelope != "" {
		ew.printf("Unwrapped from a `%s` envelope.\n\n", rep.Document.Envelope)
	}

	// Summary table
	ew.printf("| Severity | Count |\n")
	ew.printf("|----------|-------|\n")
	ew.printf("| High     | %d    |\n", rep.Summary.Counts.High)
	ew.printf("| Medium   | %d    |\n", rep.Summary.Counts.Medium)
	ew.printf("| Low      | %d    |\n", rep.Summary.Counts.Low)
	ew.printf("| **Total** | **%d** |\n\n", total)
	ew.printf("%d of %d fields selected for redaction (%s).\n\n",
		rep.Summary.Redacted, rep.Document.Leaves, rep.Selection.State)

	if total == 0 {
		ew.println("No sensitive fields found. :white_check_mark:")
		return ew.err
	}

	// Collapsible sections by severity
	grouped := groupBySeverity(rep.Findings)
	for _, sev := range []classify.Severity{classify.SeverityHigh, classify.SeverityMedium, classify.SeverityLow} {
		findings := grouped[sev]
		if len(findings) == 0 {
			continue
		}

		ew.printf("<details>\n<summary>%s %s (%d)</summary>\n\n", mdSeverityIcon(sev), strings.ToUpper(string(sev)), len(findings))
		ew.printf("| Field | Category | Rules | Redacted |\n")
		ew.printf("|-------|----------|-------|----------|\n")
		for _, f := range findings {
			redacted := "no"
			if f.Redacted {
				redacted = "yes"
			}
			ew.printf("| `%s` | %s | %s | %s |\n",
				mdEscape(f.Path), categoryList(f), strings.Join(f.Rules, ", "), redacted)
		}
		ew.printf("\n</details>\n\n")
	}

	if len(rep.Selection.Added) > 0 {
		ew.printf("**Also redacted:** %s\n\n", mdPathList(rep.Selection.Added))
	}
	if len(rep.Selection.Kept) > 0 {
		ew.printf("**Not redacted:** %s\n\n", mdPathList(rep.Selection.Kept))
	}

	// Timing footer
	ew.printf("*Scanned in %dms*\n", rep.Timing.TotalMs)

	return ew.err
}

func mdSeverityIcon(s classify.Severity) string {
	switch s {
	case classify.SeverityHigh:
		return ":red_circle:"
	case classify.SeverityMedium:
		return ":orange_circle:"
	case classify.SeverityLow:
		return ":yellow_circle:"
	default:
		return ":white_circle:"
	}
}

// mdEscape keeps field paths from breaking table cells and code spans.
func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "`", "'")
}

func mdPathList(paths []string) string {
	parts := make([]string, len(paths))
	for i, p := range paths {
		parts[i] = fmt.Sprintf("`%s`", mdEscape(p))
	}
	return strings.Join(parts, ", ")
}
