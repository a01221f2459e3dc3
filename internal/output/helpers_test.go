package output

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/dshills/privfilter/internal/classify"
	"github.com/dshills/privfilter/internal/filter"
	"github.com/dshills/privfilter/internal/report"
)

func emptyReport() *report.Report {
	return &report.Report{
		Tool:      report.Tool,
		Version:   "1.0",
		RunID:     "test-run",
		Document:  report.DocumentInfo{File: "plain.json", Leaves: 2, Generation: 1},
		Findings:  []report.Finding{},
		Selection: report.SelectionInfo{State: "seeded", Paths: []string{}},
	}
}

func sampleReport() *report.Report {
	findings := []report.Finding{
		{
			ID:         "identity/0a1b2c3d",
			Path:       "recipient.nric",
			Severity:   classify.SeverityHigh,
			Category:   classify.CategoryIdentity,
			Categories: []classify.Category{classify.CategoryIdentity},
			Rules:      []string{"identity-key", "identity-value"},
			Redacted:   true,
		},
		{
			ID:         "name/11223344",
			Path:       "recipient.name",
			Severity:   classify.SeverityMedium,
			Category:   classify.CategoryName,
			Categories: []classify.Category{classify.CategoryName},
			Rules:      []string{"name-key"},
			Redacted:   true,
		},
		{
			ID:         "postal/55667788",
			Path:       "recipient.address.postal",
			Severity:   classify.SeverityLow,
			Category:   classify.CategoryPostal,
			Categories: []classify.Category{classify.CategoryPostal, classify.CategoryAddress},
			Rules:      []string{"postal-key", "address-segment", "postal-value"},
			Redacted:   false,
			Value:      "123456",
		},
	}
	return &report.Report{
		Tool:     report.Tool,
		Version:  "1.0",
		RunID:    "test-run",
		Document: report.DocumentInfo{File: "cert.json", Envelope: "openattestation/v2", Leaves: 9, Generation: 1},
		Summary: report.Summary{
			Counts:          report.SeverityCounts{High: 1, Medium: 1, Low: 1},
			HighestSeverity: classify.SeverityHigh,
			Redacted:        3,
		},
		Findings: findings,
		Selection: report.SelectionInfo{
			State: "edited",
			Paths: []string{"recipient.nric", "recipient.name", "remarks"},
			Added: []string{"remarks"},
			Kept:  []string{"recipient.address.postal"},
		},
		Timing: report.Timing{TotalMs: 12},
	}
}

func loadedSnapshot(t *testing.T, src string) *filter.Filter {
	t.Helper()
	f := filter.New(filter.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	if _, err := f.Import("person.json", []byte(src)); err != nil {
		t.Fatalf("Import: %v", err)
	}
	return f
}
