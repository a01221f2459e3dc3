package report

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/privfilter/internal/classify"
	"github.com/dshills/privfilter/internal/document"
	"github.com/dshills/privfilter/internal/filter"
)

// Tool is the tool name recorded in reports.
const Tool = "privfilter"

// Finding represents a single sensitive field.
type Finding struct {
	ID         string              `json:"id"`
	Path       string              `json:"path"`
	Severity   classify.Severity   `json:"severity"`
	Category   classify.Category   `json:"category"`
	Categories []classify.Category `json:"categories"`
	Rules      []string            `json:"rules"`
	Redacted   bool                `json:"redacted"`
	Value      document.Value      `json:"value,omitempty"`
}

// DocumentInfo describes what was scanned.
type DocumentInfo struct {
	File       string `json:"file"`
	Envelope   string `json:"envelope,omitempty"`
	Leaves     int    `json:"leaves"`
	Generation uint64 `json:"generation"`
}

// SelectionInfo describes the redaction selection.
type SelectionInfo struct {
	State string   `json:"state"`
	Paths []string `json:"paths"`
	// Added lists selected paths that no rule flagged.
	Added []string `json:"added,omitempty"`
	// Kept lists flagged paths the operator deselected.
	Kept []string `json:"kept,omitempty"`
}

// SeverityCounts holds counts by severity level.
type SeverityCounts struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// Summary provides an overview of findings.
type Summary struct {
	Counts          SeverityCounts    `json:"counts"`
	HighestSeverity classify.Severity `json:"highestSeverity"`
	Redacted        int               `json:"redacted"`
}

// Total returns the number of findings.
func (s Summary) Total() int {
	return s.Counts.High + s.Counts.Medium + s.Counts.Low
}

// Timing contains performance metrics.
type Timing struct {
	TotalMs int64 `json:"totalMs"`
}

// Report is the top-level output structure.
type Report struct {
	Tool      string        `json:"tool"`
	Version   string        `json:"version"`
	RunID     string        `json:"runId"`
	Document  DocumentInfo  `json:"document"`
	Summary   Summary       `json:"summary"`
	Findings  []Finding     `json:"findings"`
	Selection SelectionInfo `json:"selection"`
	Timing    Timing        `json:"timing"`
}

// Options controls report construction.
type Options struct {
	Version string
	// ShowValues includes field values in findings. Values of selected
	// paths are never included.
	ShowValues bool
	Elapsed    time.Duration
}

// Build creates a report from a filter snapshot.
func Build(snap filter.Snapshot, opts Options) *Report {
	findings := make([]Finding, 0, len(snap.Sensitive))
	flagged := make(map[string]bool, len(snap.Sensitive))
	selected := snap.RedactionSet()
	for _, d := range snap.Sensitive {
		flagged[d.Path] = true
		f := Finding{
			Path:       d.Path,
			Severity:   d.Severity,
			Category:   d.Category,
			Categories: slices.Clone(d.Categories),
			Rules:      slices.Clone(d.Rules),
			Redacted:   selected[d.Path],
		}
		if opts.ShowValues && !f.Redacted {
			f.Value = d.Value
		}
		f.ID = generateFindingID(f)
		findings = append(findings, f)
	}

	sel := SelectionInfo{State: string(snap.State), Paths: slices.Clone(snap.Redactions)}
	if sel.Paths == nil {
		sel.Paths = []string{}
	}
	for _, p := range snap.Redactions {
		if !flagged[p] {
			sel.Added = append(sel.Added, p)
		}
	}
	for _, f := range findings {
		if !f.Redacted {
			sel.Kept = append(sel.Kept, f.Path)
		}
	}

	summary := ComputeSummary(findings)
	summary.Redacted = len(snap.Redactions)

	return &Report{
		Tool:    Tool,
		Version: opts.Version,
		RunID:   uuid.NewString(),
		Document: DocumentInfo{
			File:       snap.FileName,
			Envelope:   snap.Envelope,
			Leaves:     snap.LeafCount(),
			Generation: snap.Generation,
		},
		Summary:   summary,
		Findings:  findings,
		Selection: sel,
		Timing:    Timing{TotalMs: opts.Elapsed.Milliseconds()},
	}
}

// ComputeSummary calculates the summary from findings.
func ComputeSummary(findings []Finding) Summary {
	var s Summary
	for _, f := range findings {
		switch f.Severity {
		case classify.SeverityLow:
			s.Counts.Low++
		case classify.SeverityMedium:
			s.Counts.Medium++
		case classify.SeverityHigh:
			s.Counts.High++
		}
		if classify.SeverityRank(f.Severity) > classify.SeverityRank(s.HighestSeverity) {
			s.HighestSeverity = f.Severity
		}
	}
	return s
}

// ExceedsThreshold reports whether any finding is at or above threshold.
// Findings the operator kept (deselected) still count.
func (r *Report) ExceedsThreshold(threshold string) bool {
	for _, f := range r.Findings {
		if classify.MeetsThreshold(f.Severity, threshold) {
			return true
		}
	}
	return false
}

// generateFindingID creates a stable ID from path and category.
func generateFindingID(f Finding) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s", f.Path, f.Category)))
	return fmt.Sprintf("%s/%x", f.Category, h[:4])
}
