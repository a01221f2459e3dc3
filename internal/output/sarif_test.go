package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestSARIFWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	w := &SARIFWriter{}
	if err := w.Write(&buf, emptyReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	var sarif sarifLog
	if err := json.Unmarshal(buf.Bytes(), &sarif); err != nil {
		t.Fatalf("Invalid SARIF JSON: %v", err)
	}
	if sarif.Version != "2.1.0" {
		t.Errorf("Version = %q, want %q", sarif.Version, "2.1.0")
	}
	if len(sarif.Runs) != 1 {
		t.Fatalf("Runs count = %d, want 1", len(sarif.Runs))
	}
	if len(sarif.Runs[0].Results) != 0 {
		t.Errorf("Results count = %d, want 0", len(sarif.Runs[0].Results))
	}
	if !strings.Contains(buf.String(), `"results": []`) {
		t.Error("results should be an empty array, not null")
	}
}

func TestSARIFWriter_WithFindings(t *testing.T) {
	var buf bytes.Buffer
	w := &SARIFWriter{}
	if err := w.Write(&buf, sampleReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	var sarif sarifLog
	if err := json.Unmarshal(buf.Bytes(), &sarif); err != nil {
		t.Fatalf("Invalid SARIF JSON: %v", err)
	}

	run := sarif.Runs[0]
	if run.Tool.Driver.Name != "privfilter" {
		t.Errorf("Driver name = %q, want %q", run.Tool.Driver.Name, "privfilter")
	}
	if len(run.Tool.Driver.Rules) != 3 {
		t.Errorf("Rules count = %d, want 3", len(run.Tool.Driver.Rules))
	}
	if len(run.Results) != 3 {
		t.Fatalf("Results count = %d, want 3", len(run.Results))
	}

	r := run.Results[0]
	if r.RuleID != "privfilter/identity-key" {
		t.Errorf("RuleID = %q", r.RuleID)
	}
	if r.Level != "error" {
		t.Errorf("Level = %q, want error", r.Level)
	}
	loc := r.Locations[0]
	if loc.PhysicalLocation.ArtifactLocation.URI != "cert.json" {
		t.Errorf("URI = %q, want cert.json", loc.PhysicalLocation.ArtifactLocation.URI)
	}
	if loc.LogicalLocations[0].FullyQualifiedName != "recipient.nric" {
		t.Errorf("logical location = %q", loc.LogicalLocations[0].FullyQualifiedName)
	}
	if r.PartialFingerprints["privfilter/v1"] != "identity/0a1b2c3d" {
		t.Errorf("fingerprint = %v", r.PartialFingerprints)
	}

	if run.Results[1].Level != "warning" || run.Results[2].Level != "note" {
		t.Errorf("levels = %q, %q; want warning, note", run.Results[1].Level, run.Results[2].Level)
	}
	if !strings.Contains(run.Results[2].Message.Text, "not selected for redaction") {
		t.Errorf("message = %q", run.Results[2].Message.Text)
	}
	if strings.Contains(buf.String(), "123456") {
		t.Error("SARIF output should never include field values")
	}
}
