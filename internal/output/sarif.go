package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/dshills/privfilter/internal/classify"
	"github.com/dshills/privfilter/internal/report"
)

// SARIFWriter outputs findings in SARIF v2.1.0 format.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, rep *report.Report) error {
	sarif := buildSARIF(rep)
	data, err := json.MarshalIndent(sarif, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling SARIF")
	}
	_, err = w.Write(data)
	if err != nil {
		return errors.Wrap(err, "writing SARIF")
	}
	_, err = fmt.Fprintln(w)
	return err
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	ShortDescription sarifMessage        `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig  `json:"defaultConfiguration"`
	Properties       sarifRuleProperties `json:"properties,omitempty"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifRuleProperties struct {
	Tags []string `json:"tags,omitempty"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	Level               string            `json:"level"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLocation   `json:"locations,omitempty"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
	Properties          map[string]any    `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation  `json:"physicalLocation"`
	LogicalLocations []sarifLogicalLocation `json:"logicalLocations,omitempty"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifLogicalLocation struct {
	FullyQualifiedName string `json:"fullyQualifiedName"`
	Kind               string `json:"kind"`
}

func buildSARIF(rep *report.Report) sarifLog {
	var rules []sarifRule
	seen := make(map[string]bool)
	results := []sarifResult{}

	for _, f := range rep.Findings {
		ruleID := generateRuleID(f)

		// Register rules in first-seen order
		if !seen[ruleID] {
			seen[ruleID] = true
			rules = append(rules, sarifRule{
				ID:               ruleID,
				Name:             primaryRule(f),
				ShortDescription: sarifMessage{Text: fmt.Sprintf("Field holds %s data", f.Category)},
				DefaultConfig:    sarifDefaultConfig{Level: severityToLevel(f.Severity)},
				Properties:       sarifRuleProperties{Tags: []string{"privacy", string(f.Category)}},
			})
		}

		msg := fmt.Sprintf("%s is %s data (%s severity)", f.Path, categoryList(f), f.Severity)
		if f.Redacted {
			msg += "; selected for redaction"
		} else {
			msg += "; not selected for redaction"
		}

		results = append(results, sarifResult{
			RuleID:  ruleID,
			Level:   severityToLevel(f.Severity),
			Message: sarifMessage{Text: msg},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: rep.Document.File},
				},
				LogicalLocations: []sarifLogicalLocation{{FullyQualifiedName: f.Path, Kind: "member"}},
			}},
			PartialFingerprints: map[string]string{"privfilter/v1": f.ID},
			Properties:          map[string]any{"redacted": f.Redacted, "rules": f.Rules},
		})
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           report.Tool,
						Version:        rep.Version,
						InformationURI: "https://github.com/dshills/privfilter",
						Rules:          rules,
					},
				},
				Results: results,
			},
		},
	}
}

// severityToLevel maps finding severity to SARIF level.
func severityToLevel(s classify.Severity) string {
	switch s {
	case classify.SeverityHigh:
		return "error"
	case classify.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

func primaryRule(f report.Finding) string {
	if len(f.Rules) > 0 {
		return f.Rules[0]
	}
	return string(f.Category)
}

// generateRuleID names the SARIF rule after the first classifier rule that
// matched.
func generateRuleID(f report.Finding) string {
	return fmt.Sprintf("%s/%s", report.Tool, primaryRule(f))
}
