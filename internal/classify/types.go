package classify

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"

	"github.com/dshills/privfilter/internal/document"
)

// Severity represents how damaging disclosure of a field would be.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SafeValue marks severities as safe to log.
func (Severity) SafeValue() {}

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// ParseSeverity validates a severity name.
func ParseSeverity(s string) (Severity, error) {
	switch sev := Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return sev, nil
	}
	return "", errors.Newf("unknown severity %q (want low, medium or high)", s)
}

// MeetsThreshold returns true if severity is at or above the threshold.
func MeetsThreshold(s Severity, threshold string) bool {
	if threshold == "none" || threshold == "" {
		return false
	}
	return SeverityRank(s) >= SeverityRank(Severity(threshold))
}

// Category classifies why a field is sensitive.
type Category string

const (
	CategoryIdentity    Category = "identity"
	CategoryName        Category = "name"
	CategoryBirthdate   Category = "birthdate"
	CategoryContact     Category = "contact"
	CategoryAddress     Category = "address"
	CategoryPostal      Category = "postal"
	CategoryDemographic Category = "demographic"
	CategoryCredential  Category = "credential"
)

// SafeValue marks categories as safe to log.
func (Category) SafeValue() {}

// Match is the outcome of a rule that recognized an entry.
type Match struct {
	Category Category
	Severity Severity
}

// Descriptor describes one sensitive field.
type Descriptor struct {
	Path       string         `json:"path"`
	Value      document.Value `json:"value"`
	Category   Category       `json:"category"`
	Categories []Category     `json:"categories"`
	Severity   Severity       `json:"severity"`
	Rules      []string       `json:"rules"`
}

// SafeFormat implements redact.SafeFormatter. The path and classification
// are safe; the value is not.
func (d Descriptor) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("%s [%s/%s]: %v", redact.SafeString(d.Path), d.Category, d.Severity, d.Value)
}

func (d Descriptor) String() string {
	return redact.StringWithoutMarkers(d)
}

// Paths returns the paths of descriptors in order.
func Paths(ds []Descriptor) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Path
	}
	return out
}
