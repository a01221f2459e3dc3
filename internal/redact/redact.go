package redact

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dshills/privfilter/internal/document"
	"github.com/dshills/privfilter/internal/flatten"
)

// Placeholder replaces the value of a redacted field.
const Placeholder = "[REDACTED]"

// Value renders a leaf for display.
func Value(v document.Value) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case *document.Object:
		return "{…}"
	case []document.Value:
		return "[…]"
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Field renders a leaf, masking it when redacted is set.
func Field(v document.Value, redacted bool) string {
	if redacted {
		return Placeholder
	}
	return Value(v)
}

// ShouldRedactPath checks if a field path matches any of the redaction path patterns.
func ShouldRedactPath(path string, patterns []string) bool {
	return flatten.MatchAny(patterns, path)
}

// Paths returns the entry paths matching any pattern, in entry order.
func Paths(entries []flatten.Entry, patterns []string) []string {
	var out []string
	if len(patterns) == 0 {
		return out
	}
	for _, e := range entries {
		if ShouldRedactPath(e.Path, patterns) {
			out = append(out, e.Path)
		}
	}
	return out
}
