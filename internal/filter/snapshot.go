package filter

import (
	"slices"
	"time"

	"github.com/dshills/privfilter/internal/classify"
	"github.com/dshills/privfilter/internal/document"
	"github.com/dshills/privfilter/internal/flatten"
	"github.com/dshills/privfilter/internal/selection"
)

// Snapshot is a point-in-time copy of a Filter's state. Document is shared
// with the Filter and must be treated as read-only.
type Snapshot struct {
	FileName   string
	Envelope   string
	Document   document.Value
	Entries    []flatten.Entry
	Sensitive  []classify.Descriptor
	Redactions []string
	State      selection.State
	// Generation counts document replacements; Revision counts every change.
	Generation uint64
	Revision   uint64
	LoadedAt   time.Time
}

// Loaded reports whether the snapshot holds a document.
func (s Snapshot) Loaded() bool { return s.Generation > 0 }

// LeafCount returns the number of leaves in the document.
func (s Snapshot) LeafCount() int { return len(s.Entries) }

// Redacted reports whether path is selected for redaction.
func (s Snapshot) Redacted(path string) bool {
	return slices.Contains(s.Redactions, path)
}

// Descriptor returns the finding for path, if any.
func (s Snapshot) Descriptor(path string) (classify.Descriptor, bool) {
	for _, d := range s.Sensitive {
		if d.Path == path {
			return d, true
		}
	}
	return classify.Descriptor{}, false
}

// RedactionSet returns the redaction selection keyed by path, for callers
// that look up many paths.
func (s Snapshot) RedactionSet() map[string]bool {
	set := make(map[string]bool, len(s.Redactions))
	for _, p := range s.Redactions {
		set[p] = true
	}
	return set
}

// DescriptorsByPath returns the findings keyed by path.
func (s Snapshot) DescriptorsByPath() map[string]classify.Descriptor {
	m := make(map[string]classify.Descriptor, len(s.Sensitive))
	for _, d := range s.Sensitive {
		m[d.Path] = d
	}
	return m
}
