package output

import (
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/dshills/privfilter/internal/flatten"
	"github.com/dshills/privfilter/internal/redact"
)

// WriteEntries prints flattened entries as "path<TAB>value" lines (text) or
// as a JSON array of {path, value} objects.
func WriteEntries(w io.Writer, entries []flatten.Entry, format string) error {
	switch format {
	case "json":
		if entries == nil {
			entries = []flatten.Entry{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(entries), "writing JSON")
	case "text", "":
		ew := &errWriter{w: w}
		for _, e := range entries {
			ew.printf("%s\t%s\n", e.Path, redact.Value(e.Value))
		}
		return ew.err
	default:
		return errors.WithHint(errors.Newf("unsupported output format: %s", format),
			"flatten supports text and json")
	}
}
