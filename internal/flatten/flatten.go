package flatten

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/dshills/privfilter/internal/document"
)

// DefaultMaxDepth bounds container nesting during flattening.
const DefaultMaxDepth = 256

var (
	// ErrTooDeep is returned when a document nests deeper than MaxDepth.
	ErrTooDeep = errors.New("document nesting too deep")
	// ErrPathCollision is returned when two leaves would share a path. The
	// path encoding is injective over the document model, so this guards
	// the walker's output rather than any known input.
	ErrPathCollision = errors.New("field path collision")
	// ErrNotFound is returned by Resolve when a path addresses nothing.
	ErrNotFound = errors.New("field path not found")
	// ErrUnsupportedValue is returned for values outside the document model.
	ErrUnsupportedValue = errors.New("unsupported document value")
)

// Entry is a single leaf of a flattened document.
type Entry struct {
	Path  string         `json:"path"`
	Value document.Value `json:"value"`
}

// Flattener flattens documents with a nesting bound.
type Flattener struct {
	// MaxDepth is the maximum container nesting; zero means DefaultMaxDepth.
	MaxDepth int
}

// Flatten flattens v with the default depth bound.
func Flatten(v document.Value, prefix string) ([]Entry, error) {
	return Flattener{}.Flatten(v, prefix)
}

// Flatten returns one entry per leaf of v in depth-first order, with object
// keys in document order and array elements in index order. prefix is
// prepended to every path; pass "" at the top.
func (f Flattener) Flatten(v document.Value, prefix string) ([]Entry, error) {
	limit := f.MaxDepth
	if limit <= 0 {
		limit = DefaultMaxDepth
	}
	w := walker{max: limit, seen: make(map[string]struct{})}
	if err := w.walk(v, prefix, 0); err != nil {
		return nil, err
	}
	return w.entries, nil
}

type walker struct {
	max     int
	entries []Entry
	seen    map[string]struct{}
}

func (w *walker) walk(v document.Value, path string, depth int) error {
	switch t := v.(type) {
	case *document.Object:
		if depth >= w.max {
			return errors.Wrapf(ErrTooDeep, "at %q: more than %d levels", path, w.max)
		}
		for _, k := range t.Keys() {
			child, _ := t.Get(k)
			if err := w.walk(child, JoinKey(path, k), depth+1); err != nil {
				return err
			}
		}
		return nil
	case []document.Value:
		if depth >= w.max {
			return errors.Wrapf(ErrTooDeep, "at %q: more than %d levels", path, w.max)
		}
		for i, child := range t {
			if err := w.walk(child, JoinIndex(path, i), depth+1); err != nil {
				return err
			}
		}
		return nil
	case string, json.Number, bool, nil:
		if _, dup := w.seen[path]; dup {
			return errors.Wrapf(ErrPathCollision, "path %q", path)
		}
		w.seen[path] = struct{}{}
		w.entries = append(w.entries, Entry{Path: path, Value: v})
		return nil
	}
	return errors.Wrapf(ErrUnsupportedValue, "at %q: %s", path, document.Kind(v))
}

// Resolve returns the value addressed by path within v.
func Resolve(v document.Value, path string) (document.Value, error) {
	segs, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	cur := v
	for i, s := range segs {
		switch t := cur.(type) {
		case *document.Object:
			if s.IsIndex {
				return nil, errors.Wrapf(ErrNotFound, "%q: index into object at %q", path, Join(segs[:i]))
			}
			child, ok := t.Get(s.Key)
			if !ok {
				return nil, errors.Wrapf(ErrNotFound, "%q: no key %q", path, s.Key)
			}
			cur = child
		case []document.Value:
			if !s.IsIndex {
				return nil, errors.Wrapf(ErrNotFound, "%q: key into array at %q", path, Join(segs[:i]))
			}
			if s.Index >= len(t) {
				return nil, errors.Wrapf(ErrNotFound, "%q: index %d out of range", path, s.Index)
			}
			cur = t[s.Index]
		default:
			return nil, errors.Wrapf(ErrNotFound, "%q: %s at %q has no children", path, document.Kind(cur), Join(segs[:i]))
		}
	}
	return cur, nil
}

// Paths returns the paths of entries in order.
func Paths(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}
