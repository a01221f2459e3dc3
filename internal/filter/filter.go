package filter

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"

	"github.com/dshills/privfilter/internal/classify"
	"github.com/dshills/privfilter/internal/document"
	"github.com/dshills/privfilter/internal/flatten"
	"github.com/dshills/privfilter/internal/selection"
)

var (
	// ErrMalformedDocument marks an import that could not be turned into a
	// flat list of fields.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrNoDocument is returned by edits before any document is loaded.
	ErrNoDocument = errors.New("no document loaded")
	// ErrUnknownPath is returned when an edit that selects a path names one
	// that is not a leaf of the current document.
	ErrUnknownPath = errors.New("unknown field path")
)

// Filter is the privacy filter for one displayed document. It is safe for
// concurrent use. Events (replacements and edits) are applied one at a time
// in the order they acquire the filter: a replacement finishes classifying,
// seeding and publishing before the next event starts.
type Filter struct {
	classifier *classify.Classifier
	flattener  flatten.Flattener
	unwrap     bool
	logger     *slog.Logger
	now        func() time.Time

	// events serializes whole events. mu guards the state below and is
	// held only to read or install it, so Snapshot never waits on a
	// classification.
	events sync.Mutex

	mu        sync.Mutex
	loaded    bool
	fileName  string
	envelope  string
	doc       document.Value
	entries   []flatten.Entry
	leaves    map[string]struct{}
	sensitive []classify.Descriptor
	sel       *selection.Selection
	gen       uint64
	rev       uint64
	loadedAt  time.Time

	subs    []subscriber
	nextSub int
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

// Option configures a Filter.
type Option func(*Filter)

// WithClassifier sets the classifier; the default uses the built-in rules.
func WithClassifier(c *classify.Classifier) Option {
	return func(f *Filter) {
		if c != nil {
			f.classifier = c
		}
	}
}

// WithMaxDepth bounds document nesting.
func WithMaxDepth(n int) Option {
	return func(f *Filter) { f.flattener.MaxDepth = n }
}

// WithUnwrap controls whether wrapped documents are unwrapped before
// flattening. It is on by default.
func WithUnwrap(on bool) Option {
	return func(f *Filter) { f.unwrap = on }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Filter) {
		if l != nil {
			f.logger = l
		}
	}
}

// New returns a Filter with no document loaded.
func New(opts ...Option) *Filter {
	f := &Filter{
		unwrap: true,
		logger: slog.Default(),
		now:    time.Now,
		sel:    selection.New(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.classifier == nil {
		f.classifier = classify.Default(classify.WithLogger(f.logger))
	}
	return f
}

// prepared is a fully processed document that has not been installed yet.
type prepared struct {
	doc       document.Value
	envelope  string
	entries   []flatten.Entry
	sensitive []classify.Descriptor
}

func (f *Filter) prepare(v any) (*prepared, error) {
	doc, err := document.Normalize(v)
	if err != nil {
		return nil, malformed(err)
	}
	var envelope string
	if f.unwrap {
		doc, envelope = document.Unwrap(doc)
	}
	if _, ok := doc.(*document.Object); !ok {
		err := errors.Newf("top-level value is %s, want object", redact.Safe(document.Kind(doc)))
		return nil, malformed(errors.WithHint(err, "only documents with an object at the root can be filtered"))
	}
	entries, err := f.flattener.Flatten(doc, "")
	if err != nil {
		if errors.Is(err, flatten.ErrPathCollision) {
			return nil, errors.Wrap(err, "flattening document")
		}
		return nil, malformed(errors.Wrap(err, "flattening document"))
	}
	return &prepared{
		doc:       doc,
		envelope:  envelope,
		entries:   entries,
		sensitive: f.classifier.FindAll(entries),
	}, nil
}

func malformed(err error) error {
	return errors.Mark(err, ErrMalformedDocument)
}

// Replace installs v as the displayed document. On success the findings are
// recomputed and the redaction selection is reseeded with the sensitive
// paths, discarding earlier edits. On failure nothing changes and the error
// is marked with ErrMalformedDocument or flatten.ErrPathCollision.
func (f *Filter) Replace(fileName string, v any) (Snapshot, error) {
	f.events.Lock()
	defer f.events.Unlock()
	return f.replace(fileName, v)
}

func (f *Filter) replace(fileName string, v any) (Snapshot, error) {
	p, err := f.prepare(v)
	if err != nil {
		f.logger.Warn("filter: document rejected", "file", fileName, "err", redact.Sprint(err).Redact())
		return Snapshot{}, errors.WithHint(err, "the previously loaded document is unchanged")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.loaded = true
	f.fileName = fileName
	f.envelope = p.envelope
	f.doc = p.doc
	f.entries = p.entries
	f.leaves = make(map[string]struct{}, len(p.entries))
	for _, e := range p.entries {
		f.leaves[e.Path] = struct{}{}
	}
	f.sensitive = p.sensitive
	f.sel.Seed(classify.Paths(p.sensitive))
	f.gen++
	f.rev++
	f.loadedAt = f.now()

	f.logger.Info("filter: document loaded",
		"file", fileName,
		"envelope", p.envelope,
		"leaves", len(p.entries),
		"sensitive", len(p.sensitive),
		"generation", f.gen)

	return f.publishLocked(), nil
}

// Import parses data according to fileName's extension and replaces the
// displayed document with it.
func (f *Filter) Import(fileName string, data []byte) (Snapshot, error) {
	f.events.Lock()
	defer f.events.Unlock()

	v, err := document.Parse(fileName, data)
	if err != nil {
		err = malformed(errors.Wrapf(err, "parsing %s", fileName))
		f.logger.Warn("filter: document rejected", "file", fileName, "err", redact.Sprint(err).Redact())
		return Snapshot{}, errors.WithHint(err, "the previously loaded document is unchanged")
	}
	return f.replace(fileName, v)
}

// Snapshot returns the current state. Before the first load it returns a
// zero Snapshot.
func (f *Filter) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Filter) snapshotLocked() Snapshot {
	if !f.loaded {
		return Snapshot{State: selection.StateEmpty}
	}
	return Snapshot{
		FileName:   f.fileName,
		Envelope:   f.envelope,
		Document:   f.doc,
		Entries:    slices.Clone(f.entries),
		Sensitive:  slices.Clone(f.sensitive),
		Redactions: f.sel.List(),
		State:      f.sel.State(),
		Generation: f.gen,
		Revision:   f.rev,
		LoadedAt:   f.loadedAt,
	}
}

// SetRedactions replaces the redaction selection with paths.
func (f *Filter) SetRedactions(paths []string) (Snapshot, error) {
	return f.edit(func() error {
		for _, p := range paths {
			if err := f.checkPathLocked(p); err != nil {
				return err
			}
		}
		return f.sel.Replace(paths)
	})
}

// Add selects p for redaction.
func (f *Filter) Add(p string) (Snapshot, error) {
	return f.edit(func() error {
		if err := f.checkPathLocked(p); err != nil {
			return err
		}
		return f.sel.Add(p)
	})
}

// Remove deselects p. Removing a path that is not selected, or not a field
// of the document at all, is a no-op that still counts as an edit.
func (f *Filter) Remove(p string) (Snapshot, error) {
	return f.edit(func() error {
		return f.sel.Remove(p)
	})
}

// Toggle flips the selection of p.
func (f *Filter) Toggle(p string) (Snapshot, error) {
	return f.edit(func() error {
		if err := f.checkPathLocked(p); err != nil {
			return err
		}
		_, err := f.sel.Toggle(p)
		return err
	})
}

func (f *Filter) edit(apply func() error) (Snapshot, error) {
	f.events.Lock()
	defer f.events.Unlock()
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.loaded {
		return Snapshot{}, ErrNoDocument
	}
	if err := apply(); err != nil {
		return Snapshot{}, err
	}
	f.rev++
	return f.publishLocked(), nil
}

func (f *Filter) checkPathLocked(p string) error {
	if _, ok := f.leaves[p]; ok {
		return nil
	}
	return errors.WithHint(
		errors.Mark(errors.Newf("%q is not a field of %s", p, f.fileName), ErrUnknownPath),
		"use the flatten command to list field paths")
}

// Subscribe registers fn to receive a snapshot after every change. Listeners
// run synchronously in registration order while the Filter is locked, so
// they must not call back into it. The returned function unregisters fn.
func (f *Filter) Subscribe(fn func(Snapshot)) (cancel func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSub++
	id := f.nextSub
	f.subs = append(f.subs, subscriber{id: id, fn: fn})
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.subs = slices.DeleteFunc(f.subs, func(s subscriber) bool { return s.id == id })
	}
}

func (f *Filter) publishLocked() Snapshot {
	snap := f.snapshotLocked()
	for _, s := range f.subs {
		s.fn(snap)
	}
	return snap
}
