package classify

import (
	"context"
	"log/slog"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"

	"github.com/dshills/privfilter/internal/flatten"
)

// Classifier evaluates an ordered rule list against flattened entries.
// A Classifier is immutable once built and safe for concurrent use.
type Classifier struct {
	rules     []Rule
	ignore    []string
	overrides map[Category]Severity
	logger    *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithIgnore excludes paths selected by the given patterns (see
// flatten.MatchPattern).
func WithIgnore(patterns ...string) Option {
	return func(c *Classifier) { c.ignore = append(c.ignore, patterns...) }
}

// WithSeverityOverrides replaces the severity of every match in a category.
func WithSeverityOverrides(overrides map[Category]Severity) Option {
	return func(c *Classifier) {
		for k, v := range overrides {
			c.overrides[k] = v
		}
	}
}

// WithLogger sets the logger used for skipped rules and findings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a classifier evaluating rules in the given order.
func New(rules []Rule, opts ...Option) *Classifier {
	c := &Classifier{
		rules:     slices.Clone(rules),
		overrides: make(map[Category]Severity),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Default returns a classifier with the built-in rules.
func Default(opts ...Option) *Classifier {
	return New(DefaultRules(), opts...)
}

// Rules returns the rule IDs in evaluation order.
func (c *Classifier) Rules() []string {
	ids := make([]string, len(c.rules))
	for i, r := range c.rules {
		ids[i] = r.ID()
	}
	return ids
}

// FindAll returns one descriptor per sensitive entry, in entry order. It
// never fails: a rule that errors or panics is skipped for that entry.
func (c *Classifier) FindAll(entries []flatten.Entry) []Descriptor {
	out := []Descriptor{}
	for _, e := range entries {
		if flatten.MatchAny(c.ignore, e.Path) {
			continue
		}
		if d, ok := c.classify(e); ok {
			c.logger.Debug("sensitive field", "field", redact.Sprint(d).Redact())
			out = append(out, d)
		}
	}
	return out
}

func (c *Classifier) classify(e flatten.Entry) (Descriptor, bool) {
	var d Descriptor
	matched := false
	for _, r := range c.rules {
		m, ok, err := runRule(r, e)
		if err != nil {
			level := slog.LevelWarn
			if errors.Is(err, ErrUnclassifiable) {
				level = slog.LevelDebug
			}
			c.logger.Log(context.Background(), level, "rule skipped",
				"rule", r.ID(), "path", e.Path, "err", redact.Sprint(err).Redact())
			continue
		}
		if !ok {
			continue
		}
		if sev, ok := c.overrides[m.Category]; ok {
			m.Severity = sev
		}
		if !matched {
			matched = true
			d = Descriptor{Path: e.Path, Value: e.Value, Category: m.Category, Severity: m.Severity}
		}
		d.Rules = append(d.Rules, r.ID())
		if !slices.Contains(d.Categories, m.Category) {
			d.Categories = append(d.Categories, m.Category)
		}
		if SeverityRank(m.Severity) > SeverityRank(d.Severity) {
			d.Severity = m.Severity
		}
	}
	return d, matched
}

// runRule calls r.Test, converting a panic into ErrUnclassifiable.
func runRule(r Rule, e flatten.Entry) (m Match, ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			m, ok = Match{}, false
			err = errors.Mark(errors.Newf("rule %s panicked: %v", r.ID(), p), ErrUnclassifiable)
		}
	}()
	return r.Test(e)
}

// FindAllSensitiveFields classifies entries with the built-in rules.
func FindAllSensitiveFields(entries []flatten.Entry) []Descriptor {
	return Default().FindAll(entries)
}
