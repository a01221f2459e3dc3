package classify

import (
	"bytes"
	"io"
	"os"
	"regexp"
	"slices"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Rules represents a rules pack loaded from --rules. YAML and JSON files are
// both accepted.
type Rules struct {
	Disable           []string          `yaml:"disable,omitempty"`
	SeverityOverrides map[string]string `yaml:"severityOverrides,omitempty"`
	KeyRules          []PatternRule     `yaml:"keyRules,omitempty"`
	ValueRules        []PatternRule     `yaml:"valueRules,omitempty"`
	Ignore            []string          `yaml:"ignore,omitempty"`
}

// PatternRule is a custom key or value rule from a rules pack.
type PatternRule struct {
	ID         string `yaml:"id"`
	Category   string `yaml:"category"`
	Severity   string `yaml:"severity"`
	Pattern    string `yaml:"pattern"`
	AnySegment bool   `yaml:"anySegment,omitempty"`
}

// LoadRules loads a rules file from disk. Returns nil Rules and nil error if path is empty.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading rules file")
	}
	return ParseRules(data)
}

// ParseRules decodes a rules pack. Unknown fields are rejected.
func ParseRules(data []byte) (*Rules, error) {
	var rules Rules
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rules); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "parsing rules file")
	}
	return &rules, nil
}

// Build returns a classifier for the pack: built-in rules minus the disabled
// ones, followed by custom key rules and then custom value rules. A nil pack
// yields the default classifier.
func (r *Rules) Build(opts ...Option) (*Classifier, error) {
	if r == nil {
		return Default(opts...), nil
	}

	builtin := DefaultRules()
	known := make(map[string]bool, len(builtin))
	for _, rule := range builtin {
		known[rule.ID()] = true
	}
	for _, id := range r.Disable {
		if !known[id] {
			return nil, errors.Newf("disable: unknown rule %q", id)
		}
	}

	rules := make([]Rule, 0, len(builtin)+len(r.KeyRules)+len(r.ValueRules))
	for _, rule := range builtin {
		if !slices.Contains(r.Disable, rule.ID()) {
			rules = append(rules, rule)
		}
	}

	for _, pr := range r.KeyRules {
		if err := checkID(known, pr.ID); err != nil {
			return nil, errors.Wrap(err, "keyRules")
		}
		cat, sev, re, err := pr.compile()
		if err != nil {
			return nil, errors.Wrapf(err, "keyRules %s", pr.ID)
		}
		rules = append(rules, &KeyRule{Name: pr.ID, Category: cat, Severity: sev, Pattern: re, AnySegment: pr.AnySegment})
	}
	for _, pr := range r.ValueRules {
		if err := checkID(known, pr.ID); err != nil {
			return nil, errors.Wrap(err, "valueRules")
		}
		if pr.AnySegment {
			return nil, errors.Newf("valueRules %s: anySegment only applies to key rules", pr.ID)
		}
		cat, sev, re, err := pr.compile()
		if err != nil {
			return nil, errors.Wrapf(err, "valueRules %s", pr.ID)
		}
		rules = append(rules, &ValueRule{Name: pr.ID, Category: cat, Severity: sev, Pattern: re})
	}

	overrides := make(map[Category]Severity, len(r.SeverityOverrides))
	for cat, s := range r.SeverityOverrides {
		sev, err := ParseSeverity(s)
		if err != nil {
			return nil, errors.Wrapf(err, "severityOverrides %s", cat)
		}
		overrides[Category(cat)] = sev
	}

	opts = append([]Option{WithIgnore(r.Ignore...), WithSeverityOverrides(overrides)}, opts...)
	return New(rules, opts...), nil
}

func checkID(known map[string]bool, id string) error {
	if id == "" {
		return errors.New("rule without id")
	}
	if known[id] {
		return errors.Newf("duplicate rule id %q", id)
	}
	known[id] = true
	return nil
}

func (pr PatternRule) compile() (Category, Severity, *regexp.Regexp, error) {
	if pr.Category == "" {
		return "", "", nil, errors.New("missing category")
	}
	if pr.Pattern == "" {
		return "", "", nil, errors.New("missing pattern")
	}
	sev := SeverityMedium
	if pr.Severity != "" {
		var err error
		if sev, err = ParseSeverity(pr.Severity); err != nil {
			return "", "", nil, err
		}
	}
	re, err := regexp.Compile(pr.Pattern)
	if err != nil {
		return "", "", nil, errors.Wrap(err, "compiling pattern")
	}
	return Category(pr.Category), sev, re, nil
}
