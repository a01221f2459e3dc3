package flatten

import (
	"path"
	"strings"
)

// MatchPattern reports whether a field path is selected by pattern.
//
// A pattern selects the path itself and every path below it ("holder"
// selects "holder.name" and "holder[0]"). Otherwise it is a glob in the
// syntax of path.Match, where '*' does not cross '/' but does cross '.', so
// "holder.*" selects all descendants. A leading "**." matches the rest of
// the pattern against any dotted suffix of the path. Brackets are glob
// syntax, so literal index segments must be escaped ("items\[0\].id").
func MatchPattern(pattern, p string) bool {
	if pattern == "" {
		return false
	}
	if pattern == p || strings.HasPrefix(p, pattern+".") || strings.HasPrefix(p, pattern+"[") {
		return true
	}
	if ok, err := path.Match(pattern, p); err == nil && ok {
		return true
	}
	rest := strings.TrimPrefix(pattern, "**.")
	if rest == pattern {
		return false
	}
	for i := 0; i < len(p); i++ {
		if p[i] != '.' {
			continue
		}
		if ok, err := path.Match(rest, p[i+1:]); err == nil && ok {
			return true
		}
	}
	ok, err := path.Match(rest, p)
	return err == nil && ok
}

// MatchAny reports whether any pattern selects p.
func MatchAny(patterns []string, p string) bool {
	for _, pat := range patterns {
		if MatchPattern(pat, p) {
			return true
		}
	}
	return false
}
