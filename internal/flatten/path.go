package flatten

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
)

// ErrInvalidPath is returned when a path string does not follow the encoding.
var ErrInvalidPath = errors.New("invalid field path")

// Segment is one step of a path: an object key or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

func (s Segment) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	if isPlainKey(s.Key) {
		return s.Key
	}
	return "[" + strconv.Quote(s.Key) + "]"
}

// JoinKey appends an object key to prefix.
func JoinKey(prefix, key string) string {
	if !isPlainKey(key) {
		return prefix + "[" + strconv.Quote(key) + "]"
	}
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// JoinIndex appends an array index to prefix.
func JoinIndex(prefix string, i int) string {
	return prefix + "[" + strconv.Itoa(i) + "]"
}

// Join builds a path from segments.
func Join(segs []Segment) string {
	var p string
	for _, s := range segs {
		if s.IsIndex {
			p = JoinIndex(p, s.Index)
		} else {
			p = JoinKey(p, s.Key)
		}
	}
	return p
}

func isPlainKey(k string) bool {
	if k == "" {
		return false
	}
	for _, r := range k {
		switch r {
		case '.', '[', ']', '"', '\\':
			return false
		}
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// ParsePath splits a path into segments. The empty path has no segments and
// addresses a scalar root.
func ParsePath(path string) ([]Segment, error) {
	var segs []Segment
	rest := path
	first := true
	for rest != "" {
		switch {
		case rest[0] == '[':
			seg, n, err := parseBracket(rest)
			if err != nil {
				return nil, errors.Wrapf(err, "path %q", path)
			}
			segs = append(segs, seg)
			rest = rest[n:]
		case first || rest[0] == '.':
			if !first {
				rest = rest[1:]
			}
			end := strings.IndexAny(rest, ".[")
			if end < 0 {
				end = len(rest)
			}
			key := rest[:end]
			if !isPlainKey(key) {
				return nil, errors.Mark(errors.Newf("path %q: bad key %q", path, key), ErrInvalidPath)
			}
			segs = append(segs, Segment{Key: key})
			rest = rest[end:]
		default:
			return nil, errors.Mark(errors.Newf("path %q: unexpected %q", path, rest[0]), ErrInvalidPath)
		}
		first = false
	}
	return segs, nil
}

func parseBracket(s string) (Segment, int, error) {
	if len(s) > 1 && s[1] == '"' {
		quoted, err := strconv.QuotedPrefix(s[1:])
		if err != nil {
			return Segment{}, 0, errors.Mark(errors.Wrap(err, "bad quoted key"), ErrInvalidPath)
		}
		end := 1 + len(quoted)
		if end >= len(s) || s[end] != ']' {
			return Segment{}, 0, errors.Mark(errors.New("unterminated bracket"), ErrInvalidPath)
		}
		key, err := strconv.Unquote(quoted)
		if err != nil {
			return Segment{}, 0, errors.Mark(errors.Wrap(err, "bad quoted key"), ErrInvalidPath)
		}
		return Segment{Key: key}, end + 1, nil
	}
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return Segment{}, 0, errors.Mark(errors.New("unterminated bracket"), ErrInvalidPath)
	}
	digits := s[1:end]
	if digits == "" || (len(digits) > 1 && digits[0] == '0') {
		return Segment{}, 0, errors.Mark(errors.Newf("bad index %q", digits), ErrInvalidPath)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return Segment{}, 0, errors.Mark(errors.Newf("bad index %q", digits), ErrInvalidPath)
		}
	}
	i, err := strconv.Atoi(digits)
	if err != nil {
		return Segment{}, 0, errors.Mark(errors.Wrapf(err, "bad index %q", digits), ErrInvalidPath)
	}
	return Segment{Index: i, IsIndex: true}, end + 1, nil
}

// Keys returns the object-key segments of path, skipping indices.
func Keys(path string) ([]string, error) {
	segs, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(segs))
	for _, s := range segs {
		if !s.IsIndex {
			keys = append(keys, s.Key)
		}
	}
	return keys, nil
}
