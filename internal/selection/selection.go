package selection

import (
	"maps"
	"slices"
	"sort"

	"github.com/cockroachdb/errors"
)

// State is the lifecycle state of a Selection.
type State string

const (
	StateEmpty  State = "empty"
	StateSeeded State = "seeded"
	StateEdited State = "edited"
)

// ErrNotSeeded is returned by operator edits before the first Seed.
var ErrNotSeeded = errors.New("selection has not been seeded")

// Selection is an ordered set of field paths. Paths are listed in seed order
// and paths added after seeding follow in insertion order; a seeded path that
// is removed and added back returns to its seeded position.
//
// Selection is not safe for concurrent use; the owner serializes access.
type Selection struct {
	state State
	// rank remembers the position of every path seen since the last Seed.
	rank    map[string]int
	next    int
	members map[string]bool
}

// New returns an empty selection.
func New() *Selection {
	return &Selection{state: StateEmpty, rank: map[string]int{}, members: map[string]bool{}}
}

// State returns the current lifecycle state.
func (s *Selection) State() State { return s.state }

// Seed replaces the selection with paths, dropping duplicates. It is valid
// in every state and leaves the selection seeded.
func (s *Selection) Seed(paths []string) {
	s.rank = make(map[string]int, len(paths))
	s.members = make(map[string]bool, len(paths))
	s.next = 0
	for _, p := range paths {
		s.insert(p)
	}
	s.state = StateSeeded
}

func (s *Selection) insert(p string) {
	if _, ok := s.rank[p]; !ok {
		s.rank[p] = s.next
		s.next++
	}
	s.members[p] = true
}

func (s *Selection) edit() error {
	if s.state == StateEmpty {
		return ErrNotSeeded
	}
	s.state = StateEdited
	return nil
}

// Add marks p for redaction. Adding a present path is a no-op.
func (s *Selection) Add(p string) error {
	if err := s.edit(); err != nil {
		return err
	}
	s.insert(p)
	return nil
}

// Remove unmarks p. Removing an absent path is a no-op.
func (s *Selection) Remove(p string) error {
	if err := s.edit(); err != nil {
		return err
	}
	delete(s.members, p)
	return nil
}

// Toggle flips membership of p and reports whether p is now selected.
func (s *Selection) Toggle(p string) (bool, error) {
	if err := s.edit(); err != nil {
		return false, err
	}
	if s.members[p] {
		delete(s.members, p)
		return false, nil
	}
	s.insert(p)
	return true, nil
}

// Replace sets the selection to exactly paths as an operator edit. Known
// paths keep their rank; new ones are ranked in the order given.
func (s *Selection) Replace(paths []string) error {
	if err := s.edit(); err != nil {
		return err
	}
	s.members = make(map[string]bool, len(paths))
	for _, p := range paths {
		s.insert(p)
	}
	return nil
}

// Contains reports whether p is selected.
func (s *Selection) Contains(p string) bool { return s.members[p] }

// Len returns the number of selected paths.
func (s *Selection) Len() int { return len(s.members) }

// List returns the selected paths in rank order.
func (s *Selection) List() []string {
	out := make([]string, 0, len(s.members))
	for p := range s.members {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return s.rank[out[i]] < s.rank[out[j]] })
	return out
}

// Clone returns an independent copy.
func (s *Selection) Clone() *Selection {
	return &Selection{
		state:   s.state,
		rank:    maps.Clone(s.rank),
		next:    s.next,
		members: maps.Clone(s.members),
	}
}

// Equal reports whether both selections hold the same paths in the same order.
func (s *Selection) Equal(o *Selection) bool {
	return slices.Equal(s.List(), o.List())
}
