package domain

import (
	"encoding/json"
	"sort"
)

// NameSet is a set of normalized names (clan names, chest keys, achievements).
// It serializes as a sorted JSON array.
type NameSet map[string]struct{}

// NewNameSet builds a set from the given values
func NewNameSet(values ...string) NameSet {
	s := make(NameSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Add inserts v and reports whether it was absent
func (s NameSet) Add(v string) bool {
	if _, ok := s[v]; ok {
		return false
	}
	s[v] = struct{}{}
	return true
}

// Remove deletes v and reports whether it was present
func (s NameSet) Remove(v string) bool {
	if _, ok := s[v]; !ok {
		return false
	}
	delete(s, v)
	return true
}

func (s NameSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns the members in ascending order
func (s NameSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s NameSet) Clone() NameSet {
	out := make(NameSet, len(s))
	for v := range s {
		out[v] = struct{}{}
	}
	return out
}

func (s NameSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *NameSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = NewNameSet(values...)
	return nil
}
