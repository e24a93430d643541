package core

import (
	"encoding/json"
	"sort"
)

// StringSet is an unordered set of strings. Roles and groups are sets:
// granting the same entitlement twice is a no-op.
type StringSet map[string]struct{}

func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s StringSet) Has(value string) bool {
	_, ok := s[value]
	return ok
}

func (s StringSet) Add(values ...string) {
	for _, v := range values {
		s[v] = struct{}{}
	}
}

// Union adds all members of other to s.
func (s StringSet) Union(other StringSet) {
	for v := range other {
		s[v] = struct{}{}
	}
}

func (s StringSet) Clone() StringSet {
	clone := make(StringSet, len(s))
	for v := range s {
		clone[v] = struct{}{}
	}
	return clone
}

// Values returns the members sorted, for deterministic output.
func (s StringSet) Values() []string {
	values := make([]string, 0, len(s))
	for v := range s {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

func (s StringSet) Equal(other StringSet) bool {
	if len(s) != len(other) {
		return false
	}
	for v := range s {
		if !other.Has(v) {
			return false
		}
	}
	return true
}

func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

func (s *StringSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = NewStringSet(values...)
	return nil
}

func (s StringSet) MarshalYAML() (any, error) {
	return s.Values(), nil
}

func (s *StringSet) UnmarshalYAML(unmarshal func(any) error) error {
	var values []string
	if err := unmarshal(&values); err != nil {
		return err
	}
	*s = NewStringSet(values...)
	return nil
}
