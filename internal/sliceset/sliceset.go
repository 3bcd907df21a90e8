// Package sliceset provides a string set used for slice and package names.
package sliceset

import (
	"maps"
	"slices"
	"strings"
)

// Set is an unordered set of strings. A nil Set is empty.
type Set map[string]struct{}

// New returns a set holding the given items.
func New(items ...string) Set {
	s := make(Set, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Add inserts items into the set.
func (s Set) Add(items ...string) {
	for _, item := range items {
		s[item] = struct{}{}
	}
}

// Contains reports whether item is in the set.
func (s Set) Contains(item string) bool {
	_, ok := s[item]
	return ok
}

// Len returns the number of items.
func (s Set) Len() int {
	return len(s)
}

// Difference returns the items of s that are not in other.
func (s Set) Difference(other Set) Set {
	out := make(Set)
	for item := range s {
		if !other.Contains(item) {
			out[item] = struct{}{}
		}
	}
	return out
}

// Intersect returns the items present in both sets.
func (s Set) Intersect(other Set) Set {
	out := make(Set)
	for item := range s {
		if other.Contains(item) {
			out[item] = struct{}{}
		}
	}
	return out
}

// Union returns the items present in either set.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	maps.Copy(out, s)
	maps.Copy(out, other)
	return out
}

// Equal reports whether both sets hold the same items.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for item := range s {
		if !other.Contains(item) {
			return false
		}
	}
	return true
}

// Sorted returns the items in ascending order. It never returns nil.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for item := range s {
		out = append(out, item)
	}
	slices.Sort(out)
	return out
}

// Abbrev renders the sorted items comma separated, cut to 100 characters.
func (s Set) Abbrev() string {
	str := strings.Join(s.Sorted(), ", ")
	if len(str) < 100 {
		return str
	}
	return str[:97] + "..."
}
