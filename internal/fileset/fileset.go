// Package fileset defines the path→content mapping that flows between the
// generation, assembly and publication stages of a round.
package fileset

import (
	"fmt"
	"sort"
	"strings"
)

// Well-known paths inside a published site.
const (
	EntryPoint    = "index.html"
	License       = "LICENSE"
	Documentation = "README.md"
	Manifest      = "attachments.js"
)

// Set maps a repository-relative path to its UTF-8 text content.
type Set map[string]string

// Clone returns a shallow copy. A nil receiver yields an empty, non-nil Set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Paths returns the keys in lexical order.
func (s Set) Paths() []string {
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Has reports whether path is present.
func (s Set) Has(path string) bool {
	_, ok := s[path]
	return ok
}

// Without returns a copy of s with the given paths removed.
func (s Set) Without(paths ...string) Set {
	out := s.Clone()
	for _, p := range paths {
		delete(out, p)
	}
	return out
}

// Overlay returns a copy of s with every entry of top applied over it.
func (s Set) Overlay(top Set) Set {
	out := s.Clone()
	for k, v := range top {
		out[k] = v
	}
	return out
}

// Render concatenates the files as "=== path ===" sections in path order.
// Paths listed in skip are left out.
func (s Set) Render(skip ...string) string {
	excluded := make(map[string]bool, len(skip))
	for _, p := range skip {
		excluded[p] = true
	}

	var sections []string
	for _, p := range s.Paths() {
		if excluded[p] {
			continue
		}
		sections = append(sections, fmt.Sprintf("=== %s ===\n%s", p, s[p]))
	}
	return strings.Join(sections, "\n\n")
}
