// Package match selects package names via glob patterns.
package match

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher matches package names against a set of glob patterns. Patterns
// use doublestar syntax, so `/Game/**` covers a whole content tree.
type Matcher struct {
	patterns []string
}

// NewMatcher creates a matcher from glob patterns. Invalid patterns are
// rejected up front rather than silently never matching.
func NewMatcher(patterns []string) (*Matcher, error) {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern %q", pattern)
		}
	}
	return &Matcher{patterns: patterns}, nil
}

// Empty reports whether the matcher has no patterns.
func (m *Matcher) Empty() bool {
	return len(m.patterns) == 0
}

// Match reports whether the package name matches any pattern.
func (m *Matcher) Match(pkg string) bool {
	for _, pattern := range m.patterns {
		if ok, err := doublestar.Match(pattern, pkg); err == nil && ok {
			return true
		}
	}
	return false
}

// MatchAny reports whether any of the package names matches.
func (m *Matcher) MatchAny(pkgs []string) bool {
	for _, pkg := range pkgs {
		if m.Match(pkg) {
			return true
		}
	}
	return false
}
