package diff

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Matcher matches target paths against a set of exclusion globs.
//
// Patterns use "/" as separator: "*" stays within one path segment and "**"
// crosses segments. A pattern starting with "**/" also matches files at the
// repository root, so "**/*.json" excludes both "package.json" and
// "web/app.json".
type Matcher struct {
	patterns []string
	globs    []glob.Glob
}

// NewMatcher compiles patterns. Blank patterns are ignored.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, raw := range patterns {
		p := strings.TrimPrefix(strings.TrimSpace(raw), "./")
		if p == "" {
			continue
		}

		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", raw, err)
		}
		m.patterns = append(m.patterns, p)
		m.globs = append(m.globs, g)

		if rest := strings.TrimPrefix(p, "**/"); rest != p && rest != "" {
			g, err := glob.Compile(rest, '/')
			if err != nil {
				return nil, fmt.Errorf("invalid exclude pattern %q: %w", raw, err)
			}
			m.globs = append(m.globs, g)
		}
	}
	return m, nil
}

// SplitPatterns splits a comma or newline separated pattern list, dropping
// blanks. Action inputs are often written as multi-line YAML strings.
func SplitPatterns(list string) []string {
	var out []string
	for _, p := range strings.FieldsFunc(list, func(r rune) bool { return r == ',' || r == '\n' }) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Patterns returns the normalized patterns the matcher was built from.
func (m *Matcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}

// Match reports whether path is excluded.
func (m *Matcher) Match(path string) bool {
	for _, g := range m.globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}
