// Package match filters relative paths of local files with doublestar globs.
//
// It decides which entries of a local directory tree are uploaded.
package match

import (
	"errors"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher evaluates include and exclude patterns against slash-separated
// relative paths:
//   - Include patterns: a file must match at least one (default "**")
//   - Exclude patterns: a file must not match any
//
// The Matcher is safe for concurrent use after creation.
type Matcher struct {
	includes      []string
	excludes      []string
	includeHidden bool
}

// Config configures a Matcher.
type Config struct {
	// Includes are glob patterns that files must match (at least one).
	// Empty means every file.
	Includes []string

	// Excludes are glob patterns that files and directories must not match.
	Excludes []string

	// IncludeHidden controls whether hidden entries are matched.
	// Hidden entries have path segments starting with '.'.
	IncludeHidden bool
}

// ErrInvalidPattern is returned when a pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// PatternError wraps pattern-related errors with context.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// New creates a Matcher. Patterns are normalized for Windows-style
// separators; an invalid pattern fails with a *PatternError.
func New(cfg Config) (*Matcher, error) {
	includes, err := compile(cfg.Includes)
	if err != nil {
		return nil, err
	}
	if len(includes) == 0 {
		includes = []string{"**"}
	}
	excludes, err := compile(cfg.Excludes)
	if err != nil {
		return nil, err
	}
	return &Matcher{includes: includes, excludes: excludes, includeHidden: cfg.IncludeHidden}, nil
}

func compile(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		normalized := NormalizePattern(r)
		if !doublestar.ValidatePattern(normalized) {
			return nil, &PatternError{Pattern: r, Err: ErrInvalidPattern}
		}
		out = append(out, normalized)
	}
	return out, nil
}

// Match reports whether a file at rel should be included.
func (m *Matcher) Match(rel string) bool {
	if !m.includeHidden && IsHidden(rel) {
		return false
	}
	if !anyMatch(m.includes, rel) {
		return false
	}
	return !anyMatch(m.excludes, rel)
}

// MatchDir reports whether a directory at rel should be descended into.
// Include patterns are not applied to directories, since a file deep below
// may still match.
func (m *Matcher) MatchDir(rel string) bool {
	if !m.includeHidden && IsHidden(rel) {
		return false
	}
	return !anyMatch(m.excludes, rel)
}

// Allow implements the tree upload filter contract.
func (m *Matcher) Allow(rel string, isDir bool) bool {
	if isDir {
		return m.MatchDir(rel)
	}
	return m.Match(rel)
}

// IncludePatterns returns the normalized include patterns.
func (m *Matcher) IncludePatterns() []string {
	return append([]string(nil), m.includes...)
}

// ExcludePatterns returns the normalized exclude patterns.
func (m *Matcher) ExcludePatterns() []string {
	return append([]string(nil), m.excludes...)
}

func anyMatch(patterns []string, rel string) bool {
	for _, p := range patterns {
		// Patterns were validated at construction time.
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}
