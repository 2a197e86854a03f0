// Package registry implements the id-filter applied to every registered
// benchmark: Any, Exact(text), or Regex(pattern), matched against a
// benchmark's canonical id text including its capture suffix.
package registry

import "regexp"

// Filter decides whether a canonical benchmark id should run.
type Filter interface {
	Match(canonical string) bool
}

// Any matches every id; it's the filter used when no positional FILTER
// argument was given.
type Any struct{}

// Match always returns true.
func (Any) Match(string) bool { return true }

// Exact matches only an id whose canonical text equals Text exactly,
// selected by --exact.
type Exact struct {
	Text string
}

// Match reports whether canonical equals Text.
func (f Exact) Match(canonical string) bool { return canonical == f.Text }

// Regex matches any id whose canonical text matches the compiled pattern,
// the default behavior for a positional FILTER without --exact.
type Regex struct {
	Pattern *regexp.Regexp
}

// Match reports whether the pattern matches canonical.
func (f Regex) Match(canonical string) bool { return f.Pattern.MatchString(canonical) }

// NewRegex compiles pattern into a Regex filter.
func NewRegex(pattern string) (Regex, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Regex{}, err
	}
	return Regex{Pattern: re}, nil
}

// New builds the filter for a parsed --exact/FILTER pair: Any when filter
// is empty, Exact when exact is set, Regex otherwise.
func New(filter string, exact bool) (Filter, error) {
	if filter == "" {
		return Any{}, nil
	}
	if exact {
		return Exact{Text: filter}, nil
	}
	return NewRegex(filter)
}
