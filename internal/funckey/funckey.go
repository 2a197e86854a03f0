// Package funckey implements the per-function breakdown key used to index
// a RunRecord's breakdown map: a function name plus an optional source
// filename.
package funckey

import "strings"

// Key identifies one function entry in a benchmark's breakdown. Filename
// is the empty string when the simulator reported no source file for that
// function (cachegrind's "fl=???" case) — matching the zero-value-is-
// absence convention used throughout the rest of the module rather than a
// pointer or a wrapped Option type.
type Key struct {
	Filename string
	Name     string
}

// New constructs a Key. filename may be empty.
func New(name, filename string) Key {
	return Key{Filename: filename, Name: name}
}

// String renders the canonical form: "name@filename", or just "name" when
// Filename is absent.
func (k Key) String() string {
	if k.Filename == "" {
		return k.Name
	}
	return k.Name + "@" + k.Filename
}

// Parse is the inverse of String, used to rebuild breakdown map keys when
// decoding a baseline JSON file back into memory.
func Parse(canonical string) Key {
	name, filename, ok := strings.Cut(canonical, "@")
	if !ok {
		return Key{Name: canonical}
	}
	return Key{Name: name, Filename: filename}
}
