// Package benchid implements the immutable benchmark identity used to key
// every registered benchmark, stored result, and reporter event.
package benchid

import (
	"fmt"
	"strings"
)

// ID is the canonical handle for a registered benchmark. Equality and the
// canonical string form ignore the diagnostic source location; two IDs
// built from the same name/args/capture compare equal regardless of where
// New was called.
type ID struct {
	name    string
	args    string
	capture string
	file    string
	line    int
}

// Option configures optional parts of an ID at construction time.
type Option func(*ID)

// WithArgs attaches an args-label, rendered as the second canonical
// component (name/args).
func WithArgs(args string) Option {
	return func(id *ID) { id.args = args }
}

// WithCapture attaches a capture-label, rendered as the third canonical
// component (name/args/capture). Only meaningful alongside WithArgs; an ID
// with a capture label but no args label renders as name/capture, which
// Parse reads back as name/args — see String.
func WithCapture(capture string) Option {
	return func(id *ID) { id.capture = capture }
}

// withLocation records a caller-supplied file/line for diagnostics only;
// it participates in neither Equal nor String.
func withLocation(file string, line int) Option {
	return func(id *ID) { id.file, id.line = file, line }
}

// New constructs an ID from a name and optional modifiers.
func New(name string, opts ...Option) ID {
	id := ID{name: name}
	for _, opt := range opts {
		opt(&id)
	}
	return id
}

// NewAt is New plus an explicit caller location, used by registration
// helpers that already have runtime.Caller output in hand.
func NewAt(name, file string, line int, opts ...Option) ID {
	opts = append([]Option{withLocation(file, line)}, opts...)
	return New(name, opts...)
}

// Name returns the bare benchmark name, without args or capture suffix.
func (id ID) Name() string { return id.name }

// Args returns the args-label, or "" if absent.
func (id ID) Args() string { return id.args }

// Capture returns the capture-label, or "" if absent.
func (id ID) Capture() string { return id.capture }

// Location returns the diagnostic source file/line recorded at
// registration, for use in "duplicate registration" style error messages.
func (id ID) Location() (file string, line int) { return id.file, id.line }

// String renders the canonical form: name, name/args, or name/args/capture.
func (id ID) String() string {
	var b strings.Builder
	b.WriteString(id.name)
	if id.args != "" {
		b.WriteByte('/')
		b.WriteString(id.args)
	}
	if id.capture != "" {
		b.WriteByte('/')
		b.WriteString(id.capture)
	}
	return b.String()
}

// Equal reports whether id and other denote the same benchmark, ignoring
// diagnostic source location.
func (id ID) Equal(other ID) bool {
	return id.name == other.name && id.args == other.args && id.capture == other.capture
}

// Parse is the inverse of String: it splits a canonical "name",
// "name/args", or "name/args/capture" form back into an ID. Parse never
// fails on well-formed input since any string is a valid name; it exists
// for symmetry with String and for --print/--baseline lookups that accept
// user-typed canonical ids.
func Parse(canonical string) (ID, error) {
	if canonical == "" {
		return ID{}, fmt.Errorf("benchid: empty id")
	}
	parts := strings.SplitN(canonical, "/", 3)
	id := ID{name: parts[0]}
	if len(parts) > 1 {
		id.args = parts[1]
	}
	if len(parts) > 2 {
		id.capture = parts[2]
	}
	return id, nil
}
