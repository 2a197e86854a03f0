package registry

import (
	"github.com/cgbench/yab/internal/benchid"
	"github.com/cgbench/yab/internal/capture"
)

// Func is a registered benchmark body. It receives one Capture token per
// label the bench was registered with, in order — most benches register a
// single label and take a one-element slice. Its return value is opaque to
// the registry; HarnessChild retains every iteration's return value so the
// benchmark's allocations and results stay live for the whole measured
// run instead of being collected mid-loop.
type Func func(tokens []capture.Token) any

// Entry is one registration: an id, its capture labels (used only to size
// the tokens slice handed to Func), and the body.
type Entry struct {
	ID            benchid.ID
	CaptureLabels []string
	Fn            Func
}

// Registry collects bench registrations and dispatches each one to a
// handler as soon as it's registered — registration is eager, matching the
// source's Bencher::bench, which runs the dispatch logic inline rather
// than deferring to a second pass.
type Registry struct {
	filter  Filter
	handler func(Entry)
}

// NewRegistry constructs a Registry that calls handler for every Entry
// whose canonical id matches filter. A non-matching id is skipped
// silently.
func NewRegistry(filter Filter, handler func(Entry)) *Registry {
	return &Registry{filter: filter, handler: handler}
}

// Register records one benchmark and, if its id matches the active
// filter, immediately invokes the configured handler.
func (r *Registry) Register(entry Entry) {
	if !r.filter.Match(entry.ID.String()) {
		return
	}
	r.handler(entry)
}
