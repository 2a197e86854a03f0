// Package capture implements the single-use Capture token a benchmark
// closure receives: starting it marks the beginning of the measured
// region, and its configured behavior determines whether the harness
// process exits at the start or end of that region.
package capture

import "github.com/cgbench/yab/internal/optbarrier"

// Behavior selects what happens around the measured region of one
// benchmark iteration.
type Behavior int

const (
	// NoOp means this iteration is not the last one; no simulator
	// start/stop marker is toggled here.
	NoOp Behavior = iota
	// TerminateOnStart means the measured region starts and the process
	// should exit immediately after emitting the stop marker, without
	// running the rest of the benchmark body. Used for the baseline run's
	// final iteration.
	TerminateOnStart
	// TerminateOnEnd means the process should exit after the measured
	// region completes normally. Used for the full run's final iteration.
	TerminateOnEnd
)

// Token is handed to a benchmark closure once per iteration. harnesschild
// constructs one per iteration and Test mode constructs a NoOp one; the
// zero value behaves as NoOp.
type Token struct {
	behavior Behavior
	onExit   func()
}

// New constructs a Token with the given behavior and the callback that
// performs the stop-marker-then-exit sequence when triggered. Called by
// internal/harnesschild and by the root package's Test mode.
func New(behavior Behavior, onExit func()) Token {
	return Token{behavior: behavior, onExit: onExit}
}

// Behavior reports this token's configured behavior.
func (t Token) Behavior() Behavior { return t.behavior }

// Start marks the beginning of the measured region. If the token's
// behavior is TerminateOnStart, this call does not return: it triggers the
// stop-marker-then-exit sequence instead. The check passes through an
// optimization barrier so it cannot be reordered around the measured region.
func (t Token) Start() {
	if optbarrier.Opaque(t.behavior == TerminateOnStart).(bool) {
		t.onExit()
	}
}

// End marks the end of the measured region. If the token's behavior is
// TerminateOnEnd, this call does not return.
func (t Token) End() {
	if optbarrier.Opaque(t.behavior == TerminateOnEnd).(bool) {
		t.onExit()
	}
}

// Measure is a convenience helper: it calls Start, invokes fn, then calls
// End, so a benchmark closure that doesn't need fine-grained control over
// the measured region's boundaries can write token.Measure(func() { ... })
// instead of managing Start/End itself.
func (t Token) Measure(fn func()) {
	t.Start()
	fn()
	t.End()
}
