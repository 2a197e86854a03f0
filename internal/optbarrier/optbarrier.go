// Package optbarrier provides an optimization barrier: a call the compiler
// cannot see through, reason about, or hoist across. Go has no direct
// equivalent of a volatile read of an arbitrary value, so this stands in
// for it with an atomic.Value round trip plus runtime.KeepAlive.
package optbarrier

import (
	"runtime"
	"sync/atomic"
)

// Opaque stores v into an atomic.Value and immediately loads it back. The
// compiler cannot prove the load returns the same value it just stored (an
// atomic.Value's Load/Store go through an interface boundary it doesn't
// look inside), so callers can use the result in place of v anywhere they
// need to prevent constant-folding or branch hoisting across loop
// iterations. runtime.KeepAlive on the input guards against the compiler
// proving v itself is otherwise dead before the store completes.
func Opaque(v any) any {
	var box atomic.Value
	box.Store(opaqueWrapper{v})
	runtime.KeepAlive(v)
	return box.Load().(opaqueWrapper).v
}

// opaqueWrapper exists because atomic.Value rejects nil interface values
// passed to Store; wrapping in a concrete struct makes every call uniform
// regardless of what v is.
type opaqueWrapper struct {
	v any
}
