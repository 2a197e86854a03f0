// Package harnesschild implements the code path taken when the executable
// is re-entered as the simulated child: locate the one matching registered
// benchmark, run it the requested number of iterations, toggle the
// capture token's behavior at exactly the right iteration, and exit.
package harnesschild

import (
	"fmt"
	"os"
	"runtime"

	"github.com/cgbench/yab/internal/capture"
	"github.com/cgbench/yab/internal/dispatch"
	"github.com/cgbench/yab/internal/optbarrier"
	"github.com/cgbench/yab/internal/registry"
)

// Markers is the pair of simulator start/stop hooks the child calls around
// the measured region. The root package's child path passes an empty
// Markers, so the child relies on the simulator's always-on instrumentation;
// tests supply counting funcs. Both fields are optional; a nil func is
// simply not called.
type Markers struct {
	Start func()
	Stop  func()
}

// Exit is called once the measured region for this process is over. The
// production implementation is os.Exit(0); tests substitute a function
// that records the call instead of terminating the test binary.
type Exit func(code int)

// Run executes entry.Fn exactly marker.Iterations times, matching the
// requested bench id, toggling capture behavior so that:
//   - every iteration before the last is NoOp;
//   - the last iteration of a baseline run is TerminateOnStart (the
//     process exits before the bench body logically starts its capture
//     region, so the run's cost is (n+1)*setup + n*body);
//   - the last iteration of a full run is TerminateOnEnd (the process
//     exits right after the capture region ends).
//
// If no entries match marker.ID, Run returns an error instead of exiting —
// the caller decides how to surface "unknown benchmark id in child mode"
// since this is a programming-level inconsistency between parent and
// child, not a recoverable condition.
func Run(marker dispatch.Marker, entries []registry.Entry, markers Markers, exit Exit) error {
	var entry *registry.Entry
	for i := range entries {
		if entries[i].ID.String() == marker.ID {
			entry = &entries[i]
			break
		}
	}
	if entry == nil {
		return fmt.Errorf("harnesschild: no registered benchmark matches id %q", marker.ID)
	}

	if markers.Start != nil {
		markers.Start()
	}

	outputs := make([]any, 0, marker.Iterations)
	for i := uint64(1); i <= marker.Iterations; i++ {
		behavior := selectBehavior(i, marker.Iterations, marker.IsBaseline)
		onExit := func() {
			if markers.Stop != nil {
				markers.Stop()
			}
			exit(0)
		}
		tok := capture.New(behavior, onExit)

		tokens := make([]capture.Token, max(1, len(entry.CaptureLabels)))
		for j := range tokens {
			tokens[j] = tok
		}

		outputs = append(outputs, entry.Fn(tokens))
	}

	if markers.Stop != nil {
		markers.Stop()
	}
	runtime.KeepAlive(outputs)
	exit(0)
	return nil
}

// selectBehavior routes the iteration index, total iteration count, and
// baseline flag through an optimization barrier before branching, so the
// compiler cannot hoist or constant-fold the termination check across
// iterations of the loop above.
func selectBehavior(i, iterations uint64, isBaseline bool) capture.Behavior {
	isLast := optbarrier.Opaque(i == iterations).(bool)
	if !isLast {
		return capture.NoOp
	}
	if optbarrier.Opaque(isBaseline).(bool) {
		return capture.TerminateOnStart
	}
	return capture.TerminateOnEnd
}

// OSExit is the production Exit implementation.
func OSExit(code int) { os.Exit(code) }
