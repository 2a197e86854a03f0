package harnesschild_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgbench/yab/internal/benchid"
	"github.com/cgbench/yab/internal/capture"
	"github.com/cgbench/yab/internal/dispatch"
	"github.com/cgbench/yab/internal/harnesschild"
	"github.com/cgbench/yab/internal/registry"
)

func recordingExit(calls *[]int) harnesschild.Exit {
	return func(code int) { *calls = append(*calls, code) }
}

func TestRunBaselineTerminatesOnStartOfLastIteration(t *testing.T) {
	var exitCalls []int
	var bodyRuns int
	var lastBehavior capture.Behavior

	entry := registry.Entry{
		ID: benchid.New("fib", benchid.WithArgs("15")),
		Fn: func(tokens []capture.Token) any {
			tok := tokens[0]
			lastBehavior = tok.Behavior()
			tok.Measure(func() { bodyRuns++ })
			return nil
		},
	}

	marker := dispatch.Marker{Iterations: 3, IsBaseline: true, ID: "fib/15"}
	err := harnesschild.Run(marker, []registry.Entry{entry}, harnesschild.Markers{}, recordingExit(&exitCalls))
	require.NoError(t, err)

	assert.Equal(t, capture.TerminateOnStart, lastBehavior)
	// The real onExit would os.Exit before the body ran on the final
	// iteration; our fake onExit records and returns, so the body still
	// executes for all 3 iterations in this test, then one final exit(0)
	// fires after the loop completes.
	assert.Equal(t, 3, bodyRuns)
	assert.Contains(t, exitCalls, 0)
}

func TestRunFullTerminatesOnEndOfLastIteration(t *testing.T) {
	var exitCalls []int
	var lastBehavior capture.Behavior

	entry := registry.Entry{
		ID: benchid.New("fib", benchid.WithArgs("15")),
		Fn: func(tokens []capture.Token) any {
			lastBehavior = tokens[0].Behavior()
			tokens[0].Measure(func() {})
			return nil
		},
	}

	marker := dispatch.Marker{Iterations: 2, IsBaseline: false, ID: "fib/15"}
	err := harnesschild.Run(marker, []registry.Entry{entry}, harnesschild.Markers{}, recordingExit(&exitCalls))
	require.NoError(t, err)
	assert.Equal(t, capture.TerminateOnEnd, lastBehavior)
}

// The fake exit returns instead of terminating, so Stop fires both at the
// last iteration's End and again after the loop; Start fires exactly once.
func TestRunCallsStartMarkerOnceAndStopMarker(t *testing.T) {
	var starts, stops int
	markers := harnesschild.Markers{
		Start: func() { starts++ },
		Stop:  func() { stops++ },
	}
	entry := registry.Entry{
		ID: benchid.New("fib"),
		Fn: func(tokens []capture.Token) any { tokens[0].Measure(func() {}); return nil },
	}

	var exitCalls []int
	marker := dispatch.Marker{Iterations: 5, IsBaseline: false, ID: "fib"}
	err := harnesschild.Run(marker, []registry.Entry{entry}, markers, recordingExit(&exitCalls))
	require.NoError(t, err)
	assert.Equal(t, 1, starts)
	assert.GreaterOrEqual(t, stops, 1)
}

func TestRunErrorsOnUnknownID(t *testing.T) {
	marker := dispatch.Marker{Iterations: 1, IsBaseline: true, ID: "nope"}
	err := harnesschild.Run(marker, nil, harnesschild.Markers{}, func(int) {})
	assert.Error(t, err)
}

func TestOnlyLastIterationIsTerminal(t *testing.T) {
	var behaviors []capture.Behavior
	entry := registry.Entry{
		ID: benchid.New("fib"),
		Fn: func(tokens []capture.Token) any {
			behaviors = append(behaviors, tokens[0].Behavior())
			return nil
		},
	}
	var exitCalls []int
	marker := dispatch.Marker{Iterations: 4, IsBaseline: false, ID: "fib"}
	err := harnesschild.Run(marker, []registry.Entry{entry}, harnesschild.Markers{}, recordingExit(&exitCalls))
	require.NoError(t, err)
	require.Len(t, behaviors, 4)
	for _, b := range behaviors[:3] {
		assert.Equal(t, capture.NoOp, b)
	}
	assert.Equal(t, capture.TerminateOnEnd, behaviors[3])
}
