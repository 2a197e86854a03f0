package dispatch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgbench/yab/internal/dispatch"
)

func TestParseNotPresentWhenSecondArgIsntMarker(t *testing.T) {
	m, err := dispatch.Parse([]string{"/bin/fibbench", "--bench"})
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestParseNotPresentWhenTooFewArgs(t *testing.T) {
	m, err := dispatch.Parse([]string{"/bin/fibbench"})
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestParseBaseline(t *testing.T) {
	m, err := dispatch.Parse([]string{"/bin/fibbench", "--cachegrind-instrument", "201", "+", "fib/15"})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, uint64(201), m.Iterations)
	assert.True(t, m.IsBaseline)
	assert.Equal(t, "fib/15", m.ID)
}

func TestParseFull(t *testing.T) {
	m, err := dispatch.Parse([]string{"/bin/fibbench", "--cachegrind-instrument", "201", "-", "fib/15"})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.False(t, m.IsBaseline)
}

func TestParseRejectsTooFewMarkerArgs(t *testing.T) {
	_, err := dispatch.Parse([]string{"/bin/fibbench", "--cachegrind-instrument", "201"})
	assert.Error(t, err)
}

func TestParseRejectsBadIterations(t *testing.T) {
	_, err := dispatch.Parse([]string{"/bin/fibbench", "--cachegrind-instrument", "NaN", "+", "fib"})
	assert.Error(t, err)
}

func TestParseRejectsBadBaselineFlag(t *testing.T) {
	_, err := dispatch.Parse([]string{"/bin/fibbench", "--cachegrind-instrument", "2", "?", "fib"})
	assert.Error(t, err)
}

func TestPushArgsRoundTrip(t *testing.T) {
	m := dispatch.Marker{Iterations: 5, IsBaseline: true, ID: "fib/15"}
	argv := m.PushArgs([]string{"prefix"})
	got, err := dispatch.Parse(append([]string{"prog"}, argv[1:]...))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, m, *got)
}
