package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgbench/yab/internal/benchid"
	"github.com/cgbench/yab/internal/capture"
	"github.com/cgbench/yab/internal/registry"
)

func TestAnyMatchesEverything(t *testing.T) {
	f := registry.Any{}
	assert.True(t, f.Match(""))
	assert.True(t, f.Match("fib/15"))
}

func TestExactMatchesOnlyIdenticalText(t *testing.T) {
	f := registry.Exact{Text: "fib/15"}
	assert.True(t, f.Match("fib/15"))
	assert.False(t, f.Match("fib/16"))
}

func TestRegexMatchesPattern(t *testing.T) {
	f, err := registry.NewRegex(`\d+$`)
	require.NoError(t, err)

	ids := []string{"fib/15", "fib/20", "fib_long", "random_walk/10000000"}
	var matched []string
	for _, id := range ids {
		if f.Match(id) {
			matched = append(matched, id)
		}
	}
	assert.Equal(t, []string{"fib/15", "fib/20", "random_walk/10000000"}, matched)
}

func TestNewBuildsRightFilterKind(t *testing.T) {
	f, err := registry.New("", false)
	require.NoError(t, err)
	assert.IsType(t, registry.Any{}, f)

	f, err = registry.New("fib/15", true)
	require.NoError(t, err)
	assert.Equal(t, registry.Exact{Text: "fib/15"}, f)

	f, err = registry.New(`\d+$`, false)
	require.NoError(t, err)
	assert.IsType(t, registry.Regex{}, f)
}

func TestRegistryDispatchesOnlyMatchingEntries(t *testing.T) {
	f := registry.Exact{Text: "fib/15"}
	var ran []string
	r := registry.NewRegistry(f, func(e registry.Entry) { ran = append(ran, e.ID.String()) })

	r.Register(registry.Entry{ID: benchid.New("fib", benchid.WithArgs("15")), Fn: func([]capture.Token) any { return nil }})
	r.Register(registry.Entry{ID: benchid.New("fib", benchid.WithArgs("20")), Fn: func([]capture.Token) any { return nil }})

	assert.Equal(t, []string{"fib/15"}, ran)
}
