package benchid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgbench/yab/internal/benchid"
)

func TestStringFormsByArity(t *testing.T) {
	assert.Equal(t, "fib", benchid.New("fib").String())
	assert.Equal(t, "fib/15", benchid.New("fib", benchid.WithArgs("15")).String())
	assert.Equal(t, "fib/15/alloc",
		benchid.New("fib", benchid.WithArgs("15"), benchid.WithCapture("alloc")).String())
}

func TestEqualIgnoresLocation(t *testing.T) {
	a := benchid.NewAt("fib", "a.go", 10, benchid.WithArgs("15"))
	b := benchid.NewAt("fib", "b.go", 99, benchid.WithArgs("15"))
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.String(), b.String())
}

func TestParseRoundTrip(t *testing.T) {
	cases := []benchid.ID{
		benchid.New("fib"),
		benchid.New("fib", benchid.WithArgs("15")),
		benchid.New("fib", benchid.WithArgs("15"), benchid.WithCapture("alloc")),
		benchid.New("random_walk", benchid.WithArgs("10000000")),
	}
	for _, id := range cases {
		parsed, err := benchid.Parse(id.String())
		require.NoError(t, err)
		assert.True(t, id.Equal(parsed), "round trip of %q", id.String())
	}
}

func TestParseRejectsEmpty(t *testing.T) {
	_, err := benchid.Parse("")
	assert.Error(t, err)
}
