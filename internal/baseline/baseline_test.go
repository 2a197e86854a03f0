package baseline_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgbench/yab/internal/baseline"
	"github.com/cgbench/yab/internal/benchid"
	"github.com/cgbench/yab/internal/funckey"
	"github.com/cgbench/yab/internal/measure"
	"github.com/cgbench/yab/internal/stats"
)

func TestStoreSaveAndLoadRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := baseline.NewStore()
	store.Set("fib/15", measure.New(stats.Simple(1234)))

	require.NoError(t, store.Save(fs, "/out/baseline.json"))

	loaded, err := baseline.Load(fs, "/out/baseline.json")
	require.NoError(t, err)

	record, ok := loaded.Get("fib/15")
	require.True(t, ok)
	assert.Equal(t, uint64(1234), record.Summary.TotalInstructions())
}

func TestSaverClearsBreakdownWhenDisabled(t *testing.T) {
	fs := afero.NewMemMapFs()
	saver := baseline.NewSaver(fs, "/out/baseline.json", false)

	record := measure.New(stats.Simple(100))
	record.Breakdown = map[funckey.Key]stats.Stats{
		funckey.New("hot_fn", "lib.rs"): stats.Simple(90),
	}

	bench := saver.NewBenchmark(benchid.New("fib"))
	bench.OK(measure.Output{Current: record})
	require.NoError(t, saver.OK())

	loaded, err := baseline.Load(fs, "/out/baseline.json")
	require.NoError(t, err)
	got, ok := loaded.Get("fib")
	require.True(t, ok)
	assert.Empty(t, got.Breakdown)
}

func TestSaverPrunesNoiseWhenBreakdownEnabled(t *testing.T) {
	fs := afero.NewMemMapFs()
	saver := baseline.NewSaver(fs, "/out/baseline.json", true)

	record := measure.New(stats.Simple(100_000))
	record.Breakdown = map[funckey.Key]stats.Stats{
		funckey.New("hot_fn", "lib.rs"):   stats.Simple(50_000),
		funckey.New("noise_fn", "lib.rs"): stats.Simple(10),
	}

	bench := saver.NewBenchmark(benchid.New("fib"))
	bench.OK(measure.Output{Current: record})
	require.NoError(t, saver.OK())

	loaded, err := baseline.Load(fs, "/out/baseline.json")
	require.NoError(t, err)
	got, ok := loaded.Get("fib")
	require.True(t, ok)
	assert.Len(t, got.Breakdown, 1)
	_, hasHot := got.Breakdown[funckey.New("hot_fn", "lib.rs")]
	assert.True(t, hasHot)
}

func TestIdsAreSorted(t *testing.T) {
	store := baseline.NewStore()
	store.Set("z_bench", measure.New(stats.Simple(1)))
	store.Set("a_bench", measure.New(stats.Simple(1)))
	assert.Equal(t, []string{"a_bench", "z_bench"}, store.Ids())
}
