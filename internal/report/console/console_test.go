package console_test

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgbench/yab/internal/benchid"
	"github.com/cgbench/yab/internal/measure"
	"github.com/cgbench/yab/internal/report/console"
	"github.com/cgbench/yab/internal/stats"
)

func TestColorNeverDisablesColorRegardlessOfWriter(t *testing.T) {
	var buf bytes.Buffer
	c := console.New(&buf, console.ColorNever)
	c.Error(errors.New("boom"))
	assert.Contains(t, buf.String(), "error: boom")
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestColorAutoDisablesColorForNonFileWriter(t *testing.T) {
	var buf bytes.Buffer
	c := console.New(&buf, console.ColorAuto)
	c.Error(errors.New("boom"))
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestTestReporterFormatsPassAndFail(t *testing.T) {
	var buf bytes.Buffer
	c := console.New(&buf, console.ColorNever)
	id := benchid.New("fib")

	tr := c.NewTest(id)
	tr.OK()
	assert.Contains(t, buf.String(), "PASS "+id.String())

	buf.Reset()
	tr = c.NewTest(id)
	tr.Fail("assertion failed")
	assert.Contains(t, buf.String(), "FAIL "+id.String())
	assert.Contains(t, buf.String(), "assertion failed")
}

func TestBenchmarkReporterPrintsStartAndCalibration(t *testing.T) {
	var buf bytes.Buffer
	c := console.New(&buf, console.ColorNever)
	id := benchid.New("fib")
	br := c.NewBenchmark(id)

	br.StartExecution()
	assert.Contains(t, buf.String(), "bench "+id.String()+" ...")

	buf.Reset()
	br.BaselineComputed(stats.Simple(5000), 200)
	assert.Contains(t, buf.String(), "calibrated "+id.String())
	assert.Contains(t, buf.String(), "5,000")
	assert.Contains(t, buf.String(), "200 iterations")
}

func TestBenchmarkReporterWarningAndErrorDoNotPanic(t *testing.T) {
	var buf bytes.Buffer
	c := console.New(&buf, console.ColorNever)
	id := benchid.New("fib")
	br := c.NewBenchmark(id)

	br.Warning(errors.New("slow calibration"))
	assert.Contains(t, buf.String(), "warning "+id.String())
	assert.Contains(t, buf.String(), "slow calibration")

	br.Error(errors.New("simulator crashed"))
	assert.Contains(t, buf.String(), "error "+id.String())
	assert.Contains(t, buf.String(), "simulator crashed")
}

func TestOKRendersSummaryTableWithDelta(t *testing.T) {
	var buf bytes.Buffer
	c := console.New(&buf, console.ColorNever)

	okID := benchid.New("fib_ok")
	br := c.NewBenchmark(okID)
	previous := measure.New(stats.Simple(1000))
	current := measure.New(stats.Simple(1200))
	br.OK(measure.Output{Current: current, Previous: &previous})

	noDataID := benchid.New("fib_no_data")
	c.NewBenchmark(noDataID).NoData()

	require.NoError(t, c.OK())
	out := buf.String()
	assert.Contains(t, out, "Benchmark")
	assert.Contains(t, out, okID.String())
	assert.Contains(t, out, "+200")
	assert.Contains(t, out, noDataID.String())
	assert.Contains(t, out, "no data")
}

func TestListItemPrintsCanonicalId(t *testing.T) {
	var buf bytes.Buffer
	c := console.New(&buf, console.ColorNever)
	id := benchid.New("fib", benchid.WithArgs("20"))
	c.ListItem(id)
	assert.Equal(t, id.String()+"\n", buf.String())
}

func TestOKPrintsNothingWhenNoBenchmarksRan(t *testing.T) {
	var buf bytes.Buffer
	c := console.New(&buf, console.ColorNever)
	require.NoError(t, c.OK())
	assert.Empty(t, buf.String())
}

func TestConcurrentReportersDoNotRace(t *testing.T) {
	var buf bytes.Buffer
	c := console.New(&buf, console.ColorNever)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := benchid.New("bench")
			br := c.NewBenchmark(id)
			br.StartExecution()
			br.OK(measure.Output{Current: measure.New(stats.Simple(uint64(n)))})
		}(i)
	}
	wg.Wait()
	require.NoError(t, c.OK())
}
