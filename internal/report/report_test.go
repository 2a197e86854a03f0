package report_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cgbench/yab/internal/benchid"
	"github.com/cgbench/yab/internal/measure"
	"github.com/cgbench/yab/internal/report"
	"github.com/cgbench/yab/internal/stats"
)

type fakeReporter struct {
	okErr      error
	okCalled   bool
	errs       []error
	listedIds  []benchid.ID
}

func (f *fakeReporter) Error(err error)                        { f.errs = append(f.errs, err) }
func (f *fakeReporter) NewTest(benchid.ID) report.TestReporter  { return fakeTest{} }
func (f *fakeReporter) NewBenchmark(benchid.ID) report.BenchmarkReporter {
	return fakeBenchmark{}
}
func (f *fakeReporter) ListItem(id benchid.ID) { f.listedIds = append(f.listedIds, id) }
func (f *fakeReporter) OK() error              { f.okCalled = true; return f.okErr }

type fakeTest struct{}

func (fakeTest) OK()      {}
func (fakeTest) Fail(any) {}

type fakeBenchmark struct{}

func (fakeBenchmark) StartExecution()                     {}
func (fakeBenchmark) BaselineComputed(stats.Stats, uint64) {}
func (fakeBenchmark) OK(measure.Output)                    {}
func (fakeBenchmark) Warning(error)                        {}
func (fakeBenchmark) Error(error)                          {}
func (fakeBenchmark) NoData()                              {}

func TestSeqFansErrorOutToEverySink(t *testing.T) {
	a, b := &fakeReporter{}, &fakeReporter{}
	seq := report.NewSeq(a, b)

	boom := errors.New("boom")
	seq.Error(boom)

	assert.Equal(t, []error{boom}, a.errs)
	assert.Equal(t, []error{boom}, b.errs)
}

func TestSeqJoinsOKErrorsAcrossSinks(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	a := &fakeReporter{okErr: errA}
	b := &fakeReporter{okErr: errB}
	seq := report.NewSeq(a, b)

	err := seq.OK()
	assert.True(t, a.okCalled)
	assert.True(t, b.okCalled)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestSeqFansListItemOutToEverySink(t *testing.T) {
	a, b := &fakeReporter{}, &fakeReporter{}
	seq := report.NewSeq(a, b)

	id := benchid.New("fib")
	seq.ListItem(id)

	assert.Equal(t, []benchid.ID{id}, a.listedIds)
	assert.Equal(t, []benchid.ID{id}, b.listedIds)
}

func TestNewSeqDropsNilSinks(t *testing.T) {
	a := &fakeReporter{}
	seq := report.NewSeq(a, nil)
	assert.Len(t, seq.Sinks, 1)
}
