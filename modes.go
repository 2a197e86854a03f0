package yab

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/cgbench/yab/internal/baseline"
	"github.com/cgbench/yab/internal/benchid"
	"github.com/cgbench/yab/internal/capture"
	"github.com/cgbench/yab/internal/dispatch"
	"github.com/cgbench/yab/internal/harnesschild"
	"github.com/cgbench/yab/internal/measure"
	"github.com/cgbench/yab/internal/options"
	"github.com/cgbench/yab/internal/protocol"
	"github.com/cgbench/yab/internal/registry"
	"github.com/cgbench/yab/internal/regression"
	"github.com/cgbench/yab/internal/report"
	"github.com/cgbench/yab/internal/scheduler"
)

// childTarget is the re-entered simulated-child path: every registration
// is just collected, since only one of them (the one matching marker.ID)
// will ever actually run, and harnesschild.Run does that matching itself.
type childTarget struct {
	marker  dispatch.Marker
	exit    harnesschild.Exit
	entries []registry.Entry
}

func (c *childTarget) register(id benchid.ID, fn SetupFunc) {
	c.entries = append(c.entries, registry.Entry{
		ID:            id,
		CaptureLabels: []string{id.String()},
		Fn:            registerFunc(fn),
	})
}

func (c *childTarget) run() int {
	if err := harnesschild.Run(c.marker, c.entries, harnesschild.Markers{}, c.exit); err != nil {
		fmt.Println(err)
		return 1
	}
	return 0
}

// mainTarget is the normal parent-process path: registration dispatches
// immediately to test/bench/list/print handling, matching Registry's eager
// dispatch, and run() waits for any scheduled measurement jobs and tears
// every reporter sink down.
type mainTarget struct {
	opts     *options.Options
	filter   registry.Filter
	reporter report.Reporter
	sched    *scheduler.Scheduler
	protocol *protocol.Runner
	checker  *regression.Checker
	fs       afero.Fs
	binary   string

	failed bool
}

func (m *mainTarget) register(id benchid.ID, fn SetupFunc) {
	if !m.filter.Match(id.String()) {
		return
	}

	switch m.opts.Mode {
	case options.ModeList:
		m.reporter.ListItem(id)
	case options.ModeTest:
		m.runTest(id, fn)
	case options.ModeBench:
		m.scheduleBench(id, fn)
	case options.ModePrint:
		m.printResult(id)
	}
}

// runTest runs fn once, in-process, with a no-op capture token. It only
// checks that the body completes without panicking.
func (m *mainTarget) runTest(id benchid.ID, fn SetupFunc) {
	tr := m.reporter.NewTest(id)
	panicValue := func() (pv any) {
		defer func() {
			if r := recover(); r != nil {
				pv = r
			}
		}()
		fn(capture.New(capture.NoOp, func() {}))
		return nil
	}()
	if panicValue != nil {
		m.failed = true
		tr.Fail(panicValue)
		return
	}
	tr.OK()
}

// scheduleBench hands id's measurement to the scheduler, bounded to
// opts.Jobs concurrent runs. fn itself is never called in this process:
// the measured execution happens in the re-spawned simulated child: only
// the protocol runner and its simrunner-driven child invocations matter
// here.
func (m *mainTarget) scheduleBench(id benchid.ID, _ SetupFunc) {
	br := m.reporter.NewBenchmark(id)
	m.sched.Go(func() error {
		output, err := m.protocol.Run(context.Background(), id, br)
		if err != nil {
			br.Error(err)
			return err
		}
		if m.checker != nil {
			if r, regressed := m.checker.Check(id, output); regressed {
				br.Warning(fmt.Errorf("regression: %s grew %d -> %d (+%.2f%%)",
					r.ID, r.Previous, r.Current, r.Ratio*100))
				return nil
			}
		}
		br.OK(output)
		return nil
	})
}

// printResult loads a previously published result for id without
// spawning anything. A missing pair is reported as NoData, a warning
// rather than a fatal error.
func (m *mainTarget) printResult(id benchid.ID) {
	br := m.reporter.NewBenchmark(id)
	br.StartExecution()

	output, ok, err := m.loadPrinted(id)
	if err != nil {
		br.Error(err)
		m.failed = true
		return
	}
	if !ok {
		br.NoData()
		return
	}
	br.OK(output)
}

func (m *mainTarget) loadPrinted(id benchid.ID) (measure.Output, bool, error) {
	if m.opts.PrintBaseline == "" {
		return protocol.LoadPublished(m.fs, m.opts.CachegrindOutDir, id)
	}
	path := options.BaselinePath(m.opts.PrintBaseline, m.opts.CachegrindOutDir, m.binary)
	store, err := baseline.Load(m.fs, path)
	if err != nil {
		return measure.Output{}, false, nil
	}
	record, ok := store.Get(id.String())
	if !ok {
		return measure.Output{}, false, nil
	}
	return measure.Output{Current: record}, true, nil
}

func (m *mainTarget) run() int {
	schedErr := m.sched.Wait()
	if schedErr != nil {
		m.reporter.Error(schedErr)
		m.failed = true
	}
	if err := m.reporter.OK(); err != nil {
		m.reporter.Error(err)
		m.failed = true
	}
	if m.failed {
		return 1
	}
	return 0
}
