// Package scheduler bounds benchmark measurement jobs behind a counting
// semaphore, realized directly with sourcegraph/conc/pool, and joins
// shutdown with every job's outcome.
package scheduler

import (
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"

	"github.com/cgbench/yab/internal/applog"
)

// Scheduler runs measurement jobs with at most `jobs` in flight at once.
// jobs == 1 isn't special-cased into a synchronous path:
// WithMaxGoroutines(1) already serializes execution deterministically.
type Scheduler struct {
	pool *pool.Pool

	mu   sync.Mutex
	errs []error
}

// New constructs a Scheduler bounded to jobs concurrent goroutines. jobs
// below 1 is clamped to 1.
func New(jobs int) *Scheduler {
	if jobs < 1 {
		jobs = 1
	}
	return &Scheduler{pool: pool.New().WithMaxGoroutines(jobs)}
}

// Go schedules job to run, bounded by the configured concurrency. job's
// own panics are recovered and converted to an error here rather than
// left to conc.Pool's default re-panic-on-Wait behavior — a panicking
// measurement job is a harness bug, not a benchmark-under-test panic
// (those are caught separately, inside Test mode), so it's surfaced as an
// ordinary error alongside every other job's outcome.
func (s *Scheduler) Go(job func() error) {
	s.pool.Go(func() {
		if err := runRecovered(job); err != nil {
			s.mu.Lock()
			s.errs = append(s.errs, err)
			s.mu.Unlock()
		}
	})
}

// Wait blocks until every scheduled job has completed, then returns every
// job error joined with multierr (nil if none failed).
func (s *Scheduler) Wait() error {
	s.pool.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	for _, e := range s.errs {
		err = multierr.Append(err, e)
	}
	return err
}

func runRecovered(job func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler: job panicked: %v", r)
			applog.Get().Error("recovered job panic", "error", r)
		}
	}()
	return job()
}
