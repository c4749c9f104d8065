// Package workerpool runs independent diff jobs concurrently, one
// goroutine per job slot: a buffered task channel, a fixed number of
// worker goroutines, and atomic counters for progress.
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Task is one independent unit of work; it owns every resource it
// touches (its own inst.Cache, its own match.Pipeline) so that no state
// is shared between concurrently running tasks.
type Task func() error

// Pool runs a fixed number of worker goroutines against a queue of Tasks.
type Pool struct {
	NumWorkers int

	completed atomic.Int64
	failed    atomic.Int64
}

// New returns a Pool sized to numWorkers, or runtime.NumCPU() if
// numWorkers <= 0.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Pool{NumWorkers: numWorkers}
}

// Stats returns the number of completed and failed tasks so far.
func (p *Pool) Stats() (completed, failed int64) {
	return p.completed.Load(), p.failed.Load()
}

// Run distributes tasks across the pool's workers and returns one error
// per task, in task order, collecting (rather than aborting on) the
// first failure so that one bad pair in a batch doesn't stop the rest.
func (p *Pool) Run(tasks []Task) []error {
	errs := make([]error, len(tasks))

	type indexed struct {
		index int
		task  Task
	}
	ch := make(chan indexed, len(tasks))
	for i, t := range tasks {
		ch <- indexed{i, t}
	}
	close(ch)

	var wg sync.WaitGroup
	for i := 0; i < p.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range ch {
				err := item.task()
				errs[item.index] = err
				p.completed.Add(1)
				if err != nil {
					p.failed.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	return errs
}
