package common

import (
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// ParallelFor splits [0, n) into chunks of at most chunk items and runs fn on each through the
// pool. It returns once every chunk has finished. A nil pool runs everything on the caller.
// fn must not submit work to the same pool.
//
// Parameters:
//   - pool: the worker pool to run on
//   - n: the number of items
//   - chunk: the maximum number of items per task
//   - fn: the work for one chunk, called with [lo, hi)
func ParallelFor(pool worker.DynamicWorkerPool, n, chunk int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	chunk = max(chunk, 1)
	if pool == nil || n <= chunk {
		fn(0, n)
		return
	}

	// pool.Wait() blocks until workers idle out, so a WaitGroup is the barrier.
	var wg sync.WaitGroup
	id := 0
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				fn(lo, hi)
				return nil, nil
			},
		})
		id++
	}
	wg.Wait()
}
