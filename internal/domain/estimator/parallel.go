package estimator

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// fitPool runs independent fit jobs over a bounded set of goroutines. Forest
// members train concurrently; determinism is preserved because every job
// carries its own seeded RNG rather than sharing one.
type fitPool struct {
	workers int
}

func newFitPool(workers int) fitPool {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return fitPool{workers: workers}
}

// run executes all jobs and returns the first error encountered. The job
// queue is drained even on failure so no goroutine is left blocked.
func (p fitPool) run(ctx context.Context, jobs []func() error) error {
	if len(jobs) == 0 {
		return nil
	}

	queue := make(chan func() error, len(jobs))
	for _, j := range jobs {
		queue <- j
	}
	close(queue)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	workers := p.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				if ctx.Err() != nil {
					continue
				}
				if err := job(); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("fit cancelled: %w", err)
	}
	return nil
}
