package imaging

import (
	"runtime"
	"sync"
)

// WorkerPool runs independent pipeline stages concurrently. Quality
// validation and feature extraction have no data dependency on each
// other, so each request can fan them out and join.
type WorkerPool struct {
	workers  int
	jobQueue chan job
	once     sync.Once
}

type job struct {
	fn   func()
	done *sync.WaitGroup
}

// NewWorkerPool creates a pool with the given number of workers, or one
// per CPU when workers <= 0.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &WorkerPool{
		workers:  workers,
		jobQueue: make(chan job, workers*2),
	}
}

// Start launches the workers. Safe to call more than once.
func (wp *WorkerPool) Start() {
	wp.once.Do(func() {
		for i := 0; i < wp.workers; i++ {
			go wp.worker()
		}
	})
}

func (wp *WorkerPool) worker() {
	for j := range wp.jobQueue {
		j.fn()
		j.done.Done()
	}
}

// Do submits all functions and blocks until every one has finished. The
// functions must not share mutable state.
func (wp *WorkerPool) Do(fns ...func()) {
	var wg sync.WaitGroup
	wg.Add(len(fns))
	for _, fn := range fns {
		wp.jobQueue <- job{fn: fn, done: &wg}
	}
	wg.Wait()
}

// Close shuts down the pool. Pending jobs are drained first.
func (wp *WorkerPool) Close() {
	close(wp.jobQueue)
}
