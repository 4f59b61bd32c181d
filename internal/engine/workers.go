// internal/engine/workers.go
package engine

import (
	"context"
	"sync"
)

// WorkerPool runs CPU-bound tree work on a fixed number of goroutines
// so the coordinating flow stays responsive to budgets and
// cancellation. Submit blocks when the queue is full, providing
// backpressure.
type WorkerPool struct {
	queue chan func()
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewWorkerPool starts a pool of the given size. Non-positive sizes are
// clamped to 1.
func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	wp := &WorkerPool{queue: make(chan func(), queueSize)}
	for i := 0; i < workers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
	return wp
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for work := range wp.queue {
		work()
	}
}

// Submit queues one work item, blocking until a worker frees up or ctx
// is done.
func (wp *WorkerPool) Submit(ctx context.Context, work func()) error {
	select {
	case wp.queue <- work:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains the queue and waits for workers to finish. Submitting
// after Close panics, matching channel semantics.
func (wp *WorkerPool) Close() {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	wp.mu.Unlock()

	close(wp.queue)
	wp.wg.Wait()
}
