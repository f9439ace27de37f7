// Package sim provides the Executor: a single goroutine that owns all
// engine-visible mutations. Submitting work to it and awaiting completion is
// the only sanctioned way to mutate shared simulation state.
package sim

import (
	"context"

	"github.com/lefinal/plague-server/errors"
	"github.com/lefinal/plague-server/logging"
)

// task is a unit of work for the Executor.
type task struct {
	fn func()
	// done is closed when fn returned. Nil for fire-and-forget tasks.
	done chan struct{}
}

// Executor runs submitted functions one at a time on a single goroutine in
// submission order. Never call Do from within a submitted function; the
// executor goroutine would wait on itself.
type Executor struct {
	tasks chan task
}

// NewExecutor creates a new Executor. Run it with Executor.Run.
func NewExecutor() *Executor {
	return &Executor{
		tasks: make(chan task, 256),
	}
}

// Run processes submitted tasks until the context is done. It blocks so you
// need to start a goroutine.
func (e *Executor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// Release all waiters that are still queued.
			for {
				select {
				case t := <-e.tasks:
					if t.done != nil {
						close(t.done)
					}
				default:
					return
				}
			}
		case t := <-e.tasks:
			t.fn()
			if t.done != nil {
				close(t.done)
			}
		}
	}
}

// Do submits fn and blocks until it completed on the executor goroutine.
// Callers must not hold the state lock while calling Do.
func (e *Executor) Do(ctx context.Context, fn func()) error {
	t := task{
		fn:   fn,
		done: make(chan struct{}),
	}
	select {
	case <-ctx.Done():
		return errors.NewContextAbortedError("submit simulation task")
	case e.tasks <- t:
	}
	select {
	case <-ctx.Done():
		return errors.NewContextAbortedError("await simulation task")
	case <-t.done:
	}
	return nil
}

// Submit queues fn without waiting for completion. Ordering relative to other
// submitted tasks is preserved.
func (e *Executor) Submit(fn func()) {
	select {
	case e.tasks <- task{fn: fn}:
	default:
		// The queue is full. This means the simulation goroutine is stalled, which
		// we cannot recover from here, so we only log.
		logging.SimLogger.Warn("dropping simulation task due to full queue")
	}
}
