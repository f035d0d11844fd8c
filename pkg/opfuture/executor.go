package opfuture

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Executor is spec.md §6's per-continuation collaborator: Submit may reject
// work, in which case the rejection is logged by the caller and never
// surfaced through the future's own outcome.
type Executor interface {
	Submit(task func()) error
}

// ExecutorFunc adapts a plain function to Executor.
type ExecutorFunc func(task func()) error

func (f ExecutorFunc) Submit(task func()) error { return f(task) }

// InlineRejectingExecutor rejects every submission. It is the zero-value
// default executor for a Future constructed without WithDefaultExecutor,
// so that attaching a continuation without wiring an executor fails loudly
// (as a logged rejection) instead of silently running user code inline on
// the completer, which spec.md's Non-goals explicitly forbid relying on.
type InlineRejectingExecutor struct{}

func (InlineRejectingExecutor) Submit(func()) error {
	return fmt.Errorf("opfuture: no executor configured for this continuation")
}

// errPoolClosed is returned by PoolExecutor.Submit once Close has been
// called.
var errPoolClosed = fmt.Errorf("opfuture: executor pool closed")

// PoolExecutor is a small bounded goroutine pool. Admission is gated with
// golang.org/x/sync/semaphore rather than an unbounded "go func() per
// submission" or a plain buffered channel, following the bounded-worker
// admission pattern used by the rest of this corpus's stream-processing
// code for the same job: cap concurrent continuations so a burst of
// completions can't spawn unbounded goroutines.
type PoolExecutor struct {
	sem    *semaphore.Weighted
	closed chan struct{}
}

// NewPoolExecutor creates a pool that runs at most size continuations
// concurrently.
func NewPoolExecutor(size int64) *PoolExecutor {
	if size <= 0 {
		size = 1
	}
	return &PoolExecutor{
		sem:    semaphore.NewWeighted(size),
		closed: make(chan struct{}),
	}
}

// Submit runs task on a pooled goroutine once a slot is available. It
// returns an error without blocking if the pool has been closed.
func (p *PoolExecutor) Submit(task func()) error {
	select {
	case <-p.closed:
		return errPoolClosed
	default:
	}
	if err := p.sem.Acquire(context.Background(), 1); err != nil {
		return err
	}
	go func() {
		defer p.sem.Release(1)
		task()
	}()
	return nil
}

// Close prevents further submissions. In-flight tasks are left to finish.
func (p *PoolExecutor) Close() {
	select {
	case <-p.closed:
	default:
		close(p.closed)
	}
}
