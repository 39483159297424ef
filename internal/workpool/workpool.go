// Package workpool implements a bounded-concurrency task executor with FIFO
// dispatch, drain semantics, and stable per-worker thread identity for the
// colorized logger.
//
// Grounded on original_source/private/thread_pool.hh and
// original_source/src/thread_pool.cc, with the worker-loop/errgroup shape
// adapted from the distri build scheduler (other_examples, batch.go) which
// this pack's examples use for the same kind of bounded compile-job fan-out;
// golang.org/x/sync/errgroup supplies the worker-exit/error-propagation half,
// while the FIFO task queue and drain/close semantics are hand-rolled since
// errgroup alone has no notion of a work queue.
package workpool

import (
	"container/list"
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// OriginID is the thread id surfaced to the caller submitting work from
// outside any worker — "the originating thread" in spec.md §4.6.
const OriginID = -1

// TaskFunc is a unit of work run by a worker. workerID is the worker's
// stable id in [0, N-1].
type TaskFunc func(ctx context.Context, workerID int) (interface{}, error)

type task struct {
	fn       TaskFunc
	resolved chan result
}

type result struct {
	val interface{}
	err error
}

// Handle is a single-consumer completion handle returned by Submit.
type Handle struct {
	ch <-chan result
}

// Wait blocks until the task's body has returned, yielding its result.
func (h Handle) Wait() (interface{}, error) {
	r := <-h.ch
	return r.val, r.err
}

// Pool is a fixed-size worker pool reading from a FIFO queue. Workers are
// started by New and run until Close (or the pool's context is cancelled).
type Pool struct {
	eg     *errgroup.Group
	cancel context.CancelFunc

	mu       sync.Mutex
	cond     *sync.Cond
	queue    *list.List // of *task
	draining bool
	closed   bool
}

// New starts n workers. ctx bounds the lifetime of every worker; cancelling
// it is equivalent to Close.
func New(ctx context.Context, n int) *Pool {
	ctx, cancel := context.WithCancel(ctx)
	eg, ctx := errgroup.WithContext(ctx)

	p := &Pool{
		eg:     eg,
		cancel: cancel,
		queue:  list.New(),
	}
	p.cond = sync.NewCond(&p.mu)

	// Wake every waiting worker once ctx is done, so they notice closure
	// promptly instead of blocking on cond.Wait forever.
	go func() {
		<-ctx.Done()
		p.Drain()
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		p.cond.Broadcast()
	}()

	for i := 0; i < n; i++ {
		workerID := i
		eg.Go(func() error {
			for {
				t, ok := p.next()
				if !ok {
					return nil
				}
				val, err := t.fn(ctx, workerID)
				t.resolved <- result{val: val, err: err}
			}
		})
	}
	return p
}

// next pops the oldest queued task, FIFO, blocking until one is available
// or the pool closes.
func (p *Pool) next() (*task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.queue.Len() > 0 {
			front := p.queue.Front()
			p.queue.Remove(front)
			return front.Value.(*task), true
		}
		if p.closed {
			return nil, false
		}
		p.cond.Wait()
	}
}

// Submit enqueues fn and returns a Handle that resolves once fn returns, or
// immediately (without running fn) if the pool is draining or closed.
func (p *Pool) Submit(fn TaskFunc) Handle {
	resolved := make(chan result, 1)

	p.mu.Lock()
	if p.draining || p.closed {
		p.mu.Unlock()
		resolved <- result{err: context.Canceled}
		return Handle{ch: resolved}
	}
	p.queue.PushBack(&task{fn: fn, resolved: resolved})
	p.mu.Unlock()
	p.cond.Signal()

	return Handle{ch: resolved}
}

// Drain discards all not-yet-started tasks; in-flight tasks run to
// completion and their handles still resolve. After Drain, further Submit
// calls resolve immediately without running.
func (p *Pool) Drain() {
	p.mu.Lock()
	p.draining = true
	dropped := p.queue
	p.queue = list.New()
	p.mu.Unlock()

	for e := dropped.Front(); e != nil; e = e.Next() {
		e.Value.(*task).resolved <- result{err: context.Canceled}
	}
}

// Close signals workers to exit after finishing in-flight tasks; any tasks
// still queued are dropped. Close blocks until all workers have exited.
func (p *Pool) Close() error {
	p.Drain()
	p.cancel()
	return p.eg.Wait()
}
