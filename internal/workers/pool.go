// Package workers bounds how many oracle-backed tasks run at once across
// the whole process.
package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Stats is a snapshot of pool counters.
type Stats struct {
	Size      int   `json:"size"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Panics    int64 `json:"panics"`
}

// ErrPoolShutdown is returned when work is submitted to a shut-down pool.
var ErrPoolShutdown = errors.New("worker pool is shut down")

// PanicError wraps a value recovered from a panicking task.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Task is a unit of work run by the pool.
type Task func(ctx context.Context) error

// Pool is a bounded goroutine pool shared by every report being built.
type Pool struct {
	size int
	sem  chan struct{}
	wg   sync.WaitGroup

	active, completed, failed, panics atomic.Int64

	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

// New creates a pool with the given max concurrency.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		size: size,
		sem:  make(chan struct{}, size),
		done: make(chan struct{}),
	}
}

// Submit runs fn on a pool goroutine. It blocks while the pool is at
// capacity and gives up when ctx is cancelled or the pool shuts down.
// onDone, if non-nil, receives fn's result, or a *PanicError if fn panicked.
func (p *Pool) Submit(ctx context.Context, fn Task, onDone func(error)) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolShutdown
	}
	p.mu.Unlock()

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrPoolShutdown
	}

	// wg.Add must happen under the lock so Shutdown's Wait cannot miss it.
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.sem
		return ErrPoolShutdown
	}
	p.wg.Add(1)
	p.active.Add(1)
	p.mu.Unlock()

	go func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				p.panics.Add(1)
				err = &PanicError{Value: r}
			}
			if err != nil {
				p.failed.Add(1)
			} else {
				p.completed.Add(1)
			}
			p.active.Add(-1)
			<-p.sem
			if onDone != nil {
				onDone(err)
			}
			p.wg.Done()
		}()
		err = fn(ctx)
	}()

	return nil
}

// Wait blocks until all submitted work completes.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Shutdown stops accepting work and waits for running tasks.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Size:      p.size,
		Active:    p.active.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Panics:    p.panics.Load(),
	}
}

// Batch is a fixed set of tasks on a shared pool that can be awaited on
// its own, without waiting for unrelated work.
type Batch struct {
	pool *Pool
	wg   sync.WaitGroup
}

// NewBatch starts an empty batch on p.
func (p *Pool) NewBatch() *Batch {
	return &Batch{pool: p}
}

// Go submits fn as part of the batch. onDone follows Pool.Submit.
func (b *Batch) Go(ctx context.Context, fn Task, onDone func(error)) error {
	b.wg.Add(1)
	err := b.pool.Submit(ctx, fn, func(err error) {
		defer b.wg.Done()
		if onDone != nil {
			onDone(err)
		}
	})
	if err != nil {
		b.wg.Done()
	}
	return err
}

// Wait blocks until every task of the batch has finished.
func (b *Batch) Wait() {
	b.wg.Wait()
}
