package workers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_BasicExecution(t *testing.T) {
	pool := New(2)
	defer pool.Shutdown()

	var ran int64
	err := pool.Submit(context.Background(), func(ctx context.Context) error {
		atomic.AddInt64(&ran, 1)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}

	pool.Wait()

	if atomic.LoadInt64(&ran) != 1 {
		t.Error("work did not execute")
	}
	if s := pool.Stats(); s.Completed != 1 || s.Size != 2 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestPool_ConcurrencyLimit(t *testing.T) {
	poolSize := 3
	pool := New(poolSize)
	defer pool.Shutdown()

	var maxConcurrent, current int64
	var mu sync.Mutex

	for i := 0; i < 10; i++ {
		err := pool.Submit(context.Background(), func(ctx context.Context) error {
			c := atomic.AddInt64(&current, 1)
			mu.Lock()
			if c > maxConcurrent {
				maxConcurrent = c
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&current, -1)
			return nil
		}, nil)
		if err != nil {
			t.Fatalf("unexpected submit error: %v", err)
		}
	}

	pool.Wait()

	if maxConcurrent > int64(poolSize) {
		t.Errorf("max concurrent %d exceeded pool size %d", maxConcurrent, poolSize)
	}
	if maxConcurrent == 0 {
		t.Error("no concurrent execution detected")
	}
}

func TestPool_PanicReportedToOnDone(t *testing.T) {
	pool := New(2)
	defer pool.Shutdown()

	got := make(chan error, 1)
	err := pool.Submit(context.Background(), func(ctx context.Context) error {
		panic("boom")
	}, func(err error) { got <- err })
	if err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}

	pool.Wait()

	var perr *PanicError
	if !errors.As(<-got, &perr) || perr.Value != "boom" {
		t.Errorf("expected PanicError with boom, got %v", perr)
	}
	s := pool.Stats()
	if s.Panics != 1 || s.Failed != 1 {
		t.Errorf("expected 1 panic and 1 failure, got %+v", s)
	}
}

func TestPool_ContextCancellation(t *testing.T) {
	pool := New(1)
	defer pool.Shutdown()

	block := make(chan struct{})
	_ = pool.Submit(context.Background(), func(ctx context.Context) error {
		<-block
		return nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- pool.Submit(ctx, func(ctx context.Context) error { return nil }, nil)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("submit did not return after context cancellation")
	}

	close(block)
	pool.Wait()
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool := New(2)
	pool.Shutdown()
	pool.Shutdown() // Should not panic.

	err := pool.Submit(context.Background(), func(ctx context.Context) error { return nil }, nil)
	if err != ErrPoolShutdown {
		t.Errorf("expected ErrPoolShutdown, got %v", err)
	}
}

func TestBatch_WaitsOnlyForItsTasks(t *testing.T) {
	pool := New(4)
	defer pool.Shutdown()

	block := make(chan struct{})
	defer close(block)
	_ = pool.Submit(context.Background(), func(ctx context.Context) error {
		<-block
		return nil
	}, nil)

	batch := pool.NewBatch()
	results := make([]error, 3)
	for i := range results {
		err := batch.Go(context.Background(), func(ctx context.Context) error {
			if i == 1 {
				return errors.New("second failed")
			}
			return nil
		}, func(err error) { results[i] = err })
		if err != nil {
			t.Fatalf("unexpected submit error: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		batch.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("batch wait blocked on unrelated work")
	}

	if results[0] != nil || results[1] == nil || results[2] != nil {
		t.Errorf("unexpected results %v", results)
	}
}

func TestBatch_SubmitFailureReleasesWait(t *testing.T) {
	pool := New(1)
	pool.Shutdown()

	batch := pool.NewBatch()
	if err := batch.Go(context.Background(), func(ctx context.Context) error { return nil }, nil); err != ErrPoolShutdown {
		t.Fatalf("expected ErrPoolShutdown, got %v", err)
	}
	batch.Wait()
}
