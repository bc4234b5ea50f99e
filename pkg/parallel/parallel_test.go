package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPool_RunsAllTasks(t *testing.T) {
	pool, err := NewWorkerPool(4)
	if err != nil {
		t.Fatalf("NewWorkerPool failed: %v", err)
	}

	var count int64
	for i := 0; i < 100; i++ {
		if !pool.Submit(func() { atomic.AddInt64(&count, 1) }) {
			t.Fatal("Submit returned false on open pool")
		}
	}
	pool.Close()

	if count != 100 {
		t.Errorf("Expected 100 tasks to run, got %d", count)
	}
}

func TestWorkerPool_SubmitAfterClose(t *testing.T) {
	pool, err := NewWorkerPool(2)
	if err != nil {
		t.Fatalf("NewWorkerPool failed: %v", err)
	}
	pool.Close()

	if pool.Submit(func() {}) {
		t.Error("Submit should return false after Close")
	}
}

func TestWorkerPool_RecoverPanic(t *testing.T) {
	pool, err := NewWorkerPool(2)
	if err != nil {
		t.Fatalf("NewWorkerPool failed: %v", err)
	}

	var ran int64
	pool.Submit(func() { panic("task panic") })
	pool.Submit(func() { atomic.AddInt64(&ran, 1) })
	pool.Close()

	if ran != 1 {
		t.Error("Expected pool to survive a panicking task")
	}
}

func TestWorkerPool_TooManyWorkers(t *testing.T) {
	_, err := NewWorkerPool(MaxWorkers + 1)
	if !errors.Is(err, ErrTooManyWorkers) {
		t.Errorf("Expected ErrTooManyWorkers, got %v", err)
	}
}

func TestForEach_FillsEverySlot(t *testing.T) {
	const n = 500
	results := make([]int, n)

	err := ForEach(context.Background(), 8, n, func(i int) {
		results[i] = i * 2
	})
	if err != nil {
		t.Fatalf("ForEach failed: %v", err)
	}

	for i, v := range results {
		if v != i*2 {
			t.Fatalf("Slot %d = %d, want %d", i, v, i*2)
		}
	}
}

func TestForEach_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var dispatched int64
	err := ForEach(ctx, 2, 10000, func(i int) {
		if atomic.AddInt64(&dispatched, 1) == 5 {
			cancel()
		}
		time.Sleep(time.Millisecond)
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if dispatched == 10000 {
		t.Error("Expected cancellation to stop dispatch early")
	}
}

func TestForEach_EmptyBatch(t *testing.T) {
	if err := ForEach(context.Background(), 4, 0, func(int) { t.Error("fn called") }); err != nil {
		t.Errorf("ForEach on empty batch failed: %v", err)
	}
}
