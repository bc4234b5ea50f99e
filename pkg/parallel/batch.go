package parallel

import "context"

// ForEach runs fn(i) for every i in [0,n) on a bounded pool of workers and
// waits for the batch to finish. Each index owns its own result slot in the
// caller's output, so aggregation never depends on completion order.
//
// Cancellation is checked between dispatches: once ctx is done no further
// indices are dispatched, already-running ones finish, and ctx.Err() is
// returned so the caller can discard partial results.
func ForEach(ctx context.Context, workers, n int, fn func(i int)) error {
	if n == 0 {
		return ctx.Err()
	}

	pool, err := NewWorkerPool(workers)
	if err != nil {
		return err
	}

	canceled := false
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			canceled = true
		default:
		}
		if canceled {
			break
		}

		i := i
		if !pool.Submit(func() { fn(i) }) {
			break
		}
	}

	// Barrier: the batch is not done until every dispatched task returned
	pool.Close()

	return ctx.Err()
}
