// Package rfparallel provides the bounded fan-out helpers used for
// tree-block parallelism, (node, predictor) pair parallelism within a
// level, and row-block parallelism during prediction.
package rfparallel

import (
	"context"
	"runtime"
)

// Workers returns n if positive, otherwise a sensible default derived from
// GOMAXPROCS, matching the pack's worker-pool default-sizing convention.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	w := runtime.GOMAXPROCS(0)
	if w > 8 {
		w = 8
	}
	if w < 1 {
		w = 1
	}
	return w
}

// For runs fn(i) for i in [0, n) across at most `workers` goroutines and
// blocks until all calls complete (the join barrier). The index ordering
// of side effects is unspecified; fn must write to disjoint
// state per index, which holds for every caller in this engine (disjoint
// RunSet slots, disjoint per-row output slots, disjoint per-tree node
// arrays).
func For(ctx context.Context, n, workers int, fn func(ctx context.Context, i int)) {
	if n <= 0 {
		return
	}
	workers = Workers(workers)
	if workers > n {
		workers = n
	}

	idxCh := make(chan int, workers)
	done := make(chan struct{})

	for w := 0; w < workers; w++ {
		go func() {
			for {
				select {
				case i, ok := <-idxCh:
					if !ok {
						done <- struct{}{}
						return
					}
					fn(ctx, i)
				case <-ctx.Done():
					done <- struct{}{}
					return
				}
			}
		}()
	}

	go func() {
		for i := 0; i < n; i++ {
			select {
			case idxCh <- i:
			case <-ctx.Done():
				close(idxCh)
				return
			}
		}
		close(idxCh)
	}()

	for w := 0; w < workers; w++ {
		<-done
	}
}

// ForErr is like For but propagates the first error returned by fn. All
// in-flight calls are allowed to finish; no cancellation is attempted
// beyond the context the caller passed in — callers that need early-exit
// should derive a cancellable context and check ctx.Err() inside fn.
func ForErr(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) error) error {
	errs := make([]error, n)
	For(ctx, n, workers, func(ctx context.Context, i int) {
		errs[i] = fn(ctx, i)
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Chunks splits [0, n) into at most `workers` contiguous, roughly
// equal-sized ranges. The forest trainer and the prediction driver do
// not call it; they compute their own tree and row blocks.
func Chunks(n, workers int) [][2]int {
	if n <= 0 {
		return nil
	}
	workers = Workers(workers)
	if workers > n {
		workers = n
	}
	size := (n + workers - 1) / workers
	chunks := make([][2]int, 0, workers)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		chunks = append(chunks, [2]int{start, end})
	}
	return chunks
}
