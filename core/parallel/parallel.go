// Package parallel runs range-chunked loops across CPU cores.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Parallelize divides [0, items) into one contiguous chunk per CPU core and
// runs fn(start, end) for each chunk concurrently. The first error cancels the
// remaining chunks that have not started and is returned.
//
// fn must only write to state owned by its own range; callers that need
// ordered output preallocate a slot per item.
func Parallelize(ctx context.Context, items int, fn func(start, end int) error) error {
	if items <= 0 {
		return nil
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		s, e := start, end
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(s, e)
		})
	}
	return g.Wait()
}

// ParallelizeWithThreshold runs fn sequentially over the whole range when
// items <= threshold, and falls back to Parallelize otherwise.
func ParallelizeWithThreshold(ctx context.Context, items, threshold int, fn func(start, end int) error) error {
	if items <= threshold {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(0, items)
	}
	return Parallelize(ctx, items, fn)
}
