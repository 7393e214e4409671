package dendro

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// minParallelItems is the work size below which ForEach runs inline;
// goroutine start-up dominates for tiny fan-outs.
const minParallelItems = 64

// ProgressFunc receives the number of finished items out of total. Calls
// are serialized but may come from any worker goroutine.
type ProgressFunc func(done, total int)

// ForEach calls fn(i) for every i in [0, n) and returns once all calls
// have finished (the join barrier). Work is split into contiguous index
// ranges, one per worker, so callers writing to disjoint slots of a shared
// slice need no further synchronization. The first error cancels ctx for
// the remaining items and is returned.
//
// workers <= 1, or fewer than minParallelItems items, runs sequentially on
// the calling goroutine. progress may be nil.
func ForEach(ctx context.Context, n, workers int, fn func(i int) error, progress ProgressFunc) error {
	if n <= 0 {
		return nil
	}
	report := progressReporter(n, progress)

	if workers <= 1 || n < minParallelItems {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(i); err != nil {
				return err
			}
			report()
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	perWorker := (n + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * perWorker
		end := min(start+perWorker, n)
		if start >= n {
			break
		}

		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := fn(i); err != nil {
					return err
				}
				report()
			}
			return nil
		})
	}

	return g.Wait()
}

// progressReporter returns a func that counts one finished item and
// forwards the running total to progress.
func progressReporter(total int, progress ProgressFunc) func() {
	if progress == nil {
		return func() {}
	}
	var mu sync.Mutex
	done := 0
	return func() {
		mu.Lock()
		defer mu.Unlock()
		done++
		progress(done, total)
	}
}
