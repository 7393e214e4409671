package dendro

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestForEach_VisitsEveryIndexOnce(t *testing.T) {
	for _, n := range []int{0, 1, 63, 64, 1000} {
		for _, workers := range []int{1, 2, 4, 16} {
			t.Run(fmt.Sprintf("n=%d/workers=%d", n, workers), func(t *testing.T) {
				counts := make([]atomic.Int32, n)
				err := ForEach(context.Background(), n, workers, func(i int) error {
					counts[i].Add(1)
					return nil
				}, nil)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				for i := range counts {
					if got := counts[i].Load(); got != 1 {
						t.Errorf("index %d visited %d times, want 1", i, got)
					}
				}
			})
		}
	}
}

func TestForEach_Progress(t *testing.T) {
	const n = 500
	var (
		mu    sync.Mutex
		dones []int
	)
	err := ForEach(context.Background(), n, 8, func(int) error { return nil }, func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if total != n {
			t.Errorf("total: got %d, want %d", total, n)
		}
		dones = append(dones, done)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(dones) != n {
		t.Fatalf("progress calls: got %d, want %d", len(dones), n)
	}
	// Calls are serialized and strictly increasing.
	for i, d := range dones {
		if d != i+1 {
			t.Errorf("call %d: got done=%d, want %d", i, d, i+1)
		}
	}
}

func TestForEach_ErrorStops(t *testing.T) {
	errBoom := errors.New("boom")

	for _, workers := range []int{1, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			var calls atomic.Int32
			err := ForEach(context.Background(), 1000, workers, func(i int) error {
				calls.Add(1)
				if i == 10 {
					return errBoom
				}
				return nil
			}, nil)
			if !errors.Is(err, errBoom) {
				t.Errorf("got %v, want %v", err, errBoom)
			}
			if got := calls.Load(); got >= 1000 {
				t.Errorf("calls: got %d, want fewer than 1000", got)
			}
		})
	}
}

func TestForEach_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 8} {
		var called atomic.Bool
		err := ForEach(ctx, 1000, workers, func(int) error {
			called.Store(true)
			return nil
		}, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: got %v, want %v", workers, err, context.Canceled)
		}
		if called.Load() {
			t.Errorf("workers=%d: fn ran after cancellation", workers)
		}
	}
}
