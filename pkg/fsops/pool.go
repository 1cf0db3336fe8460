package fsops

import (
	"context"
	"sync"
)

// DefaultConcurrency bounds in-flight store calls for batch operations.
const DefaultConcurrency = 4

// runBounded calls fn(i) for every i in [0, n) with at most limit calls in
// flight and waits for all of them. Once ctx is done no new calls start; the
// indexes that never ran are returned in order.
func runBounded(ctx context.Context, n, limit int, fn func(i int)) []int {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	var notStarted []int
	for i := range n {
		// Acquire or bail on cancellation; only release what was acquired.
		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			for j := i; j < n; j++ {
				notStarted = append(notStarted, j)
			}
			break
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i)
		}(i)
	}

	wg.Wait()
	return notStarted
}
