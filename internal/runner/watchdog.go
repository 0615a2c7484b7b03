// Package runner provides small concurrency utilities shared by the
// reference CLI: a bounded-fan-out replay helper built on
// golang.org/x/sync/semaphore, promoting what is otherwise only an
// indirect teacher dependency (golang.org/x/sync) to direct use, the way
// the teacher's own worker-pool code in
// internal/testrunner/prop/prop.go bounds fan-out with a fixed-size
// channel. A semaphore reads more directly than a channel-as-semaphore
// once the caller needs a context-cancelable Acquire, which the CLI's
// batch-replay mode does.
package runner

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// ReplayAll runs replay(seed) for every seed in seeds, at most maxConcurrent
// at a time, and returns each call's bool result in seed order. It stops
// launching new work (but still waits for in-flight calls) once ctx is
// canceled.
func ReplayAll(ctx context.Context, maxConcurrent int64, seeds []uint64, replay func(context.Context, uint64) bool) []bool {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	sem := semaphore.NewWeighted(maxConcurrent)
	results := make([]bool, len(seeds))
	done := make(chan struct{}, len(seeds))

	launched := 0
	for i, seed := range seeds {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		launched++
		go func(i int, seed uint64) {
			defer sem.Release(1)
			results[i] = replay(ctx, seed)
			done <- struct{}{}
		}(i, seed)
	}
	for n := 0; n < launched; n++ {
		<-done
	}
	return results
}
