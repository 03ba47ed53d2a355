package scheduler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// tickInterval mirrors the ~100ms fixed timestep the original tool's
// bevy_ecs systems ran at (task_plugin.rs::FixedTimestep::step(0.1)).
const tickInterval = 100 * time.Millisecond

// TaskFunc executes one task node and reports its outcome.
type TaskFunc func(ctx context.Context, node *Node) error

// Run drives every node in f to completion, executing ready nodes
// concurrently up to maxConcurrent at a time. A task whose dependency
// failed is never made Ready; it's instead cascaded to Failed by
// propagateFailures and reported back to the caller as skipped. Run
// returns once every node is either Done or Failed.
func Run(ctx context.Context, f *Forest, maxConcurrent int64, exec TaskFunc) (skipped []string, err error) {
	sem := semaphore.NewWeighted(maxConcurrent)

	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		mu.Lock()
		ready := f.ready()
		for _, id := range ready {
			if terr := f.transition(id, Pending, Ready); terr != nil {
				mu.Unlock()
				return nil, terr
			}
		}
		mu.Unlock()

		for _, id := range ready {
			id := id
			if err := sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				break
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)

				mu.Lock()
				node := f.Nodes[id]
				_ = f.transition(id, Ready, Running)
				mu.Unlock()

				taskErr := exec(ctx, node)

				mu.Lock()
				if taskErr != nil {
					_ = f.transition(id, Running, Failed)
					if firstErr == nil {
						firstErr = taskErr
					}
				} else {
					_ = f.transition(id, Running, Done)
				}
				mu.Unlock()
			}()
		}

		mu.Lock()
		f.propagateFailures()
		done := f.allTerminal()
		mu.Unlock()
		if done {
			break
		}

		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	wg.Wait()

	for id, n := range f.Nodes {
		if n.Skipped {
			skipped = append(skipped, id)
		}
	}

	return skipped, firstErr
}
