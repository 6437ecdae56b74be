// Package scheduler drives the blocking client's operations.
//
// [Scheduler.BlockOn] and [Run] start a function on its own goroutine under
// the scheduler's context and park the caller until it finishes:
//
//	n, err := scheduler.Run(scheduler.Shared(), func(ctx context.Context) (int, error) {
//		return fetch(ctx)
//	})
//
// Tasks do not share a bounded pool, so an operation that runs indefinitely,
// such as a notification loop, never holds up other callers.
//
// [Shared] returns one process-wide scheduler that is created on first use and
// lives until the process exits. Tests and embedders that need isolation can
// create their own with [New] and release it with [Scheduler.Close], which
// cancels the task context and waits for running tasks.
package scheduler
