package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var (
	// ErrClosed is returned for tasks submitted after Close.
	ErrClosed = errors.New("scheduler closed")

	// ErrTaskPanicked wraps the value recovered from a panicking task.
	ErrTaskPanicked = errors.New("scheduler task panicked")
)

var (
	sharedOnce sync.Once
	shared     *Scheduler
)

// Shared returns the process-wide scheduler, creating it on first use. It is
// never closed.
func Shared() *Scheduler {
	sharedOnce.Do(func() {
		shared = New()
		logrus.WithFields(logrus.Fields{
			"function": "Shared",
		}).Info("Started shared scheduler")
	})
	return shared
}

// Scheduler drives tasks to completion on their own goroutines and owns the
// context they run under. A long-running task never delays other tasks.
type Scheduler struct {
	mu     sync.Mutex
	closed bool

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Int64
}

// New creates a scheduler. Only Shared is meant to live for the whole
// process; schedulers from New should be released with Close.
func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{ctx: ctx, cancel: cancel}
}

// Running returns the number of tasks currently executing.
func (s *Scheduler) Running() int {
	return int(s.running.Load())
}

// BlockOn runs fn and parks the calling goroutine until it returns.
func (s *Scheduler) BlockOn(fn func(ctx context.Context) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		defer s.wg.Done()
		s.running.Add(1)
		defer s.running.Add(-1)
		done <- s.execute(fn)
	}()
	return <-done
}

// Run runs fn on s and returns its result.
func Run[T any](s *Scheduler, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := s.BlockOn(func(ctx context.Context) error {
		v, err := fn(ctx)
		out = v
		return err
	})
	return out, err
}

// Close cancels the task context and waits for running tasks to return.
// Later submissions return ErrClosed.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	logrus.WithFields(logrus.Fields{
		"function": "Scheduler.Close",
	}).Debug("Scheduler stopped")
}

func (s *Scheduler) execute(fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Scheduler.execute",
				"panic":    fmt.Sprint(r),
			}).Error("Recovered panic in scheduler task")
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	return fn(s.ctx)
}
