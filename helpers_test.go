package kire_test

import (
	"context"
	"github.com/denismitr/kire/notification"
	"github.com/pkg/errors"
	"sync"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	// a Tuesday morning
	return &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var errSchedulerDown = errors.New("scheduler down")

// flakyScheduler wraps a real scheduler and fails the nth Schedule call
// (1-based) once failAt is set. Cancel calls from the cancelFailFrom-th on
// fail too.
type flakyScheduler struct {
	notification.Scheduler
	mu             sync.Mutex
	calls          int
	failAt         int
	cancels        int
	cancelFailFrom int
}

func (s *flakyScheduler) Schedule(ctx context.Context, c notification.Content, t notification.Trigger) (string, error) {
	s.mu.Lock()
	s.calls++
	fail := s.failAt > 0 && s.calls == s.failAt
	s.mu.Unlock()

	if fail {
		return "", errSchedulerDown
	}

	return s.Scheduler.Schedule(ctx, c, t)
}

func (s *flakyScheduler) Cancel(ctx context.Context, identifier string) error {
	s.mu.Lock()
	s.cancels++
	fail := s.cancelFailFrom > 0 && s.cancels >= s.cancelFailFrom
	s.mu.Unlock()

	if fail {
		return errSchedulerDown
	}

	return s.Scheduler.Cancel(ctx, identifier)
}
