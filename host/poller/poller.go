// Package poller drives a session on a fixed cadence.
//
// The session itself never starts goroutines. A Scheduler owns the single
// goroutine that touches the session: it calls the poll function on every
// tick and runs submitted work (open, send, close) between ticks, so the
// session sees strictly sequential calls.
package poller

import (
	"context"
	"errors"
	"time"

	"gpiolink/protocol"
)

// DefaultInterval is the reference poll cadence
const DefaultInterval = 100 * time.Millisecond

// ErrStopped is returned by Submit after Run has returned
var ErrStopped = errors.New("scheduler stopped")

// PollFunc reads pending events, typically (*session.Session).Poll
type PollFunc func() []protocol.Event

// HandlerFunc consumes the events of one tick
type HandlerFunc func([]protocol.Event)

type request struct {
	fn   func()
	done chan struct{}
}

// Scheduler calls a PollFunc at a fixed interval
type Scheduler struct {
	interval time.Duration
	poll     PollFunc
	handle   HandlerFunc
	requests chan request
	stopped  chan struct{}
}

// New creates a scheduler. A non-positive interval selects DefaultInterval.
func New(interval time.Duration, poll PollFunc, handle HandlerFunc) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		interval: interval,
		poll:     poll,
		handle:   handle,
		requests: make(chan request),
		stopped:  make(chan struct{}),
	}
}

// Interval returns the poll cadence
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Run polls until ctx is cancelled. It must be called at most once.
func (s *Scheduler) Run(ctx context.Context) error {
	defer close(s.stopped)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick()
		case req := <-s.requests:
			req.fn()
			close(req.done)
		}
	}
}

func (s *Scheduler) tick() {
	events := s.poll()
	if len(events) > 0 && s.handle != nil {
		s.handle(events)
	}
}

// Submit runs fn on the scheduler goroutine and waits for it to finish
func (s *Scheduler) Submit(ctx context.Context, fn func()) error {
	req := request{fn: fn, done: make(chan struct{})}

	select {
	case s.requests <- req:
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PollNow runs one poll cycle on the scheduler goroutine without waiting for the tick
func (s *Scheduler) PollNow(ctx context.Context) error {
	return s.Submit(ctx, s.tick)
}
