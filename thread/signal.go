// Package thread provides the synchronisation primitive shared between
// the server and producer goroutines.
package thread

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// A Signal paces a producer against the server.
// The producer calls Wait before writing its next frame;
// the server calls Signal once the previous frame is on screen.
type Signal interface {
	Wait(ctx context.Context) error
	Signal()
}

// A Sem is a binary semaphore.
// Signal releases it, and one Wait consumes the release.
// Repeated Signals without an intervening Wait collapse into one.
// Only one goroutine may call Signal.
type Sem struct {
	w *semaphore.Weighted
}

var _ Signal = (*Sem)(nil)

// NewSem returns a binary semaphore.
// A locked semaphore blocks the first Wait until Signal is called.
func NewSem(locked bool) *Sem {
	s := &Sem{w: semaphore.NewWeighted(1)}
	if locked {
		s.w.TryAcquire(1)
	}
	return s
}

// NewSignal returns a locked semaphore, the usual state
// for a frame producer that must wait for the first tick.
func NewSignal() *Sem {
	return NewSem(true)
}

// Wait blocks until the semaphore is released or ctx is done.
// On return with a nil error the semaphore is locked again.
func (s *Sem) Wait(ctx context.Context) error {
	return s.w.Acquire(ctx, 1)
}

// TryWait reports whether the semaphore was released,
// consuming the release if so.
func (s *Sem) TryWait() bool {
	return s.w.TryAcquire(1)
}

// Signal releases the semaphore.
func (s *Sem) Signal() {
	// Take it if free so the Release below never exceeds the weight.
	s.w.TryAcquire(1)
	s.w.Release(1)
}
