// Package clock supplies the time source used by the schedulers.
//
// Times are monotonic offsets from an arbitrary epoch, expressed as
// time.Duration, so that elapsed time is a plain subtraction and a
// test can drive the schedulers with a Fake clock.
package clock

import (
	"context"
	"sync"
	"time"
)

// A Clock reports monotonic time and sleeps.
type Clock interface {
	// Now returns the time since the clock's epoch.
	Now() time.Duration

	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// Since returns the time elapsed on c since start.
func Since(c Clock, start time.Duration) time.Duration {
	return c.Now() - start
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// A Fake is a manually advanced clock.
// Sleep advances the clock instead of blocking.
// The zero Fake is ready to use and starts at 0.
type Fake struct {
	mu  sync.Mutex
	now time.Duration
}

// NewFake returns a fake clock reading start.
func NewFake(start time.Duration) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now += d
	f.mu.Unlock()
}

func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d > 0 {
		f.Advance(d)
	}
	return nil
}
