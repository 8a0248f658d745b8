//go:build linux || darwin || freebsd || netbsd || openbsd

package clock

import (
	"context"
	"time"

	"golang.org/x/sys/unix"
)

type monotonic struct{}

// Monotonic returns a clock reading CLOCK_MONOTONIC.
// It does not jump when the wall clock is set.
func Monotonic() Clock {
	return monotonic{}
}

func (monotonic) Now() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		// Cannot happen for CLOCK_MONOTONIC on the listed systems.
		panic("clock: clock_gettime: " + err.Error())
	}
	return time.Duration(ts.Nano())
}

func (monotonic) Sleep(ctx context.Context, d time.Duration) error {
	return sleep(ctx, d)
}
