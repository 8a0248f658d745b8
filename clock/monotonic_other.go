//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package clock

import (
	"context"
	"time"
)

var epoch = time.Now()

type monotonic struct{}

// Monotonic returns a clock based on the runtime's monotonic reading.
func Monotonic() Clock {
	return monotonic{}
}

func (monotonic) Now() time.Duration {
	return time.Since(epoch)
}

func (monotonic) Sleep(ctx context.Context, d time.Duration) error {
	return sleep(ctx, d)
}
