package thread

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemLocked(t *testing.T) {
	s := NewSignal()
	assert.False(t, s.TryWait(), "new signal must start locked")

	s.Signal()
	assert.True(t, s.TryWait())
	assert.False(t, s.TryWait(), "one release was consumed twice")
}

func TestSemCollapse(t *testing.T) {
	s := NewSem(false)
	s.Signal()
	s.Signal()
	s.Signal()
	assert.True(t, s.TryWait())
	assert.False(t, s.TryWait())
}

func TestSemWaitCanceled(t *testing.T) {
	s := NewSignal()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)
}

func TestSemProducer(t *testing.T) {
	s := NewSignal()
	const frames = 5

	var mu sync.Mutex
	written := 0
	done := make(chan error, 1)
	go func() {
		for i := 0; i < frames; i++ {
			if err := s.Wait(context.Background()); err != nil {
				done <- err
				return
			}
			mu.Lock()
			written++
			mu.Unlock()
		}
		done <- nil
	}()

	for i := 0; i < frames; i++ {
		// Wait for the producer to consume the previous release.
		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return written == i
		}, time.Second, time.Millisecond)
		s.Signal()
	}
	require.NoError(t, <-done)
	assert.Equal(t, frames, written)
}
