package redraw

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"9fans.net/dope/clock"
	"9fans.net/dope/draw"
	"9fans.net/dope/widget"
)

func newScheduler(t *testing.T, cfg Config, opts ...Option) (*Scheduler, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(0)
	s, err := New(cfg, clk, opts...)
	require.NoError(t, err)
	return s, clk
}

// costs makes every paint on f advance clk as if painting ran at
// rate pixels per microsecond.
func costs(f *fake, clk *clock.Fake, rate float64) {
	f.onPaint = func(r draw.Rectangle) {
		clk.Advance(time.Duration(float64(draw.Area(r)) / rate * float64(time.Microsecond)))
	}
}

func TestPartialPass(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Throughput = 4
	cfg.ThroughputFloor = 1
	cfg.MinPixels = 0
	s, clk := newScheduler(t, cfg)

	w := newFake("w", 10, 10)
	costs(w, clk, 4)
	require.NoError(t, s.DrawArea(w, 0, 0, 9, 9))

	p := s.Exec(10 * time.Microsecond)
	assert.Equal(t, 40, p.Pixels)
	assert.Equal(t, 4, w.rows())
	assert.True(t, s.IsQueued(w))
	assert.Equal(t, []Pending{{Target: w, Rect: draw.Corners(0, 4, 9, 9)}}, s.Queue().Pending())
	assert.Equal(t, 1, w.refs)
}

func TestFIFOWithMerge(t *testing.T) {
	s, _ := newScheduler(t, DefaultConfig())
	var log paintLog
	a, b := newFake("a", 100, 100), newFake("b", 100, 100)
	a.log, b.log = &log, &log

	require.NoError(t, s.Enqueue(a, draw.Rect(0, 0, 10, 10)))
	require.NoError(t, s.Enqueue(b, draw.Rect(0, 0, 10, 10)))
	require.NoError(t, s.Enqueue(a, draw.Rect(50, 50, 60, 60)))

	s.Exec(time.Second)
	assert.Equal(t, paintLog{
		"a (0,0)-(60,60)",
		"b (0,0)-(10,10)",
	}, log)
	assert.Equal(t, 0, s.Queue().Len())
	assert.Equal(t, 0, a.refs)
	assert.Equal(t, 0, b.refs)
}

func TestMinimumProgress(t *testing.T) {
	tests := []struct {
		name    string
		sizes   []draw.Point
		painted int
		left    int
	}{
		{"large", []draw.Point{{100, 100}}, 1000, 1},
		{"small queue", []draw.Point{{10, 5}}, 50, 0},
		{"several small", []draw.Point{{10, 10}, {10, 10}, {10, 10}}, 300, 0},
		{"wide row", []draw.Point{{2000, 3}}, 2000, 1},
		{"shortfall spans entries", []draw.Point{{10, 95}, {10, 10}}, 1000, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newScheduler(t, DefaultConfig())
			for i, sz := range tt.sizes {
				f := newFake(string(rune('a'+i)), sz.X, sz.Y)
				require.NoError(t, s.Enqueue(f, draw.Size(sz.X, sz.Y)))
			}
			p := s.Exec(0)
			assert.Equal(t, tt.painted, p.Pixels)
			assert.Equal(t, tt.painted, p.Forced)
			assert.Equal(t, tt.left, s.Queue().Len())
			assert.Equal(t, int64(1), s.Stats().Overruns)
		})
	}
}

func TestNoForcedWorkWhenEmpty(t *testing.T) {
	s, _ := newScheduler(t, DefaultConfig())
	p := s.Exec(0)
	assert.Zero(t, p.Pixels)
	assert.Zero(t, s.Stats().Overruns)
	assert.Equal(t, int64(1), s.Stats().Passes)
}

func TestOverrunDuration(t *testing.T) {
	s, clk := newScheduler(t, DefaultConfig())
	f := newFake("f", 100, 100)
	costs(f, clk, 10)
	require.NoError(t, s.Enqueue(f, draw.Size(100, 100)))

	p := s.Exec(0)
	assert.Equal(t, 1000, p.Forced)
	assert.Equal(t, 100*time.Microsecond, p.Elapsed)
	assert.Equal(t, 100*time.Microsecond, p.Overrun)
}

func TestTuning(t *testing.T) {
	s, clk := newScheduler(t, DefaultConfig())
	f := newFake("f", 200, 100)
	costs(f, clk, 20)
	require.NoError(t, s.Enqueue(f, draw.Size(200, 100)))

	p := s.Exec(time.Millisecond)
	require.Equal(t, 20000, p.Pixels)
	assert.InDelta(t, 0.95*40+0.05*20, s.Throughput(), 1e-9)
}

func TestTuningFloor(t *testing.T) {
	s, clk := newScheduler(t, DefaultConfig())
	f := newFake("f", 200, 100)
	// A broken timer makes every pass look ten thousand times slower.
	costs(f, clk, 0.002)
	for i := 0; i < 100; i++ {
		require.NoError(t, s.Enqueue(f, draw.Size(200, 100)))
		s.Exec(time.Second)
	}
	assert.Equal(t, 8.0, s.Throughput())
	assert.Equal(t, 8.0, s.Stats().Throughput)
}

func TestTuningIgnoresNoise(t *testing.T) {
	tests := []struct {
		name string
		cfg  func(*Config)
		w, h int
		rate float64
	}{
		{"not adaptive", func(c *Config) { c.Adaptive = false }, 200, 100, 20},
		{"too few pixels", func(c *Config) {}, 50, 100, 20},
		{"too short", func(c *Config) {}, 200, 100, 2000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.cfg(&cfg)
			s, clk := newScheduler(t, cfg)
			f := newFake("f", tt.w, tt.h)
			costs(f, clk, tt.rate)
			require.NoError(t, s.Enqueue(f, draw.Size(tt.w, tt.h)))
			s.Exec(time.Second)
			assert.Equal(t, 40.0, s.Throughput())
		})
	}
}

func TestReferenceSafety(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinPixels = 0
	s, _ := newScheduler(t, cfg)

	w := widget.New("w", draw.Size(10, 10), nil)
	destroyed := false
	w.OnDestroy(func(*widget.Widget) { destroyed = true })

	require.NoError(t, s.DrawWhole(w))
	assert.Equal(t, 2, w.Refs())

	w.DecRef() // the last owner outside the queue lets go
	assert.False(t, destroyed)
	assert.Equal(t, 1, w.Refs())

	s.Queue().Consume(50)
	assert.False(t, destroyed, "destroyed while still queued")

	s.Exec(time.Second)
	assert.True(t, destroyed)
	assert.False(t, s.IsQueued(w))
}

func TestCloseReleases(t *testing.T) {
	s, _ := newScheduler(t, DefaultConfig())
	w := widget.New("w", draw.Size(10, 10), nil)
	require.NoError(t, s.DrawWhole(w))
	w.DecRef()
	s.Close()
	assert.True(t, w.Destroyed())
}

func TestDrawRectClipped(t *testing.T) {
	s, _ := newScheduler(t, DefaultConfig())
	root := newFake("root", 100, 100)
	win := newFake("win", 50, 50)
	win.bounds = draw.Rect(10, 10, 60, 60)
	win.parent = root
	child := newFake("child", 20, 20)
	child.bounds = draw.Rect(40, 40, 60, 60)
	child.parent = win

	// Only the top-left 10×10 of child lies inside win.
	require.NoError(t, s.DrawWhole(child))
	assert.Equal(t, []Pending{{Target: win, Rect: draw.Rect(40, 40, 50, 50)}}, s.Queue().Pending())
	assert.Equal(t, 1, win.refs)
	assert.Equal(t, 0, child.refs)

	// Entirely outside: nothing queued, not even an empty entry.
	require.NoError(t, s.DrawRect(child, draw.Rect(15, 15, 20, 20)))
	assert.Equal(t, 1, s.Queue().Len())
}

func TestRejectCounted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capacity = 1
	cfg.Overflow = Reject
	s, _ := newScheduler(t, cfg)
	require.NoError(t, s.Enqueue(newFake("a", 1, 1), draw.Size(1, 1)))
	require.ErrorIs(t, s.Enqueue(newFake("b", 1, 1), draw.Size(1, 1)), ErrQueueOverflow)
	assert.Equal(t, int64(1), s.Stats().Overflows)
}

func TestConfigValidate(t *testing.T) {
	for name, mod := range map[string]func(*Config){
		"capacity":   func(c *Config) { c.Capacity = 0 },
		"min pixels": func(c *Config) { c.MinPixels = -1 },
		"floor":      func(c *Config) { c.ThroughputFloor = 0 },
		"below":      func(c *Config) { c.Throughput = 1 },
		"weight":     func(c *Config) { c.Weight = 1.5 },
	} {
		cfg := DefaultConfig()
		mod(&cfg)
		_, err := New(cfg, clock.NewFake(0))
		assert.Error(t, err, name)
	}
}

func TestMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	cfg := DefaultConfig()
	cfg.Capacity = 1
	s, _ := newScheduler(t, cfg, WithMeterProvider(mp))

	require.NoError(t, s.Enqueue(newFake("a", 100, 100), draw.Size(100, 100)))
	require.NoError(t, s.Enqueue(newFake("b", 100, 100), draw.Size(100, 100))) // evicts a
	s.Exec(0)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	assert.Equal(t, int64(1), sum(t, rm, "dope.redraw.passes"))
	assert.Equal(t, int64(1000), sum(t, rm, "dope.redraw.pixels"))
	assert.Equal(t, int64(1), sum(t, rm, "dope.redraw.overruns"))
	assert.Equal(t, int64(1), sum(t, rm, "dope.redraw.overflows"))
}

func sum(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			data, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is %T", name, m.Data)
			var v int64
			for _, dp := range data.DataPoints {
				v += dp.Value
			}
			return v
		}
	}
	t.Fatalf("metric %s not recorded", name)
	return 0
}
