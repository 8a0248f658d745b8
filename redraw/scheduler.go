package redraw

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/VividCortex/ewma"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"9fans.net/dope/clock"
	"9fans.net/dope/draw"
	"9fans.net/dope/widget"
)

// Config tunes a Scheduler.
type Config struct {
	// Capacity bounds the number of distinct pending redraws.
	Capacity int
	// Overflow says what happens when Capacity is exceeded.
	Overflow Overflow

	// MinPixels is painted every pass, budget or not.
	MinPixels int

	// Throughput is the initial estimate in pixels per microsecond;
	// ThroughputFloor is the lowest value the estimate may take.
	Throughput      float64
	ThroughputFloor float64

	// Adaptive enables tuning of the estimate.
	// A pass feeds the estimate only if it painted at least
	// SignificantPixels and ran for at least MinSample.
	// Weight is the share given to each new sample.
	Adaptive          bool
	SignificantPixels int
	MinSample         time.Duration
	Weight            float64
}

// DefaultConfig returns the settings the server runs with.
func DefaultConfig() Config {
	return Config{
		Capacity:          5000,
		Overflow:          DropOldest,
		MinPixels:         1000,
		Throughput:        40,
		ThroughputFloor:   8,
		Adaptive:          true,
		SignificantPixels: 10000,
		MinSample:         50 * time.Microsecond,
		Weight:            0.05,
	}
}

// Validate reports the first setting that New would reject.
func (c Config) Validate() error {
	switch {
	case c.Capacity < 1:
		return errors.Errorf("redraw: capacity %d < 1", c.Capacity)
	case c.MinPixels < 0:
		return errors.Errorf("redraw: negative minimum pixels %d", c.MinPixels)
	case c.ThroughputFloor <= 0:
		return errors.Errorf("redraw: throughput floor %g must be positive", c.ThroughputFloor)
	case c.Throughput < c.ThroughputFloor:
		return errors.Errorf("redraw: throughput %g below floor %g", c.Throughput, c.ThroughputFloor)
	case c.Weight <= 0 || c.Weight > 1:
		return errors.Errorf("redraw: weight %g not in (0,1]", c.Weight)
	}
	return nil
}

// A Pass reports what one call to Exec did.
type Pass struct {
	Pixels  int           // pixels painted, forced ones included
	Forced  int           // pixels painted to guarantee progress
	Elapsed time.Duration // time spent
	Overrun time.Duration // time spent past the budget
}

// Stats are cumulative counters kept by a Scheduler.
type Stats struct {
	Passes     int64
	Pixels     int64
	Overruns   int64 // passes that forced work past the budget
	Overflows  int64 // enqueues that found the queue full
	Throughput float64
}

// A Scheduler paints queued redraws within a time budget.
// It is not safe for concurrent use.
type Scheduler struct {
	cfg   Config
	q     *Queue
	clock clock.Clock
	est   ewma.MovingAverage
	log   *slog.Logger
	mp    metric.MeterProvider
	m     *metrics
	stats Stats
}

// An Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithMeterProvider sets where metrics go. The default discards them.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Scheduler) { s.mp = mp }
}

// New returns a scheduler with an empty queue.
func New(cfg Config, clk clock.Clock, opts ...Option) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{
		cfg:   cfg,
		q:     NewQueue(cfg.Capacity, cfg.Overflow),
		clock: clk,
		log:   slog.Default(),
		mp:    noop.NewMeterProvider(),
	}
	for _, opt := range opts {
		opt(s)
	}
	m, err := newMetrics(s.mp)
	if err != nil {
		return nil, errors.Wrap(err, "redraw: metrics")
	}
	s.m = m

	// A weight w is the smoothing factor 2/(age+1).
	s.est = ewma.NewMovingAverage(2/cfg.Weight - 1)
	s.est.Set(cfg.Throughput)

	s.q.evicted = s.overflowed
	return s, nil
}

func (s *Scheduler) overflowed(victim widget.Drawable, grew bool) {
	s.stats.Overflows++
	s.m.overflows.Add(context.Background(), 1)
	if grew {
		s.log.Debug("redraw: queue grown", "cap", s.q.Cap())
		return
	}
	s.log.Warn("redraw: queue full, dropped oldest redraw", "target", victim, "cap", s.q.Cap())
}

// Queue returns the scheduler's queue.
func (s *Scheduler) Queue() *Queue {
	return s.q
}

// Throughput returns the current estimate in pixels per microsecond.
func (s *Scheduler) Throughput() float64 {
	return s.est.Value()
}

// Stats returns the cumulative counters.
func (s *Scheduler) Stats() Stats {
	st := s.stats
	st.Throughput = s.est.Value()
	return st
}

// Enqueue queues a redraw of r, in target's own coordinates.
func (s *Scheduler) Enqueue(target widget.Drawable, r draw.Rectangle) error {
	err := s.q.Enqueue(target, r)
	if errors.Is(err, ErrQueueOverflow) {
		s.stats.Overflows++
		s.m.overflows.Add(context.Background(), 1)
	}
	return err
}

// DrawRect queues a redraw of r, in d's coordinates, on d's window.
// Nothing is queued if the area is clipped away by d's ancestors.
func (s *Scheduler) DrawRect(d widget.Drawable, r draw.Rectangle) error {
	win, r, ok := widget.Propagate(d, r, widget.Window)
	if !ok {
		return nil
	}
	return s.Enqueue(win, r)
}

// DrawArea is DrawRect for the inclusive corners x1, y1, x2, y2.
func (s *Scheduler) DrawArea(d widget.Drawable, x1, y1, x2, y2 int) error {
	return s.DrawRect(d, draw.Corners(x1, y1, x2, y2))
}

// DrawWhole queues a redraw of all of d.
func (s *Scheduler) DrawWhole(d widget.Drawable) error {
	return s.DrawRect(d, widget.Whole(d))
}

// IsQueued reports whether target has a pending redraw.
func (s *Scheduler) IsQueued(target widget.Drawable) bool {
	return s.q.IsQueued(target)
}

// Exec paints queued redraws for at most budget, then makes sure that
// at least MinPixels were painted even if that overruns the budget.
func (s *Scheduler) Exec(budget time.Duration) Pass {
	var p Pass
	start := s.clock.Now()
	for s.q.Len() > 0 {
		elapsed := s.clock.Now() - start
		if elapsed >= budget {
			break
		}
		allowed := micros(budget-elapsed) * s.est.Value()
		if allowed < 0 {
			// Clock went backwards.
			break
		}
		n := s.q.Consume(int(math.Min(allowed, math.MaxInt32)))
		if n == 0 {
			break
		}
		p.Pixels += n
	}
	s.tune(p.Pixels, s.clock.Now()-start)

	for p.Pixels < s.cfg.MinPixels && s.q.Len() > 0 {
		n := s.q.consume(s.cfg.MinPixels-p.Pixels, true)
		p.Pixels += n
		p.Forced += n
	}

	p.Elapsed = s.clock.Now() - start
	if p.Elapsed > budget {
		p.Overrun = p.Elapsed - budget
	}
	s.stats.Passes++
	s.stats.Pixels += int64(p.Pixels)
	if p.Forced > 0 {
		s.stats.Overruns++
		s.log.Debug("redraw: deadline overrun",
			"budget", budget, "overrun", p.Overrun, "forced", p.Forced, "queued", s.q.Len())
	}
	s.m.pass(context.Background(), p, s.est.Value())
	return p
}

// tune feeds the pixels painted in elapsed into the estimate.
// Short passes and passes with few pixels are too noisy to use.
func (s *Scheduler) tune(pixels int, elapsed time.Duration) {
	if !s.cfg.Adaptive || pixels < s.cfg.SignificantPixels || elapsed <= 0 || elapsed < s.cfg.MinSample {
		return
	}
	s.est.Add(float64(pixels) / micros(elapsed))
	if s.est.Value() < s.cfg.ThroughputFloor {
		s.est.Set(s.cfg.ThroughputFloor)
	}
}

// Close drops every pending redraw.
func (s *Scheduler) Close() {
	s.q.Clear()
}

func micros(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}
