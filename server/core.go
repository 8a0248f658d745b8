// Package server runs the display core: once per period it reads
// input, services the real-time slots and spends what is left of the
// period on queued redraws.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"9fans.net/dope/clock"
	"9fans.net/dope/draw"
	"9fans.net/dope/realtime"
	"9fans.net/dope/redraw"
	"9fans.net/dope/thread"
	"9fans.net/dope/widget"
)

// Config holds the core's settings.
type Config struct {
	Period time.Duration
	Redraw redraw.Config
	Slots  int
}

// DefaultConfig returns a 10ms period, the default redraw settings
// and four real-time slots.
func DefaultConfig() Config {
	return Config{
		Period: 10 * time.Millisecond,
		Redraw: redraw.DefaultConfig(),
		Slots:  realtime.DefaultSlots,
	}
}

// Input handles pending input events at the start of a period.
// It runs without the core locked and may call any Core method.
type Input func(ctx context.Context) error

// A Period reports what one Step did.
type Period struct {
	Realtime bool          // a real-time slot was serviced
	Budget   time.Duration // time left for redraws after input and real-time work
	Redraw   redraw.Pass
	Idle     time.Duration // time slept at the end of the period
}

// A Core owns the redraw scheduler and the real-time slot table.
// Its methods may be called from any goroutine; the schedulers
// themselves only ever run under the core's lock. Paint
// implementations must not call back into the Core.
type Core struct {
	mu    sync.Mutex
	cfg   Config
	clock clock.Clock
	root  widget.Drawable
	redr  *redraw.Scheduler
	rt    *realtime.Table
	log   *slog.Logger
}

// An Option configures a Core.
type Option func(*options)

type options struct {
	log *slog.Logger
	mp  metric.MeterProvider
}

// WithLogger sets the logger for the core and its schedulers.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMeterProvider sets where the schedulers' metrics go.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.mp = mp }
}

// New returns a core drawing onto root, the screen of the widget tree.
func New(cfg Config, clk clock.Clock, root widget.Drawable, opts ...Option) (*Core, error) {
	if cfg.Period <= 0 {
		return nil, errors.Errorf("server: period %v must be positive", cfg.Period)
	}
	if root == nil {
		return nil, errors.New("server: nil screen root")
	}
	o := options{log: slog.Default(), mp: noop.NewMeterProvider()}
	for _, opt := range opts {
		opt(&o)
	}
	redr, err := redraw.New(cfg.Redraw, clk,
		redraw.WithLogger(o.log), redraw.WithMeterProvider(o.mp))
	if err != nil {
		return nil, err
	}
	rt, err := realtime.New(cfg.Slots,
		realtime.WithLogger(o.log), realtime.WithMeterProvider(o.mp))
	if err != nil {
		return nil, err
	}
	return &Core{
		cfg:   cfg,
		clock: clk,
		root:  root,
		redr:  redr,
		rt:    rt,
		log:   o.log.With("component", "server"),
	}, nil
}

// NotifyDirty queues a redraw of r, in d's coordinates.
func (c *Core) NotifyDirty(d widget.Drawable, r draw.Rectangle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.redr.DrawRect(d, r)
}

// NotifyDirtyWhole queues a redraw of all of d.
func (c *Core) NotifyDirtyWhole(d widget.Drawable) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.redr.DrawWhole(d)
}

// NotifyScreen queues a redraw of r in screen coordinates,
// as needed after a window moves or changes size.
func (c *Core) NotifyScreen(r draw.Rectangle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.redr.DrawRect(c.root, r)
}

// IsPending reports whether d has a queued redraw.
func (c *Core) IsPending(d widget.Drawable) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.redr.IsQueued(d)
}

// RunRedrawPass paints queued redraws for about budget.
func (c *Core) RunRedrawPass(budget time.Duration) redraw.Pass {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.redr.Exec(budget)
}

// RegisterPeriodic gives d a real-time slot.
// The hint is the expected interval between d's frames.
func (c *Core) RegisterPeriodic(d widget.Drawable, hint time.Duration) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rt.Register(d, hint)
}

// UnregisterPeriodic frees d's real-time slot.
func (c *Core) UnregisterPeriodic(d widget.Drawable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rt.Unregister(d)
}

// BindCompletionSignal sets the signal released each time d's
// real-time slot has been painted.
func (c *Core) BindCompletionSignal(d widget.Drawable, sig thread.Signal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rt.SetSignal(d, sig)
}

// RunRealtimeTick services the next real-time slot.
func (c *Core) RunRealtimeTick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rt.Tick()
}

// Stats returns the redraw scheduler's counters.
func (c *Core) Stats() redraw.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.redr.Stats()
}

// Step runs one period: input, one real-time tick, then redraws for
// whatever is left of the period, then sleeps out the rest.
// A period overrun by input or real-time work still gets a redraw
// pass with a zero budget, so minimum progress is made.
func (c *Core) Step(ctx context.Context, input Input) (Period, error) {
	var p Period
	start := c.clock.Now()
	if input != nil {
		if err := input(ctx); err != nil {
			return p, errors.Wrap(err, "input")
		}
	}

	c.mu.Lock()
	p.Realtime = c.rt.Tick()
	p.Budget = c.cfg.Period - clock.Since(c.clock, start)
	if p.Budget < 0 {
		p.Budget = 0
	}
	p.Redraw = c.redr.Exec(p.Budget)
	c.mu.Unlock()

	p.Idle = c.cfg.Period - clock.Since(c.clock, start)
	if p.Idle < 0 {
		p.Idle = 0
	}
	return p, c.clock.Sleep(ctx, p.Idle)
}

// Run calls Step until ctx is done or input fails.
func (c *Core) Run(ctx context.Context, input Input) error {
	c.log.Info("core started", "period", c.cfg.Period, "slots", c.rt.Slots())
	var overruns int64
	for {
		p, err := c.Step(ctx, input)
		if p.Redraw.Forced > 0 {
			overruns++
		}
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("core stopping", "overruns", overruns)
				return ctx.Err()
			}
			c.log.Error("core stopped", "err", err)
			return err
		}
	}
}

// Close drops every queued redraw and real-time registration.
func (c *Core) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.redr.Close()
	c.rt.Close()
}
