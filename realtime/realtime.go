// Package realtime services periodic drawables in fixed round-robin
// slots, bypassing the redraw queue.
//
// A Table is ticked once per server period. Each tick moves to the next
// slot and, if the slot is occupied, paints its drawable straight onto
// the screen root and releases the drawable's completion signal so the
// producer may write the next frame.
package realtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"9fans.net/dope/thread"
	"9fans.net/dope/widget"
)

var (
	// ErrSlotsExhausted is returned by Register when every slot is taken.
	ErrSlotsExhausted = errors.New("no free real-time slot")

	// ErrNotRegistered is returned for a drawable that holds no slot.
	ErrNotRegistered = errors.New("drawable not registered for real-time service")
)

// DefaultSlots is the slot count the server runs with.
const DefaultSlots = 4

type slot struct {
	d    widget.Drawable
	sig  thread.Signal
	hint time.Duration
}

// A Table is a fixed set of real-time slots.
// It is not safe for concurrent use.
type Table struct {
	slots []slot
	cur   int

	log   *slog.Logger
	mp    metric.MeterProvider
	ticks metric.Int64Counter
}

// An Option configures a Table.
type Option func(*Table)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Table) { t.log = l }
}

// WithMeterProvider sets where metrics go. The default discards them.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(t *Table) { t.mp = mp }
}

// New returns a table of n empty slots.
func New(n int, opts ...Option) (*Table, error) {
	if n < 1 {
		return nil, errors.Errorf("realtime: slot count %d < 1", n)
	}
	t := &Table{
		slots: make([]slot, n),
		log:   slog.Default(),
		mp:    noop.NewMeterProvider(),
	}
	for _, opt := range opts {
		opt(t)
	}
	var err error
	t.ticks, err = t.mp.Meter("9fans.net/dope/realtime").Int64Counter("dope.realtime.ticks",
		metric.WithDescription("Real-time ticks, by whether the slot was occupied."))
	if err != nil {
		return nil, errors.Wrap(err, "realtime: metrics")
	}
	return t, nil
}

// Slots returns the number of slots.
func (t *Table) Slots() int {
	return len(t.slots)
}

// Lookup returns the slot held by d.
func (t *Table) Lookup(d widget.Drawable) (int, bool) {
	if d == nil {
		return -1, false
	}
	for i := range t.slots {
		if t.slots[i].d == d {
			return i, true
		}
	}
	return -1, false
}

// Register gives d the first free slot and takes a reference on it.
// The hint is the producer's expected frame interval; it is kept for
// diagnostics only. A drawable already registered keeps its slot.
func (t *Table) Register(d widget.Drawable, hint time.Duration) (int, error) {
	if d == nil {
		return -1, errors.New("realtime: register nil drawable")
	}
	if i, ok := t.Lookup(d); ok {
		t.slots[i].hint = hint
		return i, nil
	}
	for i := range t.slots {
		if t.slots[i].d == nil {
			d.IncRef()
			t.slots[i] = slot{d: d, hint: hint}
			t.log.Debug("realtime: registered", "slot", i, "drawable", d, "hint", hint)
			return i, nil
		}
	}
	return -1, errors.Wrapf(ErrSlotsExhausted, "%d slots", len(t.slots))
}

// Unregister frees d's slot, dropping the reference and the signal.
// It does nothing if d holds no slot.
func (t *Table) Unregister(d widget.Drawable) {
	i, ok := t.Lookup(d)
	if !ok {
		return
	}
	t.slots[i] = slot{}
	d.DecRef()
	t.log.Debug("realtime: unregistered", "slot", i, "drawable", d)
}

// Close unregisters every drawable.
func (t *Table) Close() {
	for _, s := range t.slots {
		if s.d != nil {
			t.Unregister(s.d)
		}
	}
	t.cur = 0
}

// SetSignal sets the signal released after each of d's ticks.
// A nil sig removes it.
func (t *Table) SetSignal(d widget.Drawable, sig thread.Signal) error {
	i, ok := t.Lookup(d)
	if !ok {
		return errors.Wrapf(ErrNotRegistered, "%v", d)
	}
	t.slots[i].sig = sig
	return nil
}

// Tick services the current slot and moves to the next.
// It reports whether the slot was occupied.
func (t *Table) Tick() bool {
	s := t.slots[t.cur]
	i := t.cur
	t.cur = (t.cur + 1) % len(t.slots)

	t.ticks.Add(context.Background(), 1, metric.WithAttributes(attribute.Bool("occupied", s.d != nil)))
	if s.d == nil {
		return false
	}
	if err := paintScreen(s.d); err != nil {
		t.log.Error("realtime: paint failed", "slot", i, "drawable", s.d, "err", err)
	}
	if s.sig != nil {
		s.sig.Signal()
	}
	return true
}

// paintScreen paints all of d directly on the screen root.
func paintScreen(d widget.Drawable) (err error) {
	root, r, ok := widget.Propagate(d, widget.Whole(d), widget.Root)
	if !ok {
		return nil
	}
	defer func() {
		if e := recover(); e != nil {
			err = errors.Errorf("panic: %v", e)
		}
	}()
	root.Lock()
	defer root.Unlock()
	root.Paint(r)
	return nil
}
