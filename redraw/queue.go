package redraw

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"9fans.net/dope/draw"
	"9fans.net/dope/widget"
)

// ErrQueueOverflow is returned by Enqueue when the queue is full
// and the overflow policy is Reject.
var ErrQueueOverflow = errors.New("redraw queue overflow")

// An Overflow policy says what Enqueue does when the queue is full.
type Overflow int

const (
	// DropOldest evicts the oldest entry that has not started
	// painting and queues the new one.
	DropOldest Overflow = iota

	// Grow doubles the queue.
	Grow

	// Reject refuses the new entry with ErrQueueOverflow.
	Reject
)

var overflowNames = [...]string{
	DropOldest: "drop-oldest",
	Grow:       "grow",
	Reject:     "reject",
}

func (o Overflow) String() string {
	if o >= 0 && int(o) < len(overflowNames) {
		return overflowNames[o]
	}
	return fmt.Sprintf("Overflow(%d)", int(o))
}

// ParseOverflow parses the names printed by Overflow.String.
func ParseOverflow(s string) (Overflow, error) {
	for i, name := range overflowNames {
		if strings.EqualFold(s, name) {
			return Overflow(i), nil
		}
	}
	return 0, errors.Errorf("unknown overflow policy %q", s)
}

// An entry is one pending redraw: an area of a target drawable,
// in the target's coordinates. The entry holds a reference on target.
type entry struct {
	target  widget.Drawable
	r       draw.Rectangle
	started bool // painting has begun; no more merging
}

// Pending describes a queued redraw.
type Pending struct {
	Target widget.Drawable
	Rect   draw.Rectangle
}

// A Queue is a ring of pending redraws, oldest first,
// with at most one mergeable entry per drawable.
//
// A Queue is not safe for concurrent use.
type Queue struct {
	ring []entry // len(ring) == capacity+1
	head int     // next slot to fill
	tail int     // oldest entry

	policy Overflow

	// evicted is called with each overflow victim (nil if the queue grew).
	evicted func(victim widget.Drawable, grew bool)
}

// NewQueue returns a queue holding up to capacity distinct redraws.
func NewQueue(capacity int, policy Overflow) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		ring:   make([]entry, capacity+1),
		policy: policy,
	}
}

func (q *Queue) next(i int) int {
	i++
	if i == len(q.ring) {
		i = 0
	}
	return i
}

// Len returns the number of queued redraws.
func (q *Queue) Len() int {
	return (q.head - q.tail + len(q.ring)) % len(q.ring)
}

// Cap returns the number of redraws the queue can hold.
func (q *Queue) Cap() int {
	return len(q.ring) - 1
}

// Enqueue queues a redraw of r in target's coordinates.
// An empty r is ignored. If target already has an entry that has not
// started painting, r is merged into it and the entry keeps its place
// in line.
func (q *Queue) Enqueue(target widget.Drawable, r draw.Rectangle) error {
	if target == nil || r.Empty() {
		return nil
	}
	for i := q.tail; i != q.head; i = q.next(i) {
		e := &q.ring[i]
		if e.target == target && !e.started {
			e.r = draw.CombineRect(e.r, r)
			return nil
		}
	}
	if q.next(q.head) == q.tail {
		if err := q.overflow(); err != nil {
			return err
		}
	}
	target.IncRef()
	q.ring[q.head] = entry{target: target, r: r}
	q.head = q.next(q.head)
	return nil
}

func (q *Queue) overflow() error {
	switch q.policy {
	case Reject:
		return errors.Wrapf(ErrQueueOverflow, "%d entries queued", q.Len())
	case Grow:
		q.grow()
		if q.evicted != nil {
			q.evicted(nil, true)
		}
		return nil
	}

	// Drop the oldest entry not being painted.
	victim := q.tail
	if q.ring[victim].started && q.Len() > 1 {
		victim = q.next(q.tail)
	}
	e := q.ring[victim]
	if victim != q.tail {
		// Slide the started tail up over the victim.
		q.ring[victim] = q.ring[q.tail]
	}
	q.ring[q.tail] = entry{}
	q.tail = q.next(q.tail)
	e.target.DecRef()
	if q.evicted != nil {
		q.evicted(e.target, false)
	}
	return nil
}

func (q *Queue) grow() {
	ring := make([]entry, 2*q.Cap()+1)
	n := 0
	for i := q.tail; i != q.head; i = q.next(i) {
		ring[n] = q.ring[i]
		n++
	}
	q.ring = ring
	q.tail = 0
	q.head = n
}

// IsQueued reports whether target has a pending redraw,
// including one that is partly painted.
func (q *Queue) IsQueued(target widget.Drawable) bool {
	for i := q.tail; i != q.head; i = q.next(i) {
		if q.ring[i].target == target {
			return true
		}
	}
	return false
}

// Pending returns the queued redraws, oldest first.
func (q *Queue) Pending() []Pending {
	var p []Pending
	for i := q.tail; i != q.head; i = q.next(i) {
		p = append(p, Pending{Target: q.ring[i].target, Rect: q.ring[i].r})
	}
	return p
}

// Clear drops every queued redraw, releasing the references.
func (q *Queue) Clear() {
	for i := q.tail; i != q.head; i = q.next(i) {
		t := q.ring[i].target
		q.ring[i] = entry{}
		t.DecRef()
	}
	q.head = 0
	q.tail = 0
}

// Consume paints as many whole rows of the oldest redraw as fit in
// maxPixels and returns the number of pixels painted.
// It returns 0 when even one row does not fit.
func (q *Queue) Consume(maxPixels int) int {
	return q.consume(maxPixels, false)
}

// consume is Consume, except that with force set it paints
// at least one row.
func (q *Queue) consume(maxPixels int, force bool) int {
	if q.head == q.tail {
		return 0
	}
	e := &q.ring[q.tail]
	w := e.r.Dx()
	h := maxPixels / w
	if h > e.r.Dy() {
		h = e.r.Dy()
	}
	if h < 1 {
		if !force {
			return 0
		}
		h = 1
	}
	t := e.target
	slice := draw.Rect(e.r.Min.X, e.r.Min.Y, e.r.Max.X, e.r.Min.Y+h)
	e.started = true
	e.r.Min.Y += h
	if e.r.Empty() {
		q.ring[q.tail] = entry{}
		q.tail = q.next(q.tail)
		defer t.DecRef()
	}
	paint(t, slice)
	return w * h
}

func paint(t widget.Drawable, r draw.Rectangle) {
	t.Lock()
	defer t.Unlock()
	t.Paint(r)
}
