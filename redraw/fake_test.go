package redraw

import (
	"fmt"

	"9fans.net/dope/draw"
	"9fans.net/dope/widget"
)

// paintLog records paints across drawables in call order.
type paintLog []string

// fake is a Drawable that records what it is asked to paint.
type fake struct {
	name    string
	bounds  draw.Rectangle
	parent  widget.Drawable
	refs    int
	locked  bool
	paints  []draw.Rectangle
	log     *paintLog
	onPaint func(r draw.Rectangle)
}

func newFake(name string, w, h int) *fake {
	return &fake{name: name, bounds: draw.Size(w, h)}
}

func (f *fake) String() string { return f.name }

func (f *fake) Paint(r draw.Rectangle) {
	if !f.locked {
		panic(f.name + ": painted without lock")
	}
	f.paints = append(f.paints, r)
	if f.log != nil {
		*f.log = append(*f.log, fmt.Sprintf("%s %v", f.name, r))
	}
	if f.onPaint != nil {
		f.onPaint(r)
	}
}

func (f *fake) Lock() {
	if f.locked {
		panic(f.name + ": double lock")
	}
	f.locked = true
}

func (f *fake) Unlock() {
	if !f.locked {
		panic(f.name + ": unlock of unlocked")
	}
	f.locked = false
}

func (f *fake) Bounds() draw.Rectangle  { return f.bounds }
func (f *fake) Parent() widget.Drawable { return f.parent }
func (f *fake) IncRef()                 { f.refs++ }
func (f *fake) DecRef()                 { f.refs-- }

// rows returns the total number of rows painted.
func (f *fake) rows() int {
	n := 0
	for _, r := range f.paints {
		n += r.Dy()
	}
	return n
}
