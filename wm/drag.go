// Package wm moves and resizes windows under the pointer.
//
// Pointer motion arrives much faster than the screen can be redrawn.
// A Drag therefore records only the latest wanted geometry and applies
// it once the previous change has been painted, so a slow redraw makes
// the window jump rather than lag behind a growing backlog.
package wm

import (
	"9fans.net/dope/draw"
	"9fans.net/dope/widget"
)

// Notifier is the part of the display core a Drag needs.
// *server.Core implements it.
type Notifier interface {
	IsPending(d widget.Drawable) bool
	NotifyScreen(r draw.Rectangle) error
}

// A Mode says what a Drag changes.
type Mode int

const (
	// Move follows the pointer with the whole window.
	Move Mode = iota

	// Resize follows the pointer with the bottom-right corner.
	Resize
)

// A Drag tracks one window move or resize, from button press to release.
type Drag struct {
	// MinSize bounds a resize from below. The zero value means 1×1.
	MinSize draw.Point

	core Notifier
	win  *widget.Widget
	mode Mode

	start draw.Point     // pointer at Begin
	orig  draw.Rectangle // window bounds at Begin
	want  draw.Rectangle
	dirty bool // want not yet applied
	moved bool
}

// Begin starts dragging win, with the pointer at p in screen coordinates.
func Begin(core Notifier, win *widget.Widget, mode Mode, p draw.Point) *Drag {
	return &Drag{
		core:  core,
		win:   win,
		mode:  mode,
		start: p,
		orig:  win.Bounds(),
		want:  win.Bounds(),
	}
}

// Window returns the window being dragged.
func (d *Drag) Window() *widget.Widget {
	return d.win
}

// Motion records the pointer at p and applies the new geometry
// unless the previous one is still waiting to be painted.
// It reports whether the window changed.
func (d *Drag) Motion(p draw.Point) (bool, error) {
	delta := p.Sub(d.start)
	want := d.orig
	switch d.mode {
	case Move:
		want = d.orig.Add(delta)
	case Resize:
		least := d.MinSize
		if least.X < 1 {
			least.X = 1
		}
		if least.Y < 1 {
			least.Y = 1
		}
		want.Max = d.orig.Max.Add(delta)
		if want.Dx() < least.X {
			want.Max.X = want.Min.X + least.X
		}
		if want.Dy() < least.Y {
			want.Max.Y = want.Min.Y + least.Y
		}
	}
	if want != d.want {
		d.want = want
		d.dirty = true
	}
	return d.Flush()
}

// Flush applies recorded motion if the window and the screen have no
// pending redraw. It is called once per period while a drag is active.
func (d *Drag) Flush() (bool, error) {
	if !d.dirty || d.busy() {
		return false, nil
	}
	return true, d.apply()
}

// End applies any motion still held back and reports
// whether the window changed at all during the drag.
func (d *Drag) End() (bool, error) {
	var err error
	if d.dirty {
		err = d.apply()
	}
	return d.moved, err
}

func (d *Drag) busy() bool {
	if d.core.IsPending(d.win) {
		return true
	}
	p := d.win.Parent()
	return p != nil && d.core.IsPending(p)
}

func (d *Drag) apply() error {
	old := d.win.Bounds()
	d.win.Move(d.want.Min)
	d.win.Resize(d.want.Dx(), d.want.Dy())
	d.dirty = false
	d.moved = true
	return d.core.NotifyScreen(draw.CombineRect(old, d.want))
}
