// Package widget defines what the display pipeline needs from a widget
// and provides a small reference widget tree.
//
// The pipeline never looks inside a widget. It asks a Drawable to paint
// part of itself, to lock around that paint, to report its geometry and
// parent, and to count references while it sits in a queue.
package widget

import "9fans.net/dope/draw"

// A Drawable is anything the redraw pipeline can paint.
type Drawable interface {
	// Paint draws r, expressed in the drawable's own coordinates.
	// It is called between Lock and Unlock.
	Paint(r draw.Rectangle)

	// Lock and Unlock bracket a single Paint so that a drawable
	// being torn down is never painted after teardown.
	Lock()
	Unlock()

	// Bounds returns the drawable's position relative to its parent
	// (Min) and its size.
	Bounds() draw.Rectangle

	// Parent returns the enclosing drawable, or nil for the screen
	// root and for drawables not attached to any tree.
	Parent() Drawable

	// IncRef and DecRef count strong references.
	// A drawable may be destroyed when its count reaches zero.
	IncRef()
	DecRef()
}

// A Level says how far Propagate climbs.
type Level int

const (
	// Window stops at the drawable's window: the node whose parent
	// is the screen root.
	Window Level = iota

	// Root climbs to the screen root.
	Root
)

// Propagate translates r from d's coordinates into those of d's window
// (or of the screen root), clipping to the extent of every ancestor on
// the way. It returns the drawable whose coordinate space the result is
// in. When nothing of r remains visible, Propagate returns false and the
// caller must not paint or queue anything.
func Propagate(d Drawable, r draw.Rectangle, to Level) (Drawable, draw.Rectangle, bool) {
	if d == nil || r.Empty() {
		return nil, draw.ZR, false
	}
	var ok bool
	for {
		p := d.Parent()
		if p == nil || (to == Window && p.Parent() == nil) {
			break
		}
		r, ok = draw.RectClip(r.Add(d.Bounds().Min), extent(p))
		if !ok {
			return nil, draw.ZR, false
		}
		d = p
	}
	r, ok = draw.RectClip(r, extent(d))
	if !ok {
		return nil, draw.ZR, false
	}
	return d, r, true
}

// Whole returns d's full area in its own coordinates.
func Whole(d Drawable) draw.Rectangle {
	return extent(d)
}

func extent(d Drawable) draw.Rectangle {
	b := d.Bounds()
	return draw.Size(b.Dx(), b.Dy())
}
