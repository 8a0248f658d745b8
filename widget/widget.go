package widget

import (
	"image"
	"image/color"
	godraw "image/draw"
	"sync"
	"sync/atomic"

	"9fans.net/dope/draw"
)

// Content paints the inside of a Widget.
// dst is the screen image, r the screen area to paint (already clipped
// to the widget), and origin the widget's top-left corner on screen.
type Content interface {
	Draw(dst *image.RGBA, r draw.Rectangle, origin draw.Point)
}

// ContentFunc adapts a function to Content.
type ContentFunc func(dst *image.RGBA, r draw.Rectangle, origin draw.Point)

func (f ContentFunc) Draw(dst *image.RGBA, r draw.Rectangle, origin draw.Point) {
	f(dst, r, origin)
}

// Picture is Content that shows Src with its origin at the widget's
// top-left corner.
type Picture struct {
	Src image.Image
}

func (p Picture) Draw(dst *image.RGBA, r draw.Rectangle, origin draw.Point) {
	godraw.Draw(dst, r, p.Src, p.Src.Bounds().Min.Add(r.Min.Sub(origin)), godraw.Src)
}

// A Widget is a node of the reference widget tree.
//
// The tree itself (Add, Remove, Move, Raise) must only be changed from
// the server goroutine, the same one that paints. The widget lock
// guards teardown: a widget is never painted after it is destroyed.
//
// A new Widget holds one reference on behalf of its creator.
// When the last reference is dropped the widget is destroyed:
// its children are released and the OnDestroy hook runs.
type Widget struct {
	Name    string
	Fill    color.Color
	Content Content

	mu   sync.Mutex
	dead atomic.Bool // set under mu

	refs      atomic.Int32
	onDestroy func(*Widget)

	parent   *Widget
	children []*Widget
	r        draw.Rectangle
	screen   *Screen
}

var _ Drawable = (*Widget)(nil)

// New returns a widget at r.Min, relative to its future parent,
// of size r.Dx()×r.Dy().
func New(name string, r draw.Rectangle, fill color.Color) *Widget {
	w := &Widget{Name: name, Fill: fill, r: r.Canon()}
	w.refs.Store(1)
	return w
}

func (w *Widget) String() string {
	return w.Name
}

func (w *Widget) Bounds() draw.Rectangle {
	return w.r
}

func (w *Widget) Parent() Drawable {
	if w.parent == nil {
		return nil
	}
	return w.parent
}

func (w *Widget) Lock()   { w.mu.Lock() }
func (w *Widget) Unlock() { w.mu.Unlock() }

func (w *Widget) IncRef() {
	w.refs.Add(1)
}

func (w *Widget) DecRef() {
	if w.refs.Add(-1) == 0 {
		w.destroy()
	}
}

// Refs returns the current reference count.
func (w *Widget) Refs() int {
	return int(w.refs.Load())
}

// Destroyed reports whether the widget has been torn down.
func (w *Widget) Destroyed() bool {
	return w.dead.Load()
}

// OnDestroy sets a hook run once the widget is torn down.
func (w *Widget) OnDestroy(fn func(*Widget)) {
	w.onDestroy = fn
}

func (w *Widget) destroy() {
	w.mu.Lock()
	w.dead.Store(true)
	kids := w.children
	w.children = nil
	w.mu.Unlock()

	for _, c := range kids {
		c.parent = nil
		c.DecRef()
	}
	if w.onDestroy != nil {
		w.onDestroy(w)
	}
}

// Add attaches c as the topmost child of w, taking a reference on it.
func (w *Widget) Add(c *Widget) {
	if c.parent != nil {
		c.parent.Remove(c)
	}
	c.IncRef()
	w.mu.Lock()
	w.children = append(w.children, c)
	w.mu.Unlock()
	c.parent = w
}

// Remove detaches c from w and drops w's reference on it.
func (w *Widget) Remove(c *Widget) {
	w.mu.Lock()
	found := false
	for i, k := range w.children {
		if k == c {
			w.children = append(w.children[:i], w.children[i+1:]...)
			found = true
			break
		}
	}
	w.mu.Unlock()
	if found {
		c.parent = nil
		c.DecRef()
	}
}

// Raise moves c to the top of w's children.
func (w *Widget) Raise(c *Widget) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, k := range w.children {
		if k == c {
			copy(w.children[i:], w.children[i+1:])
			w.children[len(w.children)-1] = c
			return
		}
	}
}

// Children returns a copy of w's children, bottom first.
func (w *Widget) Children() []*Widget {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*Widget(nil), w.children...)
}

// Move places w's top-left corner at p, relative to its parent.
func (w *Widget) Move(p draw.Point) {
	w.r = w.r.Add(p.Sub(w.r.Min))
}

// Resize sets w's size, keeping its position.
func (w *Widget) Resize(width, height int) {
	w.r.Max = w.r.Min.Add(draw.Pt(width, height))
}

// At returns the topmost child of w containing p, given in w's
// coordinates, or nil.
func (w *Widget) At(p draw.Point) *Widget {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := len(w.children) - 1; i >= 0; i-- {
		if c := w.children[i]; p.In(c.r) {
			return c
		}
	}
	return nil
}

// ScreenOrigin returns w's top-left corner in screen coordinates
// and the screen it is shown on, or nil if w is not on a screen.
func (w *Widget) ScreenOrigin() (draw.Point, *Screen) {
	var org draw.Point
	n := w
	for n.parent != nil {
		org = org.Add(n.r.Min)
		n = n.parent
	}
	return org, n.screen
}

// Paint draws r, in w's coordinates, onto the screen.
// The caller holds w's lock.
func (w *Widget) Paint(r draw.Rectangle) {
	if w.dead.Load() {
		return
	}
	org, s := w.ScreenOrigin()
	if s == nil {
		return
	}
	r, ok := draw.RectClip(r, draw.Size(w.r.Dx(), w.r.Dy()))
	if !ok {
		return
	}
	w.paint(s.img, r, org)
	w.paintAbove(s.img, r.Add(org))
	s.addDamage(r.Add(org))
}

// paintAbove repaints, within the screen area sr, the siblings of w
// and of each of its ancestors that are stacked above them.
func (w *Widget) paintAbove(dst *image.RGBA, sr draw.Rectangle) {
	for n := w; n.parent != nil; n = n.parent {
		porg, _ := n.parent.ScreenOrigin()
		above := false
		for _, c := range n.parent.children {
			if c == n {
				above = true
				continue
			}
			if !above || c.dead.Load() {
				continue
			}
			corg := porg.Add(c.r.Min)
			cr, ok := draw.RectClip(sr.Sub(corg), draw.Size(c.r.Dx(), c.r.Dy()))
			if !ok {
				continue
			}
			c.paint(dst, cr, corg)
		}
	}
}

func (w *Widget) paint(dst *image.RGBA, r draw.Rectangle, org draw.Point) {
	sr := r.Add(org)
	if w.Fill != nil {
		godraw.Draw(dst, sr, image.NewUniform(w.Fill), draw.ZP, godraw.Src)
	}
	if w.Content != nil {
		w.Content.Draw(dst, sr, org)
	}
	for _, c := range w.children {
		if c.dead.Load() {
			continue
		}
		cr, ok := draw.RectClip(r.Sub(c.r.Min), draw.Size(c.r.Dx(), c.r.Dy()))
		if !ok {
			continue
		}
		c.paint(dst, cr, org.Add(c.r.Min))
	}
}
