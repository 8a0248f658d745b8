package widget

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"9fans.net/dope/draw"
)

var (
	black = color.RGBA{0, 0, 0, 255}
	red   = color.RGBA{255, 0, 0, 255}
	blue  = color.RGBA{0, 0, 255, 255}
)

// newTree builds
//
//	screen 100×100
//	  win at (10,10) 50×40
//	    box at (5,5) 20×20
//	      dot at (15,15) 10×10 (partly outside box)
func newTree() (s *Screen, win, box, dot *Widget) {
	s = NewScreen(image.NewRGBA(image.Rect(0, 0, 100, 100)), black)
	win = New("win", draw.Rect(10, 10, 60, 50), red)
	box = New("box", draw.Rect(5, 5, 25, 25), blue)
	dot = New("dot", draw.Rect(15, 15, 25, 25), nil)
	s.Add(win)
	win.Add(box)
	box.Add(dot)
	return
}

func TestPropagateWindow(t *testing.T) {
	_, win, box, dot := newTree()

	tests := []struct {
		name string
		d    Drawable
		r    draw.Rectangle
		want draw.Rectangle
		ok   bool
	}{
		{"box whole", box, Whole(box), draw.Rect(5, 5, 25, 25), true},
		{"box part", box, draw.Rect(1, 2, 3, 4), draw.Rect(6, 7, 8, 9), true},
		{"dot clipped by box", dot, Whole(dot), draw.Rect(20, 20, 25, 25), true},
		{"dot outside box", dot, draw.Rect(6, 6, 10, 10), draw.ZR, false},
		{"window itself", win, draw.Rect(-5, -5, 100, 3), draw.Rect(0, 0, 50, 3), true},
		{"empty", box, draw.Rect(3, 3, 3, 9), draw.ZR, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, r, ok := Propagate(tt.d, tt.r, Window)
			require.Equal(t, tt.ok, ok)
			if !ok {
				assert.Nil(t, target)
				return
			}
			assert.Same(t, win, target)
			assert.Equal(t, tt.want, r)
		})
	}
}

func TestPropagateScreen(t *testing.T) {
	s, win, box, _ := newTree()

	target, r, ok := Propagate(box, Whole(box), Root)
	require.True(t, ok)
	assert.Same(t, &s.Widget, target)
	assert.Equal(t, draw.Rect(15, 15, 35, 35), r)

	// A window hanging off the right edge is clipped by the screen.
	win.Move(draw.Pt(80, 0))
	_, r, ok = Propagate(win, Whole(win), Root)
	require.True(t, ok)
	assert.Equal(t, draw.Rect(80, 0, 100, 40), r)
}

func TestPropagateDetached(t *testing.T) {
	w := New("lone", draw.Rect(3, 3, 13, 13), nil)
	target, r, ok := Propagate(w, draw.Rect(-1, -1, 5, 5), Window)
	require.True(t, ok)
	assert.Same(t, w, target)
	assert.Equal(t, draw.Rect(0, 0, 5, 5), r)
}

func TestRefCount(t *testing.T) {
	s, win, box, dot := newTree()
	destroyed := map[string]bool{}
	for _, w := range []*Widget{win, box, dot} {
		w.OnDestroy(func(w *Widget) { destroyed[w.Name] = true })
	}

	// Drop the creators' references; the tree still owns everything.
	win.DecRef()
	box.DecRef()
	dot.DecRef()
	assert.Empty(t, destroyed)

	box.IncRef() // a queue entry, say
	s.Remove(win)
	assert.True(t, destroyed["win"])
	assert.False(t, destroyed["box"], "box still referenced")
	assert.False(t, box.Destroyed())
	assert.Nil(t, box.Parent())

	box.DecRef()
	assert.True(t, destroyed["box"])
	assert.True(t, destroyed["dot"])
	assert.True(t, dot.Destroyed())
}

func TestPaint(t *testing.T) {
	s, win, box, _ := newTree()
	img := s.Image()

	s.Lock()
	s.Paint(Whole(s))
	s.Unlock()
	assert.Equal(t, draw.Rect(0, 0, 100, 100), s.Damage())
	assert.Equal(t, black, img.RGBAAt(0, 0))
	assert.Equal(t, red, img.RGBAAt(10, 10))
	assert.Equal(t, blue, img.RGBAAt(15, 15))
	assert.Equal(t, draw.ZR, s.Damage(), "damage not reset")

	win.Fill = color.RGBA{0, 255, 0, 255}
	win.Lock()
	win.Paint(draw.Rect(0, 0, 2, 2))
	win.Unlock()
	assert.Equal(t, draw.Rect(10, 10, 12, 12), s.Damage())
	assert.Equal(t, win.Fill, img.RGBAAt(11, 11))
	assert.Equal(t, red, img.RGBAAt(12, 12), "painted outside the requested area")

	box.DecRef()
	win.Remove(box)
	box.Lock()
	box.Paint(Whole(box))
	box.Unlock()
	assert.Equal(t, draw.ZR, s.Damage(), "destroyed widget painted")
}

func TestAtRaise(t *testing.T) {
	s, win, _, _ := newTree()
	top := New("top", draw.Rect(30, 30, 70, 70), blue)
	s.Add(top)

	assert.Same(t, top, s.At(draw.Pt(40, 40)))
	assert.Same(t, win, s.At(draw.Pt(12, 12)))
	assert.Nil(t, s.At(draw.Pt(90, 90)))

	s.Raise(win)
	assert.Same(t, win, s.At(draw.Pt(40, 40)))
	assert.Equal(t, []*Widget{top, win}, s.Children())
}

func TestPicture(t *testing.T) {
	s, win, _, _ := newTree()
	src := image.NewRGBA(image.Rect(0, 0, 50, 40))
	src.SetRGBA(3, 4, blue)
	win.Fill = nil
	win.Remove(win.Children()[0])
	win.Content = Picture{Src: src}

	win.Lock()
	win.Paint(Whole(win))
	win.Unlock()
	assert.Equal(t, blue, s.Image().RGBAAt(13, 14))
}

func TestPaintKeepsStacking(t *testing.T) {
	s, win, _, _ := newTree()
	top := New("top", draw.Rect(40, 40, 70, 70), blue)
	s.Add(top)
	s.Lock()
	s.Paint(Whole(s))
	s.Unlock()
	s.Damage()

	// Repainting the lower window must not cover the one above it.
	win.Fill = color.RGBA{0, 255, 0, 255}
	win.Remove(win.Children()[0])
	win.Lock()
	win.Paint(Whole(win))
	win.Unlock()
	assert.Equal(t, win.Fill, s.Image().RGBAAt(20, 20))
	assert.Equal(t, blue, s.Image().RGBAAt(45, 45))
	assert.Equal(t, draw.Rect(10, 10, 60, 50), s.Damage())
}
