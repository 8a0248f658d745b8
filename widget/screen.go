package widget

import (
	"image"
	"image/color"
	"sync"

	"9fans.net/dope/draw"
)

// A Screen is the root of a widget tree.
// Its children are the windows; it paints into an RGBA image and
// remembers which part of the image changed since the last flush.
type Screen struct {
	Widget

	img *image.RGBA

	dmu    sync.Mutex
	damage draw.Rectangle
}

// NewScreen returns a screen root painting into img,
// cleared to bg wherever no window covers it.
func NewScreen(img *image.RGBA, bg color.Color) *Screen {
	s := &Screen{img: img}
	s.Name = "screen"
	s.Fill = bg
	s.r = draw.Size(img.Bounds().Dx(), img.Bounds().Dy())
	s.refs.Store(1)
	s.screen = s
	return s
}

// Image returns the screen's backing image.
func (s *Screen) Image() *image.RGBA {
	return s.img
}

// Damage returns the screen area painted since the previous call
// and forgets it.
func (s *Screen) Damage() draw.Rectangle {
	s.dmu.Lock()
	defer s.dmu.Unlock()
	r := s.damage
	s.damage = draw.ZR
	return r
}

func (s *Screen) addDamage(r draw.Rectangle) {
	s.dmu.Lock()
	s.damage = draw.CombineRect(s.damage, r)
	s.dmu.Unlock()
}
