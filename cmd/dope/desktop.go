package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"9fans.net/dope/draw"
	"9fans.net/dope/server"
	"9fans.net/dope/thread"
	"9fans.net/dope/widget"
	"9fans.net/dope/wm"
)

var (
	background = color.RGBA{0x77, 0x77, 0x99, 0xff}
	paleYellow = color.RGBA{0xff, 0xff, 0xea, 0xff}
	titleBlue  = color.RGBA{0x44, 0x66, 0xaa, 0xff}
)

const (
	titleHeight = 12
	videoFPS    = 25
	corner      = 10 // size of the resize handle
)

// A desktop is the demo widget tree: overlapping windows whose bodies
// change every period, and a video window driven by a producer.
type desktop struct {
	screen *widget.Screen
	wins   []*widget.Widget
	bodies []*widget.Widget
	gen    []int

	video *widget.Widget
	frame *frames
	sig   *thread.Sem

	core *server.Core
	rng  *rand.Rand
	drag *wm.Drag

	shown atomic.Int64 // video frames shown
}

func newDesktop(size image.Point, nwin int) *desktop {
	d := &desktop{
		screen: widget.NewScreen(image.NewRGBA(image.Rectangle{Max: size}), background),
		rng:    rand.New(rand.NewSource(1)),
		sig:    thread.NewSignal(),
	}
	w, h := size.X/3, size.Y/3
	for i := 0; i < nwin; i++ {
		off := draw.Pt(20+i*w/4, 20+i*h/4)
		win := d.window(fmt.Sprintf("win%d", i), draw.Rect(off.X, off.Y, off.X+w, off.Y+h))
		body := widget.New(win.Name+".body", draw.Rect(2, titleHeight, w-2, h-2), paleYellow)
		k := i
		body.Content = widget.ContentFunc(func(dst *image.RGBA, r draw.Rectangle, org draw.Point) {
			stripes(dst, r, org, d.gen[k])
		})
		win.Add(body)
		body.DecRef()
		d.wins = append(d.wins, win)
		d.bodies = append(d.bodies, body)
		d.gen = append(d.gen, 0)
	}

	vw, vh := 160, 120
	d.frame = newFrames(vw, vh)
	d.video = d.window("video", draw.Rect(size.X-vw-24, size.Y-vh-titleHeight-24, size.X-20, size.Y-20))
	surface := widget.New("video.surface", draw.Rect(2, titleHeight, vw+2, vh+titleHeight), nil)
	surface.Content = d.frame
	d.video.Add(surface)
	surface.DecRef()
	return d
}

// frames is a double-buffered video surface. The producer draws into
// the back buffer and swaps; painting shows the front one.
type frames struct {
	mu    sync.Mutex
	front *image.RGBA
	back  *image.RGBA
}

func newFrames(w, h int) *frames {
	return &frames{
		front: image.NewRGBA(image.Rect(0, 0, w, h)),
		back:  image.NewRGBA(image.Rect(0, 0, w, h)),
	}
}

func (f *frames) Draw(dst *image.RGBA, r draw.Rectangle, org draw.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	widget.Picture{Src: f.front}.Draw(dst, r, org)
}

func (f *frames) swap() {
	f.mu.Lock()
	f.front, f.back = f.back, f.front
	f.mu.Unlock()
}

// window adds a framed window at r, owned by the screen.
func (d *desktop) window(name string, r draw.Rectangle) *widget.Widget {
	win := widget.New(name, r, titleBlue)
	d.screen.Add(win)
	win.DecRef()
	return win
}

// attach hands the desktop to core: everything is marked dirty and
// the video window gets a real-time slot. The caller starts produce.
func (d *desktop) attach(core *server.Core) error {
	d.core = core
	if err := core.NotifyDirtyWhole(&d.screen.Widget); err != nil {
		return err
	}
	if _, err := core.RegisterPeriodic(d.video, time.Second/videoFPS); err != nil {
		return err
	}
	return core.BindCompletionSignal(d.video, d.sig)
}

// produce writes video frames, each after the previous one was shown.
func (d *desktop) produce(ctx context.Context) {
	for n := 0; ; n++ {
		plasma(d.frame.back, n)
		d.frame.swap()
		if d.sig.Wait(ctx) != nil {
			return
		}
		d.shown.Add(1)
	}
}

// churn changes a few rows of a few windows, as text output would.
func (d *desktop) churn() error {
	for k := 0; k < 3 && len(d.bodies) > 0; k++ {
		i := d.rng.Intn(len(d.bodies))
		d.gen[i]++
		b := d.bodies[i].Bounds()
		y := d.rng.Intn(b.Dy())
		if err := d.core.NotifyDirty(d.bodies[i], draw.Rect(0, y, b.Dx(), y+d.rng.Intn(24)+1)); err != nil {
			return err
		}
	}
	return nil
}

// press starts a drag if p, in screen coordinates, hits a window.
func (d *desktop) press(p draw.Point) error {
	win := d.screen.At(p)
	if win == nil {
		return nil
	}
	d.screen.Raise(win)
	if err := d.core.NotifyScreen(win.Bounds()); err != nil {
		return err
	}
	mode := wm.Move
	if p.In(draw.Rectangle{Min: win.Bounds().Max.Sub(draw.Pt(corner, corner)), Max: win.Bounds().Max}) {
		mode = wm.Resize
	}
	d.drag = wm.Begin(d.core, win, mode, p)
	d.drag.MinSize = draw.Pt(4*corner, titleHeight+corner)
	return nil
}

func (d *desktop) motion(p draw.Point) error {
	if d.drag == nil {
		return nil
	}
	_, err := d.drag.Motion(p)
	return err
}

func (d *desktop) release() error {
	if d.drag == nil {
		return nil
	}
	win := d.drag.Window()
	moved, err := d.drag.End()
	d.drag = nil
	if err != nil || !moved {
		return err
	}
	body := win.Children()[0]
	body.Resize(win.Bounds().Dx()-4, win.Bounds().Dy()-titleHeight-2)
	return d.core.NotifyDirtyWhole(win)
}

// stripes fills r with diagonal stripes whose phase is gen.
func stripes(dst *image.RGBA, r draw.Rectangle, org draw.Point, gen int) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if (x-org.X+y-org.Y+gen)%16 < 2 {
				dst.SetRGBA(x, y, titleBlue)
			}
		}
	}
}

// plasma draws frame n of a moving colour pattern.
func plasma(dst *image.RGBA, n int) {
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.SetRGBA(x, y, color.RGBA{
				R: uint8(x*2 + n*3),
				G: uint8(y*2 - n*2),
				B: uint8(x + y + n),
				A: 0xff,
			})
		}
	}
}
