package main

import (
	"context"
	"image"
	godraw "image/draw"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"9fans.net/dope/clock"
	"9fans.net/dope/config"
	"9fans.net/dope/draw"
	"9fans.net/dope/server"
)

func newRunCmd() *cobra.Command {
	var (
		geometry string
		windows  int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open a window and run the demo desktop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := parseGeometry(geometry)
			if err != nil {
				return err
			}
			var runErr error
			driver.Main(func(s screen.Screen) {
				runErr = shinyMain(cmd.Context(), s, cfg, r, windows)
			})
			return runErr
		},
	}
	cmd.Flags().StringVar(&geometry, "geometry", "800x600", "Window geometry WxH[@X,Y]")
	cmd.Flags().IntVar(&windows, "windows", 5, "Number of windows")
	return cmd
}

// drawlk protects the pixels of the upload buffer.
// In addition to avoiding a technical data race,
// the lock avoids uploading partial updates.
var drawlk sync.Mutex

// coreDone is sent to the window when the core stops.
type coreDone struct{ err error }

// pointer is a mouse event in screen coordinates.
type pointer struct {
	p   draw.Point
	dir mouse.Direction
	btn mouse.Button
}

func shinyMain(ctx context.Context, s screen.Screen, cfg config.Config, r draw.Rectangle, nwin int) error {
	sc, err := cfg.Server()
	if err != nil {
		return err
	}
	w, err := s.NewWindow(&screen.NewWindowOptions{
		Title:  "dope",
		Width:  r.Dx(),
		Height: r.Dy(),
	})
	if err != nil {
		return errors.Wrap(err, "new window")
	}
	defer w.Release()

	b, err := s.NewBuffer(r.Size())
	if err != nil {
		return errors.Wrap(err, "new buffer")
	}
	defer b.Release()

	d := newDesktop(r.Size(), nwin)
	core, err := server.New(sc, clock.Monotonic(), &d.screen.Widget, server.WithLogger(logger))
	if err != nil {
		return err
	}
	defer core.Close()
	if err := d.attach(core); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go d.produce(ctx)

	mice := make(chan pointer, 256)
	input := func(context.Context) error {
		for {
			select {
			case m := <-mice:
				if err := d.pointer(m); err != nil {
					return err
				}
			default:
				if d.drag != nil {
					if _, err := d.drag.Flush(); err != nil {
						return err
					}
				}
				if err := d.churn(); err != nil {
					return err
				}
				flush(w, b, d)
				return nil
			}
		}
	}
	go func() {
		err := core.Run(ctx, input)
		w.Send(coreDone{err})
	}()

	for {
		switch e := w.NextEvent().(type) {
		case func():
			e()

		case coreDone:
			if e.err != nil && ctx.Err() == nil {
				return e.err
			}
			return nil

		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				cancel()
			}

		case key.Event:
			if e.Direction == key.DirPress && (e.Rune == 'q' || e.Code == key.CodeEscape) {
				cancel()
			}

		case mouse.Event:
			select {
			case mice <- pointer{draw.Pt(int(e.X), int(e.Y)), e.Direction, e.Button}:
			default:
				// The server is behind; motion will catch up with the next event.
			}

		case paint.Event:
			drawlk.Lock()
			w.Upload(image.Point{}, b, b.Bounds())
			drawlk.Unlock()
			w.Publish()

		case size.Event:
			if err := core.NotifyScreen(d.screen.Bounds()); err != nil {
				logger.Warn("resize redraw", "err", err)
			}

		case error:
			logger.Error("window", "err", e)
		}
	}
}

// pointer turns one mouse event into drag operations.
func (d *desktop) pointer(m pointer) error {
	switch {
	case m.btn == mouse.ButtonLeft && m.dir == mouse.DirPress:
		return d.press(m.p)
	case m.btn == mouse.ButtonLeft && m.dir == mouse.DirRelease:
		return d.release()
	case m.dir == mouse.DirNone:
		return d.motion(m.p)
	}
	return nil
}

// flush copies the screen damage into the upload buffer and asks the
// window to show it. It runs on the server goroutine between periods.
func flush(w screen.Window, b screen.Buffer, d *desktop) {
	r := d.screen.Damage()
	if r.Empty() {
		return
	}
	drawlk.Lock()
	godraw.Draw(b.RGBA(), r, d.screen.Image(), r.Min, godraw.Src)
	drawlk.Unlock()
	w.Send(func() {
		drawlk.Lock()
		w.Upload(r.Min, b, r)
		drawlk.Unlock()
		w.Publish()
	})
}
