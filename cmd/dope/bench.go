package main

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"9fans.net/dope/clock"
	"9fans.net/dope/config"
	"9fans.net/dope/redraw"
	"9fans.net/dope/server"
)

var errEnough = errors.New("period limit reached")

func newBenchCmd() *cobra.Command {
	var (
		geometry string
		duration time.Duration
		windows  int
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the demo desktop without a display and report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := parseGeometry(geometry)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), duration)
			defer cancel()
			rep, err := bench(ctx, cfg, r.Size(), windows, clock.Monotonic(), 0, logger)
			if err != nil {
				return err
			}
			return rep.write(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&geometry, "geometry", "640x480", "Screen size WxH")
	cmd.Flags().DurationVar(&duration, "duration", 2*time.Second, "How long to run")
	cmd.Flags().IntVar(&windows, "windows", 8, "Number of windows")
	return cmd
}

// A report is what a bench run observed.
type report struct {
	Periods int
	Frames  int64
	Stats   redraw.Stats
	Metrics metricdata.ResourceMetrics
}

// bench runs the desktop on clk until ctx is done or, if limit > 0,
// for limit periods.
func bench(ctx context.Context, cfg config.Config, size image.Point, nwin int, clk clock.Clock, limit int, log *slog.Logger) (*report, error) {
	if log == nil {
		log = slog.Default()
	}
	sc, err := cfg.Server()
	if err != nil {
		return nil, err
	}
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	d := newDesktop(size, nwin)
	core, err := server.New(sc, clk, &d.screen.Widget, server.WithLogger(log), server.WithMeterProvider(mp))
	if err != nil {
		return nil, err
	}
	defer core.Close()
	if err := d.attach(core); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go d.produce(ctx)

	rep := new(report)
	err = core.Run(ctx, func(context.Context) error {
		if limit > 0 && rep.Periods >= limit {
			return errEnough
		}
		rep.Periods++
		return d.churn()
	})
	switch {
	case errors.Is(err, errEnough), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
	default:
		return nil, err
	}
	rep.Stats = core.Stats()
	rep.Frames = d.shown.Load()
	if err := reader.Collect(context.Background(), &rep.Metrics); err != nil {
		return nil, errors.Wrap(err, "collecting metrics")
	}
	return rep, nil
}

func (r *report) write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "periods\t%d\n", r.Periods)
	fmt.Fprintf(tw, "video frames\t%d\n", r.Frames)
	fmt.Fprintf(tw, "passes\t%d\n", r.Stats.Passes)
	fmt.Fprintf(tw, "pixels\t%d\n", r.Stats.Pixels)
	fmt.Fprintf(tw, "overruns\t%d\n", r.Stats.Overruns)
	fmt.Fprintf(tw, "overflows\t%d\n", r.Stats.Overflows)
	fmt.Fprintf(tw, "throughput\t%.2f px/µs\n", r.Stats.Throughput)

	var lines []string
	for _, sm := range r.Metrics.ScopeMetrics {
		for _, m := range sm.Metrics {
			lines = append(lines, metricLine(m))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(tw, l)
	}
	return tw.Flush()
}

func metricLine(m metricdata.Metrics) string {
	switch data := m.Data.(type) {
	case metricdata.Sum[int64]:
		var v int64
		for _, dp := range data.DataPoints {
			v += dp.Value
		}
		return fmt.Sprintf("%s\t%d", m.Name, v)
	case metricdata.Gauge[float64]:
		if len(data.DataPoints) > 0 {
			return fmt.Sprintf("%s\t%g", m.Name, data.DataPoints[0].Value)
		}
	case metricdata.Histogram[float64]:
		var n uint64
		var sum float64
		for _, dp := range data.DataPoints {
			n += dp.Count
			sum += dp.Sum
		}
		if n > 0 {
			return fmt.Sprintf("%s\tn=%d mean=%g%s", m.Name, n, sum/float64(n), m.Unit)
		}
		return fmt.Sprintf("%s\tn=0", m.Name)
	}
	return fmt.Sprintf("%s\t-", m.Name)
}
