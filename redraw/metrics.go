package redraw

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

const scope = "9fans.net/dope/redraw"

type metrics struct {
	passes     metric.Int64Counter
	pixels     metric.Int64Counter
	overruns   metric.Int64Counter
	overflows  metric.Int64Counter
	overrun    metric.Float64Histogram
	throughput metric.Float64Gauge
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	m := mp.Meter(scope)
	var (
		ms  metrics
		err error
	)
	if ms.passes, err = m.Int64Counter("dope.redraw.passes",
		metric.WithDescription("Redraw passes run.")); err != nil {
		return nil, err
	}
	if ms.pixels, err = m.Int64Counter("dope.redraw.pixels",
		metric.WithDescription("Pixels painted by the redraw scheduler."),
		metric.WithUnit("{pixel}")); err != nil {
		return nil, err
	}
	if ms.overruns, err = m.Int64Counter("dope.redraw.overruns",
		metric.WithDescription("Passes that painted past their budget to guarantee progress.")); err != nil {
		return nil, err
	}
	if ms.overflows, err = m.Int64Counter("dope.redraw.overflows",
		metric.WithDescription("Enqueues that found the redraw queue full.")); err != nil {
		return nil, err
	}
	if ms.overrun, err = m.Float64Histogram("dope.redraw.overrun",
		metric.WithDescription("Time spent past the budget by forced passes."),
		metric.WithUnit("us")); err != nil {
		return nil, err
	}
	if ms.throughput, err = m.Float64Gauge("dope.redraw.throughput",
		metric.WithDescription("Estimated paint throughput."),
		metric.WithUnit("{pixel}/us")); err != nil {
		return nil, err
	}
	return &ms, nil
}

func (m *metrics) pass(ctx context.Context, p Pass, throughput float64) {
	m.passes.Add(ctx, 1)
	m.pixels.Add(ctx, int64(p.Pixels))
	m.throughput.Record(ctx, throughput)
	if p.Forced > 0 {
		m.overruns.Add(ctx, 1)
		m.overrun.Record(ctx, float64(p.Overrun.Microseconds()))
	}
}
