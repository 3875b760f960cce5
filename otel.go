package mailsim

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// otelInstrumentation bundles the tracer and instruments used by the
// service. Both tracing and metrics are disabled by default; either can
// be turned on independently.
type otelInstrumentation struct {
	tracingEnabled bool
	metricsEnabled bool

	tracer trace.Tracer

	opDuration metric.Float64Histogram
	opCount    metric.Int64Counter
}

func newOTelInstrumentation(o *options) (*otelInstrumentation, error) {
	inst := &otelInstrumentation{
		tracingEnabled: o.tracingEnabled,
		metricsEnabled: o.metricsEnabled,
	}

	if o.tracingEnabled {
		tp := o.tracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		inst.tracer = tp.Tracer(o.serviceName)
	}

	if o.metricsEnabled {
		mp := o.meterProvider
		if mp == nil {
			mp = otel.GetMeterProvider()
		}
		meter := mp.Meter(o.serviceName)

		var err error
		inst.opDuration, err = meter.Float64Histogram(
			"mailsim.operation.duration",
			metric.WithDescription("Duration of mailbox operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			return nil, fmt.Errorf("create duration histogram: %w", err)
		}

		inst.opCount, err = meter.Int64Counter(
			"mailsim.operation.count",
			metric.WithDescription("Count of mailbox operations"),
		)
		if err != nil {
			return nil, fmt.Errorf("create operation counter: %w", err)
		}
	}

	return inst, nil
}

// startSpan starts a span for an operation when tracing is enabled.
// The returned func ends the span and records the terminal error.
func (i *otelInstrumentation) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if i == nil || !i.tracingEnabled {
		return ctx, func(error) {}
	}

	ctx, span := i.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// recordOp records duration and count for a completed operation.
func (i *otelInstrumentation) recordOp(ctx context.Context, op string, d time.Duration, err error) {
	if i == nil || !i.metricsEnabled {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", op),
		attribute.Bool("error", err != nil),
	)
	i.opDuration.Record(ctx, d.Seconds(), attrs)
	i.opCount.Add(ctx, 1, attrs)
}
