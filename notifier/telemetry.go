package notifier

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/next-trace/scg-health-router/contract/health"
)

const instrumentationName = "github.com/next-trace/scg-health-router/notifier"

// Instrument returns middleware that wraps each dispatch in a span and counts dispatches by
// outcome. Nil providers fall back to the global ones.
func Instrument(tp trace.TracerProvider, mp metric.MeterProvider) (DispatchMiddleware, error) {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	tracer := tp.Tracer(instrumentationName)
	meter := mp.Meter(instrumentationName)

	dispatches, err := meter.Int64Counter(
		"health_router.dispatches",
		metric.WithDescription("Notifications dispatched, by outcome"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create dispatch counter: %w", err)
	}

	return func(next DispatchFunc) DispatchFunc {
		return func(ctx context.Context, channelID, subject, message string) error {
			ctx, span := tracer.Start(ctx, "notifier.dispatch",
				trace.WithSpanKind(trace.SpanKindProducer),
				trace.WithAttributes(
					attribute.String("channel.id", channelID),
					attribute.String("channel.name", health.ChannelName(channelID)),
					attribute.Int("message.bytes", len(message)),
				))
			defer span.End()

			outcome := "ok"

			err := next(ctx, channelID, subject, message)
			if err != nil {
				outcome = "error"

				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}

			dispatches.Add(ctx, 1, metric.WithAttributes(
				attribute.String("channel.name", health.ChannelName(channelID)),
				attribute.String("outcome", outcome),
			))

			return err
		}
	}, nil
}
