package classify

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys. Frozen, dashboards and alerts key on them.
const (
	AttrKeyword = "zsc.classify.keyword"
	AttrLabel   = "zsc.classify.label"
	AttrMatched = "zsc.classify.matched"
	AttrModel   = "zsc.classify.model"
	AttrOutcome = "zsc.classify.outcome"
)

const scopeName = "zsc.classify"

// startSpan opens the classification span. Providers are looked up at
// call time so telemetry configured after engine construction is still
// picked up.
func startSpan(ctx context.Context) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(scopeName)
	return tracer.Start(ctx, "zsc.classify")
}

// emitObs records the decision on the current span and bumps the decision
// counter. outcome is ok, unmatched or error.
func emitObs(ctx context.Context, out *Outcome, outcome string) {
	meter := otel.GetMeterProvider().Meter(scopeName)
	total, _ := meter.Int64Counter("zsc_classify_decisions_total",
		metric.WithDescription("Total classification decisions"))
	total.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("model", out.Model),
	))

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String(AttrKeyword, out.Keyword),
		attribute.String(AttrLabel, out.Label),
		attribute.Bool(AttrMatched, out.Matched),
		attribute.String(AttrModel, out.Model),
		attribute.String(AttrOutcome, outcome),
	)
}
