package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of the run spans.
const TracerName = "meeting-analyser"

// Span attribute keys
const (
	AttrRunID      = "run_id"
	AttrStage      = "stage"
	AttrMeetingID  = "meeting_id"
	AttrStatus     = "status"
	AttrRangeStart = "range_start"
	AttrRangeEnd   = "range_end"
	AttrCount      = "count"
)

// Stage names
const (
	StageEvents   = "events"
	StageMeeting  = "meeting"
	StageMetrics  = "metrics"
	StagePersist  = "persist"
	StageAssemble = "assemble"
)

// Tracer starts the spans of a run. It uses the global provider, which is a
// no-op unless the process installs one.
type Tracer struct {
	tracer trace.Tracer
}

func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(TracerName)}
}

// NewTracerWith uses the given provider instead of the global one.
func NewTracerWith(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(TracerName)}
}

// StartRun starts the root span of a run.
func (t *Tracer) StartRun(ctx context.Context, runID, from, to string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "run",
		trace.WithAttributes(
			attribute.String(AttrRunID, runID),
			attribute.String(AttrRangeStart, from),
			attribute.String(AttrRangeEnd, to),
		),
	)
}

// StartStage starts a span for one pipeline stage.
func (t *Tracer) StartStage(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{attribute.String(AttrStage, stage)}, attrs...)
	return t.tracer.Start(ctx, "stage."+stage, trace.WithAttributes(attrs...))
}

// End closes span, recording err if there is one.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
