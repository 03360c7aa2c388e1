// Package observability provides OpenTelemetry tracing of conversion stages
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ajitpratap0/dta2parquet"

// Span wraps a trace span and batches its attributes until End
type Span struct {
	span       trace.Span
	startTime  time.Time
	attributes []attribute.KeyValue
}

// SetAttribute adds an attribute to the span
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	s.attributes = append(s.attributes, attr)
}

// Fail marks the span as failed
func (s *Span) Fail(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// Duration returns the time since the span started
func (s *Span) Duration() time.Duration {
	return time.Since(s.startTime)
}

// End ends the span
func (s *Span) End() {
	if len(s.attributes) > 0 {
		s.span.SetAttributes(s.attributes...)
	}
	s.span.End()
}

// StageTracer traces the stages of a conversion
type StageTracer struct {
	tracer trace.Tracer
}

// NewStageTracer creates a stage tracer. A nil tracer uses the global provider,
// which is a no-op until InitTracing is called.
func NewStageTracer(tracer trace.Tracer) *StageTracer {
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	return &StageTracer{tracer: tracer}
}

// Start starts a span for stage
func (st *StageTracer) Start(ctx context.Context, stage string) (context.Context, *Span) {
	ctx, span := st.tracer.Start(ctx, stage)
	return ctx, &Span{span: span, startTime: time.Now()}
}

// Trace runs fn inside a span named stage and records its outcome
func (st *StageTracer) Trace(ctx context.Context, stage string, fn func(ctx context.Context, span *Span) error) error {
	ctx, span := st.Start(ctx, stage)
	defer span.End()

	err := fn(ctx, span)
	if err != nil {
		span.Fail(err)
	} else {
		span.span.SetStatus(codes.Ok, "")
	}
	return err
}
