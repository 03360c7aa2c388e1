package observability

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer() (*StageTracer, *tracetest.SpanRecorder) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	return NewStageTracer(tp.Tracer("test")), rec
}

func TestStageTracerSuccess(t *testing.T) {
	st, rec := newRecordingTracer()

	err := st.Trace(context.Background(), "decode", func(ctx context.Context, span *Span) error {
		span.SetAttribute("rows", 42)
		span.SetAttribute("release", "118")
		span.SetAttribute("ratio", 0.5)
		return nil
	})
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "decode", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "42", attrs["rows"])
	assert.Equal(t, "118", attrs["release"])
}

func TestStageTracerFailure(t *testing.T) {
	st, rec := newRecordingTracer()
	boom := errors.New("boom")

	err := st.Trace(context.Background(), "write", func(context.Context, *Span) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
	require.NotEmpty(t, spans[0].Events())
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestStageTracerNesting(t *testing.T) {
	st, rec := newRecordingTracer()

	err := st.Trace(context.Background(), "convert", func(ctx context.Context, _ *Span) error {
		return st.Trace(ctx, "parse_metadata", func(context.Context, *Span) error { return nil })
	})
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	child, parent := spans[0], spans[1]
	assert.Equal(t, "parse_metadata", child.Name())
	assert.Equal(t, parent.SpanContext().SpanID(), child.Parent().SpanID())
}

func TestInitTracingWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.json")
	cfg := DefaultTracingConfig()
	cfg.OutputPath = path

	shutdown, err := InitTracing(cfg)
	require.NoError(t, err)

	st := NewStageTracer(nil)
	require.NoError(t, st.Trace(context.Background(), "parse_strls", func(context.Context, *Span) error { return nil }))
	require.NoError(t, shutdown(context.Background()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"Name":"parse_strls"`)
	assert.Contains(t, string(raw), "dta2parquet")
}
