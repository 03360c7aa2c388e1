package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// TracingConfig contains tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	// OutputPath receives the exported spans as JSON; "-" means stdout.
	OutputPath   string
	SamplingRate float64
	BatchTimeout time.Duration
}

// DefaultTracingConfig returns a tracing configuration for the converter
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName:    "dta2parquet",
		ServiceVersion: "dev",
		OutputPath:     "-",
		SamplingRate:   1.0,
		BatchTimeout:   time.Second,
	}
}

// InitTracing installs a global tracer provider exporting to config.OutputPath.
// The returned function flushes pending spans and closes the output.
func InitTracing(config TracingConfig) (func(context.Context) error, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var out io.WriteCloser = nopCloser{os.Stdout}
	if config.OutputPath != "" && config.OutputPath != "-" {
		f, err := os.Create(config.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open trace output: %w", err)
		}
		out = f
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(out))
	if err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case config.SamplingRate <= 0:
		sampler = sdktrace.NeverSample()
	case config.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(config.SamplingRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(config.BatchTimeout)),
	)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		return err
	}, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
