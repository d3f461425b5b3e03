// Package tracing builds the process tracer provider.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"gestion/internal/platform/config"
)

const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// Provider owns the tracer provider and its shutdown.
type Provider struct {
	sdk      *sdktrace.TracerProvider
	provider trace.TracerProvider
}

// New installs a provider for cfg as the global otel provider. The "none"
// exporter yields a no-op provider with nothing to flush.
func New(cfg config.TracingConfig) (*Provider, error) {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter is New with the stdout exporter redirected to w.
func NewWithWriter(cfg config.TracingConfig, w io.Writer) (*Provider, error) {
	switch cfg.Exporter {
	case "", ExporterNone:
		p := &Provider{provider: noop.NewTracerProvider()}
		otel.SetTracerProvider(p.provider)
		return p, nil
	case ExporterStdout:
	default:
		return nil, fmt.Errorf("unknown tracing exporter %q", cfg.Exporter)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("create stdout exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))
	sdk := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	)
	otel.SetTracerProvider(sdk)
	return &Provider{sdk: sdk, provider: sdk}, nil
}

// Tracer returns a named tracer from the provider.
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.provider.Tracer(name)
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}
