// Package tracing exports benchmark spans over OTLP: one span per iteration
// with the request steps of that iteration nested below it. W3C trace context
// is propagated into outgoing requests.
package tracing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/torosent/harraw/internal/config"
)

const instrumentationName = "harraw"

// Run attribute keys, set on the exported resource.
const (
	AttrBenchmark   = attribute.Key("harraw.benchmark")
	AttrIterations  = attribute.Key("harraw.iterations")
	AttrConcurrency = attribute.Key("harraw.concurrency")
	AttrRampup      = attribute.Key("harraw.rampup_seconds")
	AttrBaseURL     = attribute.Key("harraw.base_url")
)

// Provider hands out the tracer used for iteration and request spans.
type Provider struct {
	tp        *sdktrace.TracerProvider
	tracer    trace.Tracer
	propagate bool
}

// Init builds a Provider for a run. Spans are exported only when the tracing
// block is enabled and an endpoint is known, from the block or from
// OTEL_EXPORTER_OTLP_ENDPOINT. Otherwise the provider is a no-op that may
// still propagate headers.
func Init(ctx context.Context, cfg *config.Config) (*Provider, error) {
	tc := cfg.Tracing
	if !tc.Enabled() {
		return &Provider{}, nil
	}
	endpoint := firstNonEmpty(tc.Endpoint, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if endpoint == "" {
		return &Provider{propagate: tc.ShouldPropagate()}, nil
	}

	sampler, err := newSampler(tc.SampleRate)
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		append([]attribute.KeyValue{semconv.ServiceName(serviceName(tc))}, RunAttributes(cfg)...)...,
	))
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}
	exporter, err := newExporter(ctx, tc, endpoint)
	if err != nil {
		return nil, fmt.Errorf("tracing exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{
		tp:        tp,
		tracer:    tp.Tracer(instrumentationName),
		propagate: tc.ShouldPropagate(),
	}, nil
}

// NewProvider wraps an existing tracer, for embedding and tests.
func NewProvider(tracer trace.Tracer, propagate bool) *Provider {
	return &Provider{tracer: tracer, propagate: propagate}
}

// RunAttributes describes the run a span belongs to.
func RunAttributes(cfg *config.Config) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		AttrIterations.Int(cfg.Iterations),
		AttrConcurrency.Int(cfg.Concurrency),
		AttrRampup.Int(int(cfg.Rampup.Seconds())),
	}
	if cfg.BenchmarkFile != "" {
		attrs = append(attrs, AttrBenchmark.String(filepath.Base(cfg.BenchmarkFile)))
	}
	if cfg.Base != "" {
		attrs = append(attrs, AttrBaseURL.String(cfg.Base))
	}
	return attrs
}

// Tracer returns the run tracer, or a no-op tracer when tracing is off.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil || p.tracer == nil {
		return noop.NewTracerProvider().Tracer(instrumentationName)
	}
	return p.tracer
}

// StartIteration opens the parent span of one iteration. Request spans started
// from the returned context nest below it.
func (p *Provider) StartIteration(ctx context.Context, index int) (context.Context, trace.Span) {
	return p.Tracer().Start(ctx, "iteration "+strconv.Itoa(index),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(AttrIteration.Int(index)),
	)
}

// ShouldPropagate reports whether W3C trace headers are injected into requests.
func (p *Provider) ShouldPropagate() bool {
	return p != nil && p.propagate
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

func serviceName(tc config.TracingConfig) string {
	return firstNonEmpty(tc.ServiceName, os.Getenv("OTEL_SERVICE_NAME"), instrumentationName)
}

func newSampler(rate float64) (sdktrace.Sampler, error) {
	switch {
	case rate < 0 || rate > 1:
		return nil, fmt.Errorf("tracing sample_rate must be between 0.0 and 1.0, got %g", rate)
	case rate == 0:
		return sdktrace.NeverSample(), nil
	case rate < 1:
		return sdktrace.TraceIDRatioBased(rate), nil
	default:
		return sdktrace.AlwaysSample(), nil
	}
}

func newExporter(ctx context.Context, tc config.TracingConfig, endpoint string) (sdktrace.SpanExporter, error) {
	switch protocol := strings.ToLower(firstNonEmpty(tc.Protocol, "grpc")); protocol {
	case "grpc":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if tc.Insecure {
			opts = append(opts,
				otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
				otlptracegrpc.WithInsecure(),
			)
		}
		return otlptracegrpc.New(ctx, opts...)
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if tc.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q: use \"grpc\" or \"http\"", protocol)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
