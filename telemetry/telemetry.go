//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

// Package telemetry wires OpenTelemetry tracing and metrics for the
// scheduler: a Tracer/Meter pair that default to no-ops and can be
// pointed at an OTLP collector via Start.
package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	noopt "go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	ServiceName    = "connectoragents"
	ServiceVersion = "v0.1.0"
	InstrumentName = "connectoragents.scheduler"
)

// Tracer and Meter default to no-ops; Start replaces both with
// collector-backed implementations.
var (
	Tracer trace.Tracer = noopt.Tracer{}
	Meter  metric.Meter = noopmetric.Meter{}
)

var (
	stepCounter      metric.Int64Counter
	stepErrorCounter metric.Int64Counter
)

// RecordStep increments the scheduler's productive/idle step counter.
// Safe to call before Start (the call is dropped while no counter has
// been created).
func RecordStep(ctx context.Context) {
	if stepCounter != nil {
		stepCounter.Add(ctx, 1)
	}
}

// RecordStepError increments the scheduler's failed-step counter.
func RecordStepError(ctx context.Context) {
	if stepErrorCounter != nil {
		stepErrorCounter.Add(ctx, 1)
	}
}

// Option configures Start.
type Option func(*options)

type options struct {
	tracesEndpoint  string
	metricsEndpoint string
	serviceName     string
	serviceVersion  string
}

// WithEndpoint sets both the traces and metrics OTLP endpoint
// ("host:port", no scheme). Overridden individually by WithTracesEndpoint
// / WithMetricsEndpoint.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.tracesEndpoint = endpoint
		o.metricsEndpoint = endpoint
	}
}

// WithTracesEndpoint overrides only the traces exporter endpoint.
func WithTracesEndpoint(endpoint string) Option {
	return func(o *options) { o.tracesEndpoint = endpoint }
}

// WithMetricsEndpoint overrides only the metrics exporter endpoint.
func WithMetricsEndpoint(endpoint string) Option {
	return func(o *options) { o.metricsEndpoint = endpoint }
}

// WithServiceName overrides the resource service.name attribute.
func WithServiceName(name string) Option {
	return func(o *options) { o.serviceName = name }
}

func defaultEndpoint() string {
	if e := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); e != "" {
		return e
	}
	return "localhost:4317"
}

// Start dials an OTLP collector over gRPC and installs global Tracer
// and Meter. The returned clean func flushes and shuts both providers
// down; callers should defer it.
func Start(ctx context.Context, opts ...Option) (clean func() error, err error) {
	cfg := &options{
		tracesEndpoint:  defaultEndpoint(),
		metricsEndpoint: defaultEndpoint(),
		serviceName:     ServiceName,
		serviceVersion:  ServiceVersion,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	res, err := sdkresource.New(ctx, sdkresource.WithAttributes(
		semconv.ServiceName(cfg.serviceName),
		semconv.ServiceVersion(cfg.serviceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	tracesConn, err := newConn(cfg.tracesEndpoint)
	if err != nil {
		return nil, fmt.Errorf("telemetry: dial traces collector: %w", err)
	}
	shutdownTracer, err := initTracerProvider(ctx, res, tracesConn)
	if err != nil {
		return nil, fmt.Errorf("telemetry: init tracer provider: %w", err)
	}
	Tracer = otel.Tracer(InstrumentName)

	metricsConn, err := newConn(cfg.metricsEndpoint)
	if err != nil {
		return nil, fmt.Errorf("telemetry: dial metrics collector: %w", err)
	}
	shutdownMeter, err := initMeterProvider(ctx, res, metricsConn)
	if err != nil {
		return nil, fmt.Errorf("telemetry: init meter provider: %w", err)
	}
	Meter = otel.Meter(InstrumentName)

	stepCounter, err = Meter.Int64Counter("scheduler.steps",
		metric.WithDescription("number of scheduler.Step calls that completed without an error"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create step counter: %w", err)
	}
	stepErrorCounter, err = Meter.Int64Counter("scheduler.step_errors",
		metric.WithDescription("number of scheduler.Step calls that returned an error"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create step error counter: %w", err)
	}

	return func() error {
		if err := shutdownTracer(ctx); err != nil {
			return fmt.Errorf("telemetry: shutdown tracer provider: %w", err)
		}
		if err := shutdownMeter(ctx); err != nil {
			return fmt.Errorf("telemetry: shutdown meter provider: %w", err)
		}
		return nil
	}, nil
}

func newConn(endpoint string) (*grpc.ClientConn, error) {
	return grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

func initTracerProvider(ctx context.Context, res *sdkresource.Resource, conn *grpc.ClientConn) (func(context.Context) error, error) {
	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return provider.Shutdown, nil
}

func initMeterProvider(ctx context.Context, res *sdkresource.Resource, conn *grpc.ClientConn) (func(context.Context) error, error) {
	exporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	)
	otel.SetMeterProvider(provider)
	return provider.Shutdown, nil
}
