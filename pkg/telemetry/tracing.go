package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys recorded along the resolution path.
var (
	AttrSessionID  = attribute.Key("focusboard.session.id")
	AttrInputBytes = attribute.Key("focusboard.input.bytes")
	AttrIntentKind = attribute.Key("focusboard.intent.kind")
	AttrConfidence = attribute.Key("focusboard.intent.confidence")
	AttrOutcome    = attribute.Key("focusboard.outcome")
)

const tracerName = "github.com/odvcencio/focusboard/pkg/pipeline"

// TracerProvider owns the process-wide trace pipeline installed by
// NewTracerProvider.
type TracerProvider struct {
	sdk *sdktrace.TracerProvider
}

// NewTracerProvider wires a pretty-printed stdout exporter into the
// global OpenTelemetry provider. Tracing here exists to watch a single
// resolution wind through detector, resolver and executor on a dev
// machine, so every span is sampled and nothing leaves the process.
func NewTracerProvider(serviceName, serviceVersion string) (*TracerProvider, error) {
	info, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceVersionKey.String(serviceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create stdout trace exporter: %w", err)
	}

	sdk := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(info),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(sdk)
	return &TracerProvider{sdk: sdk}, nil
}

// Shutdown flushes buffered spans and stops the provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	return tp.sdk.Shutdown(ctx)
}

// StartSpan opens a span on the pipeline tracer. Callers must End it.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, opts...)
}

// RecordError attaches err to the span carried by ctx, if any.
func RecordError(ctx context.Context, err error) {
	trace.SpanFromContext(ctx).RecordError(err)
}

// SetAttributes adds attrs to the span carried by ctx, if any.
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}
