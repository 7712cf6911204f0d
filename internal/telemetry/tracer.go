package telemetry

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	serviceName = "catalog-mcp"

	defaultMaxAttributeSize = 4096
)

var (
	globalMutex          sync.RWMutex
	globalTracer         trace.Tracer
	globalTracerProvider *sdktrace.TracerProvider
	tracingEnabled       bool
	serviceVersion       = "dev"
)

// otelErrorHandler routes SDK errors to the logger so nothing reaches stderr
// while serving stdio.
type otelErrorHandler struct {
	logger *logrus.Logger
}

func (h *otelErrorHandler) Handle(err error) {
	if err == nil {
		return
	}
	h.logger.WithError(err).Debug("OTEL: SDK error occurred")
}

// SetServiceVersion records the build version reported on exported resources.
func SetServiceVersion(version string) {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	if version != "" {
		serviceVersion = version
	}
}

// InitTracer initialises the OpenTelemetry tracer when OTEL_EXPORTER_OTLP_ENDPOINT
// is set. Without it a noop tracer is installed and the returned shutdown
// function does nothing.
func InitTracer(logger *logrus.Logger) (func() error, error) {
	globalMutex.Lock()
	defer globalMutex.Unlock()

	noopShutdown := func() error { return nil }

	if strings.EqualFold(os.Getenv("OTEL_SDK_DISABLED"), "true") {
		logger.Debug("OTEL: Explicitly disabled via OTEL_SDK_DISABLED")
		globalTracer = noop.NewTracerProvider().Tracer(serviceName)
		tracingEnabled = false
		return noopShutdown, nil
	}

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		logger.Debug("OTEL: Not configured (OTEL_EXPORTER_OTLP_ENDPOINT not set), using noop tracer")
		globalTracer = noop.NewTracerProvider().Tracer(serviceName)
		tracingEnabled = false
		return noopShutdown, nil
	}

	logger.WithField("endpoint", endpoint).Info("OTEL: Initialising tracer")
	otel.SetErrorHandler(&otelErrorHandler{logger: logger})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		logger.WithError(err).Warn("OTEL: Failed to create exporter, falling back to noop tracer")
		globalTracer = noop.NewTracerProvider().Tracer(serviceName)
		tracingEnabled = false
		return noopShutdown, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := newResource(ctx)
	if err != nil {
		logger.WithError(err).Warn("OTEL: Failed to create resource, using default")
		res = resource.Default()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	globalTracer = tp.Tracer(serviceName)
	globalTracerProvider = tp
	tracingEnabled = true

	logger.Info("OTEL: Tracer initialised successfully")

	return func() error {
		globalMutex.Lock()
		defer globalMutex.Unlock()

		if globalTracerProvider == nil {
			return nil
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := globalTracerProvider.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown tracer provider: %w", err)
		}
		return nil
	}, nil
}

func newResource(ctx context.Context) (*resource.Resource, error) {
	name := serviceName
	if envName := os.Getenv("OTEL_SERVICE_NAME"); envName != "" {
		name = envName
	}
	return resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", name),
			attribute.String("service.version", serviceVersion),
		),
		resource.WithFromEnv(),
	)
}

// GetTracer returns the global tracer, or a noop tracer before InitTracer.
func GetTracer() trace.Tracer {
	globalMutex.RLock()
	defer globalMutex.RUnlock()

	if globalTracer == nil {
		return noop.NewTracerProvider().Tracer(serviceName)
	}
	return globalTracer
}

// IsEnabled returns true if tracing is enabled
func IsEnabled() bool {
	globalMutex.RLock()
	defer globalMutex.RUnlock()
	return tracingEnabled
}

// StartToolSpan creates a span for one tool execution. The caller must end it
// with EndToolSpan.
func StartToolSpan(ctx context.Context, toolName, sessionID string, args map[string]any) (context.Context, trace.Span) {
	if !IsEnabled() {
		return ctx, trace.SpanFromContext(ctx)
	}

	ctx, span := GetTracer().Start(ctx, SpanNameToolExecute, trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(
		attribute.String(AttrMCPToolName, toolName),
		attribute.String(AttrMCPCallID, uuid.NewString()),
	)
	if sessionID != "" {
		span.SetAttributes(attribute.String(AttrMCPSessionID, sessionID))
	}
	if action, ok := args["action"].(string); ok {
		span.SetAttributes(attribute.String(AttrMCPToolAction, action))
	}
	span.SetAttributes(attribute.String("mcp.tool.arguments",
		TruncateString(SanitiseArguments(args), defaultMaxAttributeSize)))

	return ctx, span
}

// EndToolSpan ends a tool execution span with success or error
func EndToolSpan(span trace.Span, err error) {
	if span == nil {
		return
	}

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(
			attribute.Bool(AttrMCPToolSuccess, false),
			attribute.String(AttrMCPToolError, err.Error()),
		)
	} else {
		span.SetStatus(codes.Ok, "")
		span.SetAttributes(attribute.Bool(AttrMCPToolSuccess, true))
	}

	span.End()
}

// StartStoreSpan creates a span around one remote store read.
func StartStoreSpan(ctx context.Context, surface, path string) (context.Context, trace.Span) {
	if !IsEnabled() {
		return ctx, trace.SpanFromContext(ctx)
	}
	return GetTracer().Start(ctx, SpanNameStoreFetch,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrStoreSurface, surface),
			attribute.String(AttrStorePath, path),
		),
	)
}

// EndStoreSpan ends a remote store span. Not found is an expected outcome and
// does not mark the span as failed.
func EndStoreSpan(span trace.Span, outcome string, err error) {
	if span == nil {
		return
	}
	span.SetAttributes(attribute.String(AttrStoreOutcome, outcome))
	if err != nil && outcome != "not_found" {
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
