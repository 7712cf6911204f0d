package telemetry

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const defaultMetricExportInterval = 60 * time.Second

var (
	metricsMutex        sync.RWMutex
	globalMeterProvider *sdkmetric.MeterProvider
	metricsEnabled      bool

	toolCallsCounter      metric.Int64Counter
	toolDurationHistogram metric.Float64Histogram
	toolErrorsCounter     metric.Int64Counter

	storeFetchCounter   metric.Int64Counter
	storeFetchHistogram metric.Float64Histogram
)

// InitMetrics initialises the OpenTelemetry meter provider. It shares the
// OTLP endpoint with tracing and is a noop without one.
func InitMetrics(logger *logrus.Logger) (func() error, error) {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()

	noopShutdown := func() error { return nil }

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" || strings.EqualFold(os.Getenv("OTEL_SDK_DISABLED"), "true") {
		logger.Debug("OTEL Metrics: Not configured, using noop meter")
		metricsEnabled = false
		return noopShutdown, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exporter, err := otlpmetrichttp.New(ctx)
	if err != nil {
		logger.WithError(err).Warn("OTEL Metrics: Failed to create exporter, falling back to noop meter")
		metricsEnabled = false
		return noopShutdown, err
	}

	res, err := newResource(ctx)
	if err != nil {
		logger.WithError(err).Warn("OTEL Metrics: Failed to create resource, using default")
		res = resource.Default()
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(getMetricExportInterval(logger)),
		)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	globalMeterProvider = mp

	if err := initMetricInstruments(mp.Meter(serviceName)); err != nil {
		logger.WithError(err).Error("OTEL Metrics: Failed to create instruments")
		metricsEnabled = false
		return noopShutdown, err
	}
	metricsEnabled = true

	logger.WithField("endpoint", endpoint).Info("OTEL Metrics: Meter initialised successfully")

	return func() error {
		metricsMutex.Lock()
		defer metricsMutex.Unlock()
		if globalMeterProvider == nil {
			return nil
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return globalMeterProvider.Shutdown(shutdownCtx)
	}, nil
}

func initMetricInstruments(meter metric.Meter) error {
	var err error

	toolCallsCounter, err = meter.Int64Counter(
		"mcp.tool.calls",
		metric.WithDescription("Total tool invocations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	toolDurationHistogram, err = meter.Float64Histogram(
		"mcp.tool.duration",
		metric.WithDescription("Tool execution duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000),
	)
	if err != nil {
		return err
	}

	toolErrorsCounter, err = meter.Int64Counter(
		"mcp.tool.errors",
		metric.WithDescription("Tool execution errors by type"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	storeFetchCounter, err = meter.Int64Counter(
		"store.fetches",
		metric.WithDescription("Remote store reads by surface and outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	storeFetchHistogram, err = meter.Float64Histogram(
		"store.fetch.duration",
		metric.WithDescription("Remote store read duration including retries"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	return err
}

// IsMetricsEnabled returns true if metrics collection is enabled
func IsMetricsEnabled() bool {
	metricsMutex.RLock()
	defer metricsMutex.RUnlock()
	return metricsEnabled
}

// RecordToolCall records a tool invocation metric
func RecordToolCall(ctx context.Context, toolName, transport string, success bool, durationMs float64) {
	if !IsMetricsEnabled() {
		return
	}

	result := "success"
	if !success {
		result = "error"
	}

	toolCallsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool.name", toolName),
		attribute.String("transport", transport),
		attribute.String("result", result),
	))
	toolDurationHistogram.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("tool.name", toolName),
		attribute.String("transport", transport),
	))
}

// RecordToolError records a categorised tool error
func RecordToolError(ctx context.Context, toolName string, err error) {
	if !IsMetricsEnabled() || err == nil {
		return
	}
	toolErrorsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool.name", toolName),
		attribute.String("error.type", CategoriseError(err)),
	))
}

// RecordStoreFetch records one remote store read.
func RecordStoreFetch(ctx context.Context, surface, outcome string, durationMs float64) {
	if !IsMetricsEnabled() {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrStoreSurface, surface),
		attribute.String(AttrStoreOutcome, outcome),
	)
	storeFetchCounter.Add(ctx, 1, attrs)
	storeFetchHistogram.Record(ctx, durationMs, attrs)
}

// CategoriseError maps errors to metric-friendly categories
func CategoriseError(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return "network"
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "not found"):
		return "not_found"
	case strings.Contains(errStr, "invalid") || strings.Contains(errStr, "required"):
		return "validation"
	case strings.Contains(errStr, "network failure"):
		return "network"
	}
	return "internal"
}

func getMetricExportInterval(logger *logrus.Logger) time.Duration {
	intervalStr := os.Getenv("OTEL_METRIC_EXPORT_INTERVAL")
	if intervalStr == "" {
		return defaultMetricExportInterval
	}

	// bare numbers are seconds
	duration, err := time.ParseDuration(intervalStr)
	if err != nil {
		duration, err = time.ParseDuration(intervalStr + "s")
		if err != nil {
			logger.WithField("interval", intervalStr).Warn("OTEL Metrics: Invalid export interval, using default")
			return defaultMetricExportInterval
		}
	}
	return duration
}
