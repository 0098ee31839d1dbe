package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce     sync.Once
	requestCounter  metric.Int64Counter
	requestDuration metric.Float64Histogram
)

func ensureRequestMetrics() {
	metricsOnce.Do(func() {
		meter := otel.Meter("github.com/agenticmirror/api/internal/platform/observability")
		requestCounter, _ = meter.Int64Counter("http.server.request.count",
			metric.WithDescription("Number of HTTP requests handled."))
		requestDuration, _ = meter.Float64Histogram("http.server.request.duration",
			metric.WithDescription("HTTP request latency in seconds."),
			metric.WithUnit("s"))
	})
}

func recordRequestMetrics(ctx context.Context, method, route string, status int, latency time.Duration) {
	ensureRequestMetrics()
	attrs := metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.response.status_code", status),
	)
	if requestCounter != nil {
		requestCounter.Add(ctx, 1, attrs)
	}
	if requestDuration != nil {
		requestDuration.Record(ctx, latency.Seconds(), attrs)
	}
}
