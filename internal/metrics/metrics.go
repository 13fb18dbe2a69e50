package metrics

import (
	"context"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type Metrics struct {
	HTTPRequests      metric.Int64Counter
	HTTPDuration      metric.Float64Histogram
	CommentsSubmitted metric.Int64Counter

	pending PendingFunc
}

// PendingFunc reports how many comments and replies await moderation.
type PendingFunc func() (comments, replies int64, err error)

// Setup creates the instruments on a registry of their own and returns the
// handler exposing it. Each call is independent, so several routers can live
// in one process.
func Setup(serviceName string) (*Metrics, http.Handler, error) {
	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(serviceName)

	m := &Metrics{}

	m.HTTPRequests, err = meter.Int64Counter(
		"dbsite_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPDuration, err = meter.Float64Histogram(
		"dbsite_http_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.CommentsSubmitted, err = meter.Int64Counter(
		"dbsite_comments_submitted_total",
		metric.WithDescription("Comments and replies accepted for moderation"),
	)
	if err != nil {
		return nil, nil, err
	}

	// Evaluated on every scrape.
	_, err = meter.Int64ObservableGauge(
		"dbsite_pending_moderation",
		metric.WithDescription("Comments and replies waiting for approval"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			if m.pending == nil {
				return nil
			}
			comments, replies, err := m.pending()
			if err != nil {
				return err
			}
			o.Observe(comments, metric.WithAttributes(attribute.String("kind", "comment")))
			o.Observe(replies, metric.WithAttributes(attribute.String("kind", "reply")))
			return nil
		}),
	)
	if err != nil {
		return nil, nil, err
	}

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m, handler, nil
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	labels := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	)

	m.HTTPRequests.Add(ctx, 1, labels)
	m.HTTPDuration.Record(ctx, duration.Seconds(), labels)
}

// RecordSubmission counts a stored comment ("comment") or reply ("reply").
func (m *Metrics) RecordSubmission(ctx context.Context, kind string) {
	m.CommentsSubmitted.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// ObservePending sets the source of the moderation queue gauge. It must be
// called before the metrics handler serves.
func (m *Metrics) ObservePending(fn PendingFunc) {
	m.pending = fn
}
