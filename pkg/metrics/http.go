package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records request counts and latency per route.
type HTTPMetrics struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
}

// NewHTTPMetrics registers the HTTP request metrics on the provided registerer.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests served.",
	}, []string{"method", "route", "status"})
	reg.MustRegister(duration, total)
	return &HTTPMetrics{
		duration: duration,
		total:    total,
	}
}

// ObserveRequest records a completed request.
func (m *HTTPMetrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	method = normalizeLabel(method)
	route = normalizeLabel(route)
	if m.duration != nil {
		m.duration.WithLabelValues(method, route).Observe(duration.Seconds())
	}
	if m.total != nil {
		m.total.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
}

// WebhookMetrics tracks billing webhook processing outcomes.
type WebhookMetrics struct {
	processed *prometheus.CounterVec
	dedup     prometheus.Counter
	failed    *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_processed",
		Help: "Billing webhook events processed by type.",
	}, []string{"type"})
	dedup := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_events_dedup",
		Help: "Billing webhook events skipped as duplicates.",
	})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_failed",
		Help: "Billing webhook events that failed processing.",
	}, []string{"type"})
	reg.MustRegister(processed, dedup, failed)
	return &WebhookMetrics{
		processed: processed,
		dedup:     dedup,
		failed:    failed,
	}
}

// IncProcessed increments the processed counter for the event type.
func (m *WebhookMetrics) IncProcessed(eventType string) {
	if m == nil || m.processed == nil {
		return
	}
	m.processed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDedup increments the duplicate-skip counter.
func (m *WebhookMetrics) IncDedup() {
	if m == nil || m.dedup == nil {
		return
	}
	m.dedup.Inc()
}

// IncFailed increments the failure counter for the event type.
func (m *WebhookMetrics) IncFailed(eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
