package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records intake and processing metadata for payment webhooks.
type WebhookMetrics struct {
	received        *prometheus.CounterVec
	duplicates      prometheus.Counter
	outcomes        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	notifyFailures  prometheus.Counter
	signatureErrors prometheus.Counter
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received",
		Help: "Webhook events accepted after signature verification.",
	}, []string{"kind"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_events_duplicate",
		Help: "Webhook deliveries skipped as already processed.",
	})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_processed",
		Help: "Webhook events processed, labeled by terminal outcome.",
	}, []string{"kind", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_processing_duration_seconds",
		Help:    "Duration of webhook event processing in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	notifyFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_notification_failures",
		Help: "Notification deliveries that failed after retries.",
	})
	signatureErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_signature_rejections",
		Help: "Webhook deliveries rejected for signature or header problems.",
	})
	reg.MustRegister(received, duplicates, outcomes, duration, notifyFailures, signatureErrors)
	return &WebhookMetrics{
		received:        received,
		duplicates:      duplicates,
		outcomes:        outcomes,
		duration:        duration,
		notifyFailures:  notifyFailures,
		signatureErrors: signatureErrors,
	}
}

// IncReceived increments the received counter for the event kind.
func (m *WebhookMetrics) IncReceived(kind string) {
	if m == nil || m.received == nil {
		return
	}
	m.received.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncDuplicate increments the duplicate delivery counter.
func (m *WebhookMetrics) IncDuplicate() {
	if m == nil || m.duplicates == nil {
		return
	}
	m.duplicates.Inc()
}

// IncOutcome increments the processed counter for a kind/outcome pair.
func (m *WebhookMetrics) IncOutcome(kind, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// ObserveDuration records processing time for the event kind.
func (m *WebhookMetrics) ObserveDuration(kind string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(kind)).Observe(duration.Seconds())
}

// IncNotifyFailure increments the notification failure counter.
func (m *WebhookMetrics) IncNotifyFailure() {
	if m == nil || m.notifyFailures == nil {
		return
	}
	m.notifyFailures.Inc()
}

// IncSignatureRejection increments the signature rejection counter.
func (m *WebhookMetrics) IncSignatureRejection() {
	if m == nil || m.signatureErrors == nil {
		return
	}
	m.signatureErrors.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
