package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records the lifecycle activity of the settlement engine.
type OrderMetrics struct {
	transitions     *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	webhookDuration *prometheus.HistogramVec
	refundFailures  prometheus.Counter
	otpRejections   prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions",
		Help: "Committed order status transitions.",
	}, []string{"from", "to"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events",
		Help: "Payment webhook deliveries by outcome.",
	}, []string{"event", "result"})
	webhookDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_webhook_duration_seconds",
		Help:    "Time spent processing a payment webhook delivery.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event"})
	refundFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_refund_failures",
		Help: "Refund initiations that failed and need manual review.",
	})
	otpRejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_otp_rejections",
		Help: "Delivery OTP attempts rejected as invalid.",
	})
	reg.MustRegister(transitions, webhookEvents, webhookDuration, refundFailures, otpRejections)
	return &OrderMetrics{
		transitions:     transitions,
		webhookEvents:   webhookEvents,
		webhookDuration: webhookDuration,
		refundFailures:  refundFailures,
		otpRejections:   otpRejections,
	}
}

// ObserveTransition counts a committed status transition.
func (m *OrderMetrics) ObserveTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// ObserveWebhook counts a webhook delivery and its processing time.
func (m *OrderMetrics) ObserveWebhook(event, result string, duration time.Duration) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(event), normalizeLabel(result)).Inc()
	m.webhookDuration.WithLabelValues(normalizeLabel(event)).Observe(duration.Seconds())
}

// IncRefundFailure counts a refund call that failed after cancellation.
func (m *OrderMetrics) IncRefundFailure() {
	if m == nil || m.refundFailures == nil {
		return
	}
	m.refundFailures.Inc()
}

// IncOTPRejection counts a rejected delivery confirmation attempt.
func (m *OrderMetrics) IncOTPRejection() {
	if m == nil || m.otpRejections == nil {
		return
	}
	m.otpRejections.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
