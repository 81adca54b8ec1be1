// Package metrics exposes the process's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsByStatus tracks how many session records are in each
	// status.
	SessionsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wabridge_sessions",
		Help: "Number of session records by status.",
	}, []string{"status"})

	// Reconnects counts scheduled reconnect attempts.
	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wabridge_reconnects_total",
		Help: "Reconnect attempts scheduled across all sessions.",
	})

	// MessagesSent counts successful outbound sends.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wabridge_messages_sent_total",
		Help: "Outbound messages successfully accepted by the network.",
	})

	// MessagesFailed counts outbound sends that failed after any
	// retries.
	MessagesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wabridge_messages_failed_total",
		Help: "Outbound messages that failed after exhausting retries.",
	})

	// SendRetries counts individual retry attempts on transient send
	// failures.
	SendRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wabridge_send_retries_total",
		Help: "Send retry attempts after transient transport failures.",
	})

	// WebhookDeliveries counts webhook envelopes dispatched.
	WebhookDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wabridge_webhook_deliveries_total",
		Help: "Webhook envelopes dispatched to the configured sink.",
	})

	// WebhookFailures counts webhook deliveries that failed.
	WebhookFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wabridge_webhook_failures_total",
		Help: "Webhook deliveries that failed or timed out.",
	})
)
