package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		webhookEventsTotal,
		reconcileDuration,
		storeSyncFailuresTotal,
		notificationsTotal,
	)
}

var (
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_webhook_events_total",
			Help: "Webhook events processed, by event type and outcome.",
		},
		[]string{"type", "outcome"}, // 'reconciled', 'ignored', 'skipped', 'error'
	)

	reconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "billing_reconcile_duration_seconds",
			Help:    "Time spent reconciling a verified webhook event.",
			Buckets: prometheus.DefBuckets,
		},
	)

	storeSyncFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_store_sync_failures_total",
			Help: "Failed upserts to the subscription store.",
		},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_notifications_total",
			Help: "Operational notifications, by kind and outcome.",
		},
		[]string{"kind", "outcome"}, // 'sent', 'failed', 'dropped'
	)
)

func IncWebhookEvent(eventType, outcome string) {
	webhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

func ObserveReconcile(d time.Duration) {
	reconcileDuration.Observe(d.Seconds())
}

func IncStoreSyncFailure() {
	storeSyncFailuresTotal.Inc()
}

func IncNotification(kind, outcome string) {
	notificationsTotal.WithLabelValues(kind, outcome).Inc()
}
