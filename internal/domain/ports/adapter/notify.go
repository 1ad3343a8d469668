package adapter

import (
	"context"
	"time"

	"billing-sync/internal/domain/model"
)

type NotificationKind string

const (
	NotifySubscriptionCreated   NotificationKind = "subscription_created"
	NotifySubscriptionCancelled NotificationKind = "subscription_cancelled"
)

// Notification is the internal event fanned out to the operational channel.
// For cancellations, Tier is the tier being vacated.
type Notification struct {
	ID         string
	Kind       NotificationKind
	UserID     string
	Tier       model.Tier
	Cycle      model.BillingCycle
	OccurredAt time.Time
}

// Notifier delivers one notification to the sink. Delivery is best-effort;
// callers must never block reconciliation on it.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}
