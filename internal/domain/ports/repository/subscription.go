package repository

import (
	"context"

	"billing-sync/internal/domain/model"
)

// SubscriptionStore is the authoritative subscription store. Upsert is
// keyed by UserID and must be idempotent: applying the same record twice
// leaves the stored state unchanged after the first application.
type SubscriptionStore interface {
	Upsert(ctx context.Context, rec *model.SubscriptionRecord) error
	Find(ctx context.Context, userID string) (*model.SubscriptionRecord, error)
}
