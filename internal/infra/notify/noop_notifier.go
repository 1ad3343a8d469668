package notify

import (
	"context"

	"billing-sync/internal/domain/ports/adapter"
)

var _ adapter.Notifier = NoopNotifier{}

// NoopNotifier is used when no sink is configured.
type NoopNotifier struct{}

func (NoopNotifier) Send(ctx context.Context, n adapter.Notification) error { return nil }
