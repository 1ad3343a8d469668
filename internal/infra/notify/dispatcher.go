// File: internal/infra/notify/dispatcher.go
package notify

import (
	"context"
	"time"

	"billing-sync/internal/domain/ports/adapter"
	"billing-sync/internal/infra/metrics"
	"billing-sync/internal/infra/worker"

	"github.com/rs/zerolog"
)

// Dispatcher fans notifications out through the worker pool with a bounded
// retry/backoff policy. Dispatch never blocks and never reports failure to
// the caller; reconciliation must not depend on the channel being up.
type Dispatcher struct {
	pool     *worker.Pool
	notifier adapter.Notifier
	retries  int
	backoff  time.Duration
	log      *zerolog.Logger
}

func NewDispatcher(pool *worker.Pool, notifier adapter.Notifier, retries int, backoff time.Duration, logger *zerolog.Logger) *Dispatcher {
	compLog := logger.With().Str("component", "NotificationDispatcher").Logger()
	if retries < 1 {
		retries = 1
	}
	return &Dispatcher{pool: pool, notifier: notifier, retries: retries, backoff: backoff, log: &compLog}
}

func (d *Dispatcher) Dispatch(n adapter.Notification) {
	err := d.pool.Submit(func(ctx context.Context) error {
		d.deliver(ctx, n)
		return nil
	})
	if err != nil {
		metrics.IncNotification(string(n.Kind), "dropped")
		d.log.Warn().Err(err).Str("kind", string(n.Kind)).Str("user_id", n.UserID).Msg("notification dropped")
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n adapter.Notification) {
	var lastErr error
	for attempt := 0; attempt < d.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				metrics.IncNotification(string(n.Kind), "failed")
				d.log.Warn().Err(lastErr).Str("kind", string(n.Kind)).Msg("notification abandoned")
				return
			case <-time.After(d.backoff * time.Duration(attempt)):
			}
		}
		if lastErr = d.notifier.Send(ctx, n); lastErr == nil {
			metrics.IncNotification(string(n.Kind), "sent")
			return
		}
	}
	metrics.IncNotification(string(n.Kind), "failed")
	d.log.Warn().Err(lastErr).Str("kind", string(n.Kind)).Str("user_id", n.UserID).Msg("notification failed after retries")
}
