// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"billing-sync/internal/domain/model"
	"billing-sync/internal/domain/ports/adapter"
	"billing-sync/internal/domain/ports/repository"
	"billing-sync/internal/infra/metrics"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// NotificationDispatcher is the outbound side of reconciliation: an internal
// event handed off for asynchronous, best-effort delivery.
type NotificationDispatcher interface {
	Dispatch(n adapter.Notification)
}

type ReconcileUseCase interface {
	// HandleWebhook verifies the raw payload, classifies the event and
	// reconciles it into the subscription store. It returns the event type
	// for the acknowledgement body. Verification and parse failures are
	// returned; per-event semantic gaps and store failures are logged and
	// swallowed so the provider still gets a 200.
	HandleWebhook(ctx context.Context, payload []byte, signature string) (string, error)
}

type reconcileUC struct {
	provider adapter.BillingProvider
	store    repository.SubscriptionStore
	prices   *model.PriceTierMap
	notify   NotificationDispatcher
	log      *zerolog.Logger

	locks [64]sync.Mutex
}

func NewReconcileUseCase(
	provider adapter.BillingProvider,
	store repository.SubscriptionStore,
	prices *model.PriceTierMap,
	notify NotificationDispatcher,
	logger *zerolog.Logger,
) *reconcileUC {
	compLog := logger.With().Str("component", "SubscriptionReconciler").Logger()
	return &reconcileUC{
		provider: provider,
		store:    store,
		prices:   prices,
		notify:   notify,
		log:      &compLog,
	}
}

func (u *reconcileUC) HandleWebhook(ctx context.Context, payload []byte, signature string) (string, error) {
	ev, err := u.provider.VerifyWebhook(payload, signature)
	if err != nil {
		return "", err
	}
	start := time.Now()
	u.handleEvent(ctx, ev)
	metrics.ObserveReconcile(time.Since(start))
	return string(ev.Type), nil
}

func (u *reconcileUC) handleEvent(ctx context.Context, ev *model.WebhookEvent) {
	log := u.log.With().Str("event_id", ev.ID).Str("event_type", string(ev.Type)).Logger()
	switch ev.Type {
	case model.EventCheckoutCompleted:
		u.handleCheckoutCompleted(ctx, &log, ev.Session)
	case model.EventSubscriptionCreated:
		// The authoritative write happens on checkout completion; writing
		// here again would double-count a single subscription start.
		log.Debug().Msg("subscription.created acknowledged without write")
		metrics.IncWebhookEvent(string(ev.Type), "ignored")
	case model.EventSubscriptionUpdated:
		u.handleSubscriptionUpdated(ctx, &log, ev.Subscription)
	case model.EventSubscriptionDeleted:
		u.handleSubscriptionDeleted(ctx, &log, ev.Subscription)
	case model.EventInvoicePaid:
		// Receipts and usage resets live downstream.
		log.Debug().Msg("invoice.payment_succeeded acknowledged without write")
		metrics.IncWebhookEvent(string(ev.Type), "ignored")
	case model.EventInvoiceFailed:
		u.handleInvoiceFailed(ctx, &log, ev.Invoice)
	default:
		log.Debug().Msg("unhandled event type acknowledged")
		metrics.IncWebhookEvent(string(ev.Type), "ignored")
	}
}

func (u *reconcileUC) handleCheckoutCompleted(ctx context.Context, log *zerolog.Logger, sess *model.ProviderSession) {
	const et = string(model.EventCheckoutCompleted)
	if sess == nil {
		metrics.IncWebhookEvent(et, "skipped")
		return
	}
	userID := sess.ClientReferenceID
	if userID == "" {
		userID = sess.Metadata["userId"]
	}
	if userID == "" || sess.SubscriptionID == "" {
		log.Warn().Str("session_id", sess.ID).Msg("checkout completed without user or subscription reference; skipping")
		metrics.IncWebhookEvent(et, "skipped")
		return
	}

	sub, err := u.provider.GetSubscription(ctx, sess.SubscriptionID)
	if err != nil {
		log.Error().Err(err).Str("subscription_id", sess.SubscriptionID).Msg("fetch subscription for checkout failed")
		metrics.IncWebhookEvent(et, "error")
		return
	}

	// Session metadata wins over subscription metadata: it was stamped by
	// the code path that created the checkout.
	metaTier := sess.Metadata["tier"]
	if metaTier == "" {
		metaTier = sub.MetaTier()
	}
	metaCycle := sess.Metadata["billing_cycle"]
	if metaCycle == "" {
		metaCycle = sub.Metadata["billing_cycle"]
	}

	start, end := model.PeriodFromEpoch(sub.PeriodStart, sub.PeriodEnd)
	customerID := sess.CustomerID
	if customerID == "" {
		customerID = sub.CustomerID
	}
	rec := &model.SubscriptionRecord{
		UserID:                 userID,
		ProviderCustomerID:     customerID,
		ProviderSubscriptionID: sub.ID,
		Tier:                   model.ResolveTier(metaTier, sub.PriceID, u.prices),
		Status:                 model.StatusActive,
		BillingCycle:           model.ResolveCycle(metaCycle, sub.Interval),
		CurrentPeriodStart:     start,
		CurrentPeriodEnd:       end,
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
		Seats:                  model.NormalizeSeats(sub.Quantity),
		UpdatedAt:              time.Now().UTC(),
	}

	unlock := u.lockUser(userID)
	ok := u.syncRecord(ctx, log, et, rec)
	unlock()
	if ok {
		u.notify.Dispatch(adapter.Notification{
			ID:         uuid.NewString(),
			Kind:       adapter.NotifySubscriptionCreated,
			UserID:     userID,
			Tier:       rec.Tier,
			Cycle:      rec.BillingCycle,
			OccurredAt: rec.UpdatedAt,
		})
	}
}

func (u *reconcileUC) handleSubscriptionUpdated(ctx context.Context, log *zerolog.Logger, sub *model.ProviderSubscription) {
	const et = string(model.EventSubscriptionUpdated)
	if sub == nil {
		metrics.IncWebhookEvent(et, "skipped")
		return
	}
	userID := sub.UserID()
	if userID == "" {
		log.Warn().Str("subscription_id", sub.ID).Msg("subscription update without metadata userId; skipping")
		metrics.IncWebhookEvent(et, "skipped")
		return
	}
	status, err := model.NormalizeStatus(sub.Status)
	if err != nil {
		log.Warn().Err(err).Str("subscription_id", sub.ID).Msg("skipping event with unknown status")
		metrics.IncWebhookEvent(et, "skipped")
		return
	}

	unlock := u.lockUser(userID)
	defer unlock()

	// A cancelled record only comes back through a new completed checkout.
	if existing, err := u.store.Find(ctx, userID); err == nil && existing.Status == model.StatusCancelled {
		log.Info().Str("subscription_id", sub.ID).Msg("record already cancelled; update ignored")
		metrics.IncWebhookEvent(et, "skipped")
		return
	}

	start, end := model.PeriodFromEpoch(sub.PeriodStart, sub.PeriodEnd)
	rec := &model.SubscriptionRecord{
		UserID:                 userID,
		ProviderCustomerID:     sub.CustomerID,
		ProviderSubscriptionID: sub.ID,
		Tier:                   model.ResolveTier(sub.MetaTier(), sub.PriceID, u.prices),
		Status:                 status,
		BillingCycle:           model.ResolveCycle(sub.Metadata["billing_cycle"], sub.Interval),
		CurrentPeriodStart:     start,
		CurrentPeriodEnd:       end,
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
		Seats:                  model.NormalizeSeats(sub.Quantity),
		UpdatedAt:              time.Now().UTC(),
	}
	u.syncRecord(ctx, log, et, rec)
}

func (u *reconcileUC) handleSubscriptionDeleted(ctx context.Context, log *zerolog.Logger, sub *model.ProviderSubscription) {
	const et = string(model.EventSubscriptionDeleted)
	if sub == nil {
		metrics.IncWebhookEvent(et, "skipped")
		return
	}
	userID := sub.UserID()
	if userID == "" {
		log.Warn().Str("subscription_id", sub.ID).Msg("subscription delete without metadata userId; skipping")
		metrics.IncWebhookEvent(et, "skipped")
		return
	}
	vacated := model.ResolveTier(sub.MetaTier(), sub.PriceID, u.prices)

	start, end := model.PeriodFromEpoch(sub.PeriodStart, sub.PeriodEnd)
	rec := &model.SubscriptionRecord{
		UserID:                 userID,
		ProviderCustomerID:     sub.CustomerID,
		ProviderSubscriptionID: sub.ID,
		Tier:                   model.TierFree,
		Status:                 model.StatusCancelled,
		BillingCycle:           model.ResolveCycle(sub.Metadata["billing_cycle"], sub.Interval),
		CurrentPeriodStart:     start,
		CurrentPeriodEnd:       end,
		CancelAtPeriodEnd:      true,
		Seats:                  model.NormalizeSeats(sub.Quantity),
		UpdatedAt:              time.Now().UTC(),
	}

	unlock := u.lockUser(userID)
	ok := u.syncRecord(ctx, log, et, rec)
	unlock()
	if ok {
		u.notify.Dispatch(adapter.Notification{
			ID:         uuid.NewString(),
			Kind:       adapter.NotifySubscriptionCancelled,
			UserID:     userID,
			Tier:       vacated,
			Cycle:      rec.BillingCycle,
			OccurredAt: rec.UpdatedAt,
		})
	}
}

func (u *reconcileUC) handleInvoiceFailed(ctx context.Context, log *zerolog.Logger, inv *model.ProviderInvoice) {
	const et = string(model.EventInvoiceFailed)
	if inv == nil || inv.SubscriptionID == "" {
		log.Warn().Msg("payment failure without subscription reference; skipping")
		metrics.IncWebhookEvent(et, "skipped")
		return
	}
	sub, err := u.provider.GetSubscription(ctx, inv.SubscriptionID)
	if err != nil {
		log.Error().Err(err).Str("subscription_id", inv.SubscriptionID).Msg("fetch subscription for failed invoice failed")
		metrics.IncWebhookEvent(et, "error")
		return
	}
	userID := sub.UserID()
	if userID == "" {
		log.Warn().Str("subscription_id", sub.ID).Msg("failed invoice subscription has no metadata userId; skipping")
		metrics.IncWebhookEvent(et, "skipped")
		return
	}

	unlock := u.lockUser(userID)
	defer unlock()

	// Same guard as the update path: a cancelled record only comes back
	// through a new completed checkout, not through a straggling invoice.
	if existing, err := u.store.Find(ctx, userID); err == nil && existing.Status == model.StatusCancelled {
		log.Info().Str("subscription_id", sub.ID).Msg("record already cancelled; payment failure ignored")
		metrics.IncWebhookEvent(et, "skipped")
		return
	}

	start, end := model.PeriodFromEpoch(sub.PeriodStart, sub.PeriodEnd)
	rec := &model.SubscriptionRecord{
		UserID:                 userID,
		ProviderCustomerID:     sub.CustomerID,
		ProviderSubscriptionID: sub.ID,
		Tier:                   model.ResolveTier(sub.MetaTier(), sub.PriceID, u.prices),
		Status:                 model.StatusPastDue,
		BillingCycle:           model.ResolveCycle(sub.Metadata["billing_cycle"], sub.Interval),
		CurrentPeriodStart:     start,
		CurrentPeriodEnd:       end,
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
		Seats:                  model.NormalizeSeats(sub.Quantity),
		UpdatedAt:              time.Now().UTC(),
	}
	u.syncRecord(ctx, log, et, rec)
}

// syncRecord validates and upserts under the caller-held user lock. A store
// failure is logged and counted but never surfaces to the webhook response;
// provider redelivery is not the correction path for our own store.
func (u *reconcileUC) syncRecord(ctx context.Context, log *zerolog.Logger, eventType string, rec *model.SubscriptionRecord) bool {
	if err := rec.Validate(); err != nil {
		log.Warn().Err(err).Str("user_id", rec.UserID).Msg("derived record failed validation; skipping write")
		metrics.IncWebhookEvent(eventType, "skipped")
		return false
	}
	if err := u.store.Upsert(ctx, rec); err != nil {
		metrics.IncStoreSyncFailure()
		metrics.IncWebhookEvent(eventType, "error")
		log.Error().Err(err).Str("user_id", rec.UserID).Msg("store sync failed; event still acknowledged")
		return false
	}
	metrics.IncWebhookEvent(eventType, "reconciled")
	log.Info().
		Str("user_id", rec.UserID).
		Str("tier", string(rec.Tier)).
		Str("status", string(rec.Status)).
		Msg("subscription reconciled")
	return true
}

// lockUser serializes reconciliation per user so overlapping deliveries
// (an update racing a delete) cannot interleave their read-derive-write.
// Locks are striped by user-id hash to keep memory bounded; two users
// sharing a stripe serialize against each other, which is harmless.
func (u *reconcileUC) lockUser(userID string) func() {
	h := fnv.New32a()
	h.Write([]byte(userID))
	l := &u.locks[h.Sum32()%uint32(len(u.locks))]
	l.Lock()
	return l.Unlock
}
