// File: internal/usecase/billing_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"billing-sync/internal/domain"
	"billing-sync/internal/domain/model"
	"billing-sync/internal/domain/ports/adapter"
	"billing-sync/internal/domain/ports/repository"
)

// Compile-time check
var _ BillingUseCase = (*billingUC)(nil)

// SubscriptionView is the read shape served to authenticated callers. The
// pointer fields are null in the degraded (store unreachable) response.
type SubscriptionView struct {
	Tier              model.Tier               `json:"tier"`
	Status            model.SubscriptionStatus `json:"status"`
	BillingCycle      *model.BillingCycle      `json:"billingCycle"`
	CurrentPeriodEnd  *time.Time               `json:"currentPeriodEnd"`
	CancelAtPeriodEnd *bool                    `json:"cancelAtPeriodEnd"`
}

// SessionVerification reports whether a checkout session finished paying and
// which plan it bought, without waiting for webhook delivery.
type SessionVerification struct {
	Success bool
	Tier    model.Tier
	Cycle   model.BillingCycle
}

type BillingUseCase interface {
	// CreateCheckout starts a provider-hosted checkout for a paid tier.
	CreateCheckout(ctx context.Context, userID string, tier model.Tier, cycle model.BillingCycle) (*adapter.CheckoutRedirect, error)
	// VerifySession resolves a completed checkout session to tier/cycle.
	VerifySession(ctx context.Context, userID, sessionID string) (*SessionVerification, error)
	// Cancel schedules cancellation at the end of the current period.
	Cancel(ctx context.Context, userID string) (string, error)
	// Status returns the canonical view, degrading to the free tier when the
	// store is unreachable; callers gate features on it and must not error.
	Status(ctx context.Context, userID string) *SubscriptionView
}

type billingUC struct {
	provider adapter.BillingProvider
	store    repository.SubscriptionStore
	prices   *model.PriceTierMap
	log      *zerolog.Logger
}

func NewBillingUseCase(
	provider adapter.BillingProvider,
	store repository.SubscriptionStore,
	prices *model.PriceTierMap,
	logger *zerolog.Logger,
) *billingUC {
	compLog := logger.With().Str("component", "BillingUseCase").Logger()
	return &billingUC{provider: provider, store: store, prices: prices, log: &compLog}
}

func (u *billingUC) CreateCheckout(ctx context.Context, userID string, tier model.Tier, cycle model.BillingCycle) (*adapter.CheckoutRedirect, error) {
	if userID == "" {
		return nil, domain.ErrMissingUserID
	}
	if !model.ValidTier(tier) || tier == model.TierFree {
		return nil, domain.ErrInvalidArgument
	}
	if cycle != model.CycleMonthly && cycle != model.CycleAnnual {
		return nil, domain.ErrInvalidArgument
	}
	priceID, ok := u.prices.PriceFor(tier, cycle)
	if !ok {
		u.log.Warn().Str("tier", string(tier)).Str("cycle", string(cycle)).Msg("no price configured for slot")
		return nil, domain.ErrInvalidArgument
	}
	return u.provider.CreateCheckoutSession(ctx, adapter.CheckoutParams{
		UserID:  userID,
		Tier:    tier,
		Cycle:   cycle,
		PriceID: priceID,
	})
}

func (u *billingUC) VerifySession(ctx context.Context, userID, sessionID string) (*SessionVerification, error) {
	if sessionID == "" {
		return nil, domain.ErrInvalidArgument
	}
	sess, err := u.provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if owner := sess.Metadata["userId"]; owner != "" && userID != "" && owner != userID {
		u.log.Warn().Str("session_id", sessionID).Str("user_id", userID).Msg("session verified by a different user")
	}
	out := &SessionVerification{
		Success: sess.Status == "complete" || sess.PaymentStatus == "paid",
		Tier:    model.DefaultPaidTier,
		Cycle:   model.CycleMonthly,
	}
	if t := model.Tier(sess.Metadata["tier"]); model.ValidTier(t) {
		out.Tier = t
	}
	if c := model.BillingCycle(sess.Metadata["billing_cycle"]); c == model.CycleMonthly || c == model.CycleAnnual {
		out.Cycle = c
	}
	return out, nil
}

func (u *billingUC) Cancel(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", domain.ErrMissingUserID
	}
	rec, err := u.store.Find(ctx, userID)
	if err != nil {
		return "", err
	}
	if rec.ProviderSubscriptionID == "" || rec.Status == model.StatusCancelled {
		return "", domain.ErrNoSubscription
	}
	if err := u.provider.CancelAtPeriodEnd(ctx, rec.ProviderSubscriptionID); err != nil {
		return "", err
	}
	rec.CancelAtPeriodEnd = true
	rec.UpdatedAt = time.Now().UTC()
	if err := u.store.Upsert(ctx, rec); err != nil {
		// The provider-side cancellation already happened; the deleted
		// webhook will bring the store in line at period end.
		u.log.Error().Err(err).Str("user_id", userID).Msg("cancel recorded at provider but store sync failed")
	}
	return "Your subscription will remain active until the end of the current billing period.", nil
}

func (u *billingUC) Status(ctx context.Context, userID string) *SubscriptionView {
	rec, err := u.store.Find(ctx, userID)
	if err != nil {
		if err != domain.ErrNotFound {
			u.log.Warn().Err(err).Str("user_id", userID).Msg("store unavailable; serving free-tier default")
		}
		return &SubscriptionView{Tier: model.TierFree, Status: model.StatusActive}
	}
	cycle := rec.BillingCycle
	cape := rec.CancelAtPeriodEnd
	return &SubscriptionView{
		Tier:              rec.Tier,
		Status:            rec.Status,
		BillingCycle:      &cycle,
		CurrentPeriodEnd:  rec.CurrentPeriodEnd,
		CancelAtPeriodEnd: &cape,
	}
}
