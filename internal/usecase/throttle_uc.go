// File: internal/usecase/throttle_uc.go
package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"billing-sync/internal/domain/model"
	"billing-sync/internal/domain/ports/repository"
)

// Compile-time check
var _ ThrottleUseCase = (*throttleUC)(nil)

// ThrottleStatus is the read-side projection the query router gates on.
type ThrottleStatus struct {
	IsThrottled           bool       `json:"is_throttled"`
	SubscriptionTier      model.Tier `json:"subscription_tier"`
	EliteQueriesLimit     int        `json:"elite_queries_limit"`
	EliteQueriesUsed      int        `json:"elite_queries_used"`
	EliteQueriesRemaining int        `json:"elite_queries_remaining"`
	ThrottleMessage       string     `json:"throttle_message,omitempty"`
	UpgradeURL            string     `json:"upgrade_url,omitempty"`
}

type ThrottleUseCase interface {
	// Status never fails: any upstream problem degrades to the free-tier
	// default (not throttled, zero elite quota).
	Status(ctx context.Context, userID string) *ThrottleStatus
}

type throttleUC struct {
	store      repository.SubscriptionStore
	usage      repository.UsageCounter
	limits     map[model.Tier]int
	upgradeURL string
	log        *zerolog.Logger
}

func NewThrottleUseCase(
	store repository.SubscriptionStore,
	usage repository.UsageCounter,
	limits map[string]int,
	upgradeURL string,
	logger *zerolog.Logger,
) *throttleUC {
	compLog := logger.With().Str("component", "ThrottleStatusResolver").Logger()
	byTier := make(map[model.Tier]int, len(limits))
	for name, n := range limits {
		byTier[model.Tier(name)] = n
	}
	return &throttleUC{store: store, usage: usage, limits: byTier, upgradeURL: upgradeURL, log: &compLog}
}

func (u *throttleUC) Status(ctx context.Context, userID string) *ThrottleStatus {
	tier := model.TierFree
	rec, err := u.store.Find(ctx, userID)
	switch {
	case err == nil:
		if grantsTier(rec.Status) {
			tier = rec.Tier
		}
	default:
		// Fail safe: unknown users and store outages both read as free.
		u.log.Warn().Err(err).Str("user_id", userID).Msg("throttle status falling back to free tier")
		return u.freeDefault()
	}

	limit := u.limits[tier]
	used, err := u.usage.EliteQueriesUsed(ctx, userID)
	if err != nil {
		u.log.Warn().Err(err).Str("user_id", userID).Msg("usage counters unavailable; reporting zero usage")
		used = 0
	}
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	out := &ThrottleStatus{
		IsThrottled:           remaining <= 0,
		SubscriptionTier:      tier,
		EliteQueriesLimit:     limit,
		EliteQueriesUsed:      used,
		EliteQueriesRemaining: remaining,
		UpgradeURL:            u.upgradeURL,
	}
	if out.IsThrottled {
		if limit > 0 {
			out.ThrottleMessage = fmt.Sprintf("You have used all %d elite queries for this period. Upgrade for a higher limit.", limit)
		} else {
			out.ThrottleMessage = "Elite queries require a paid subscription."
		}
	}
	return out
}

// grantsTier reports whether a status still entitles the user to the paid
// tier. past_due keeps access during the dunning window.
func grantsTier(s model.SubscriptionStatus) bool {
	switch s {
	case model.StatusActive, model.StatusTrialing, model.StatusPastDue:
		return true
	}
	return false
}

func (u *throttleUC) freeDefault() *ThrottleStatus {
	return &ThrottleStatus{
		IsThrottled:           false,
		SubscriptionTier:      model.TierFree,
		EliteQueriesLimit:     0,
		EliteQueriesUsed:      0,
		EliteQueriesRemaining: 0,
		UpgradeURL:            u.upgradeURL,
	}
}
