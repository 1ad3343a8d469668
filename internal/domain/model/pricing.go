// File: internal/domain/model/pricing.go
package model

import (
	"fmt"
	"time"

	"billing-sync/internal/domain"
)

// DefaultPaidTier is the fallback when a subscription carries neither an
// explicit metadata tier nor a mapped price id. Falling back to free would
// silently downgrade a paying customer, so the default is pro.
const DefaultPaidTier = TierPro

// PriceEntry binds one provider price id to a tier/cycle slot.
type PriceEntry struct {
	PriceID string
	Tier    Tier
	Cycle   BillingCycle
}

// PriceTierMap is the read-only price-id lookup built once at startup and
// passed by reference wherever tier resolution happens.
type PriceTierMap struct {
	byPrice map[string]Tier
	bySlot  map[string]string // "tier/cycle" -> price id
}

// NewPriceTierMap builds the map from configured entries. Entries with an
// empty price id are skipped (the slot is simply unconfigured); entries with
// an invalid tier or cycle are an error.
func NewPriceTierMap(entries []PriceEntry) (*PriceTierMap, error) {
	m := &PriceTierMap{
		byPrice: make(map[string]Tier, len(entries)),
		bySlot:  make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		if e.PriceID == "" {
			continue
		}
		if !ValidTier(e.Tier) || e.Tier == TierFree {
			return nil, fmt.Errorf("%w: price %s maps to tier %q", domain.ErrInvalidArgument, e.PriceID, e.Tier)
		}
		if e.Cycle != CycleMonthly && e.Cycle != CycleAnnual {
			return nil, fmt.Errorf("%w: price %s has cycle %q", domain.ErrInvalidArgument, e.PriceID, e.Cycle)
		}
		m.byPrice[e.PriceID] = e.Tier
		m.bySlot[slotKey(e.Tier, e.Cycle)] = e.PriceID
	}
	return m, nil
}

func slotKey(t Tier, c BillingCycle) string { return string(t) + "/" + string(c) }

// Lookup resolves a provider price id to a tier. A miss is not an error;
// callers fall through to the default-tier policy.
func (m *PriceTierMap) Lookup(priceID string) (Tier, bool) {
	if m == nil || priceID == "" {
		return "", false
	}
	t, ok := m.byPrice[priceID]
	return t, ok
}

// PriceFor is the reverse lookup used when creating a checkout session.
func (m *PriceTierMap) PriceFor(t Tier, c BillingCycle) (string, bool) {
	if m == nil {
		return "", false
	}
	id, ok := m.bySlot[slotKey(t, c)]
	return id, ok
}

// Len reports how many price ids are mapped.
func (m *PriceTierMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.byPrice)
}

// ResolveTier derives the internal tier, first match wins:
//  1. explicit metadata tier set by the checkout creator,
//  2. price-id lookup on the first line item,
//  3. DefaultPaidTier.
func ResolveTier(metaTier, priceID string, prices *PriceTierMap) Tier {
	if metaTier != "" && ValidTier(Tier(metaTier)) {
		return Tier(metaTier)
	}
	if t, ok := prices.Lookup(priceID); ok {
		return t
	}
	return DefaultPaidTier
}

var statusTable = map[string]SubscriptionStatus{
	"active":             StatusActive,
	"canceled":           StatusCancelled,
	"past_due":           StatusPastDue,
	"trialing":           StatusTrialing,
	"unpaid":             StatusExpired,
	"incomplete":         StatusPending,
	"incomplete_expired": StatusExpired,
}

// NormalizeStatus maps a provider status string onto the internal vocabulary.
// An unmapped status is an error: inventing one could mask a provider-side
// change, so callers log and skip instead of defaulting.
func NormalizeStatus(providerStatus string) (SubscriptionStatus, error) {
	s, ok := statusTable[providerStatus]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownStatus, providerStatus)
	}
	return s, nil
}

// ResolveCycle prefers the explicit metadata billing cycle, then the line
// item's recurring interval ("year" means annual, anything else monthly).
func ResolveCycle(metaCycle, interval string) BillingCycle {
	switch BillingCycle(metaCycle) {
	case CycleMonthly, CycleAnnual:
		return BillingCycle(metaCycle)
	}
	return CycleFromInterval(interval)
}

// CycleFromInterval maps a provider recurring interval to a billing cycle.
func CycleFromInterval(interval string) BillingCycle {
	if interval == "year" {
		return CycleAnnual
	}
	return CycleMonthly
}

// NormalizeSeats clamps the line-item quantity to a positive seat count.
func NormalizeSeats(quantity int64) int {
	if quantity <= 0 {
		return 1
	}
	return int(quantity)
}

// PeriodFromEpoch converts provider epoch-second boundaries to timestamps.
// A zero value yields nil rather than the Unix epoch.
func PeriodFromEpoch(startSec, endSec int64) (start, end *time.Time) {
	return timeFromEpoch(startSec), timeFromEpoch(endSec)
}

func timeFromEpoch(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
