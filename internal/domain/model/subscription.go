package model

import (
	"time"

	"billing-sync/internal/domain"
)

type Tier string

const (
	TierFree       Tier = "free"
	TierLite       Tier = "lite"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
	TierMaximum    Tier = "maximum"
)

// ValidTier reports whether t belongs to the closed tier set.
func ValidTier(t Tier) bool {
	switch t {
	case TierFree, TierLite, TierPro, TierEnterprise, TierMaximum:
		return true
	}
	return false
}

type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusPastDue   SubscriptionStatus = "past_due"
	StatusTrialing  SubscriptionStatus = "trialing"
	StatusExpired   SubscriptionStatus = "expired"
	StatusPending   SubscriptionStatus = "pending"
)

type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleAnnual  BillingCycle = "annual"
)

// SubscriptionRecord is the canonical subscription state proposed to the
// backend store. It is keyed by UserID; the store applies last-write-wins
// on UpdatedAt.
type SubscriptionRecord struct {
	UserID                 string             `json:"userId"`
	ProviderCustomerID     string             `json:"providerCustomerId,omitempty"`
	ProviderSubscriptionID string             `json:"providerSubscriptionId,omitempty"`
	Tier                   Tier               `json:"tier"`
	Status                 SubscriptionStatus `json:"status"`
	BillingCycle           BillingCycle       `json:"billingCycle"`
	CurrentPeriodStart     *time.Time         `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd       *time.Time         `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd      bool               `json:"cancelAtPeriodEnd"`
	Seats                  int                `json:"seats"`
	UpdatedAt              time.Time          `json:"updatedAt"`
}

// Validate enforces the record invariants before a write is proposed.
func (r *SubscriptionRecord) Validate() error {
	if r.UserID == "" {
		return domain.ErrMissingUserID
	}
	if !ValidTier(r.Tier) {
		return domain.ErrInvalidArgument
	}
	switch r.Status {
	case StatusActive, StatusCancelled, StatusPastDue, StatusTrialing, StatusExpired, StatusPending:
	default:
		return domain.ErrInvalidArgument
	}
	switch r.BillingCycle {
	case CycleMonthly, CycleAnnual:
	default:
		return domain.ErrInvalidArgument
	}
	if r.Seats < 1 {
		return domain.ErrInvalidArgument
	}
	if r.CurrentPeriodStart != nil && r.CurrentPeriodEnd != nil && r.CurrentPeriodEnd.Before(*r.CurrentPeriodStart) {
		return domain.ErrInvalidArgument
	}
	return nil
}
