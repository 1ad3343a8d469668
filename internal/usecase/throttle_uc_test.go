//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"billing-sync/internal/domain/model"
	"billing-sync/internal/usecase"
)

var testLimits = map[string]int{
	"free":       0,
	"lite":       50,
	"pro":        300,
	"enterprise": 2000,
}

func newThrottle(t *testing.T, store *memStore, usage *fakeUsage) usecase.ThrottleUseCase {
	t.Helper()
	log := zerolog.Nop()
	return usecase.NewThrottleUseCase(store, usage, testLimits, "https://example.com/upgrade", &log)
}

func seedSubscription(t *testing.T, store *memStore, tier model.Tier, status model.SubscriptionStatus) {
	t.Helper()
	if err := store.Upsert(context.Background(), &model.SubscriptionRecord{
		UserID: "user-1", Tier: tier, Status: status,
		BillingCycle: model.CycleMonthly, Seats: 1,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestThrottleStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("active pro under the limit is not throttled", func(t *testing.T) {
		store := newMemStore()
		seedSubscription(t, store, model.TierPro, model.StatusActive)
		uc := newThrottle(t, store, &fakeUsage{used: 100})

		st := uc.Status(ctx, "user-1")
		if st.IsThrottled {
			t.Error("expected not throttled")
		}
		if st.SubscriptionTier != model.TierPro || st.EliteQueriesLimit != 300 {
			t.Errorf("unexpected tier/limit: %+v", st)
		}
		if st.EliteQueriesUsed != 100 || st.EliteQueriesRemaining != 200 {
			t.Errorf("unexpected usage math: %+v", st)
		}
	})

	t.Run("exhausted quota throttles with a message", func(t *testing.T) {
		store := newMemStore()
		seedSubscription(t, store, model.TierLite, model.StatusActive)
		uc := newThrottle(t, store, &fakeUsage{used: 72})

		st := uc.Status(ctx, "user-1")
		if !st.IsThrottled {
			t.Fatal("expected throttled")
		}
		if st.EliteQueriesRemaining != 0 {
			t.Errorf("expected remaining clamped to zero, got %d", st.EliteQueriesRemaining)
		}
		if st.ThrottleMessage == "" || st.UpgradeURL == "" {
			t.Errorf("expected a message and upgrade url: %+v", st)
		}
	})

	t.Run("past_due keeps the paid quota during dunning", func(t *testing.T) {
		store := newMemStore()
		seedSubscription(t, store, model.TierEnterprise, model.StatusPastDue)
		uc := newThrottle(t, store, &fakeUsage{used: 10})

		st := uc.Status(ctx, "user-1")
		if st.SubscriptionTier != model.TierEnterprise || st.EliteQueriesLimit != 2000 {
			t.Errorf("expected the paid quota to survive past_due: %+v", st)
		}
	})

	t.Run("cancelled record reads as the free tier", func(t *testing.T) {
		store := newMemStore()
		seedSubscription(t, store, model.TierPro, model.StatusCancelled)
		uc := newThrottle(t, store, &fakeUsage{used: 0})

		st := uc.Status(ctx, "user-1")
		if st.SubscriptionTier != model.TierFree || st.EliteQueriesLimit != 0 {
			t.Errorf("expected free-tier quota: %+v", st)
		}
		if !st.IsThrottled {
			t.Error("expected zero-quota tier to read as throttled")
		}
	})

	t.Run("store outage fails safe to not throttled", func(t *testing.T) {
		store := newMemStore()
		store.findErr = errors.New("backend 503")
		uc := newThrottle(t, store, &fakeUsage{used: 9999})

		st := uc.Status(ctx, "user-1")
		if st.IsThrottled {
			t.Error("expected fail-safe default to not throttle")
		}
		if st.SubscriptionTier != model.TierFree {
			t.Errorf("expected free tier, got %s", st.SubscriptionTier)
		}
	})

	t.Run("usage counter outage reads as zero usage", func(t *testing.T) {
		store := newMemStore()
		seedSubscription(t, store, model.TierPro, model.StatusActive)
		uc := newThrottle(t, store, &fakeUsage{err: errors.New("redis down")})

		st := uc.Status(ctx, "user-1")
		if st.IsThrottled {
			t.Error("expected not throttled when usage is unknown")
		}
		if st.EliteQueriesUsed != 0 || st.EliteQueriesRemaining != 300 {
			t.Errorf("expected full quota reported: %+v", st)
		}
	})
}
