//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"billing-sync/internal/domain"
)

func testPriceMap(t *testing.T) *PriceTierMap {
	t.Helper()
	m, err := NewPriceTierMap([]PriceEntry{
		{PriceID: "price_lite_m", Tier: TierLite, Cycle: CycleMonthly},
		{PriceID: "price_pro_m", Tier: TierPro, Cycle: CycleMonthly},
		{PriceID: "price_pro_y", Tier: TierPro, Cycle: CycleAnnual},
		{PriceID: "price_ent_m", Tier: TierEnterprise, Cycle: CycleMonthly},
		{PriceID: "price_max_y", Tier: TierMaximum, Cycle: CycleAnnual},
	})
	if err != nil {
		t.Fatalf("expected no error building price map, got: %v", err)
	}
	return m
}

func TestNewPriceTierMap(t *testing.T) {
	t.Run("should skip empty slots without error", func(t *testing.T) {
		m, err := NewPriceTierMap([]PriceEntry{
			{PriceID: "", Tier: TierLite, Cycle: CycleMonthly},
			{PriceID: "price_pro_m", Tier: TierPro, Cycle: CycleMonthly},
		})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if m.Len() != 1 {
			t.Errorf("expected 1 mapped price, got %d", m.Len())
		}
	})

	t.Run("should reject a price mapped to the free tier", func(t *testing.T) {
		_, err := NewPriceTierMap([]PriceEntry{{PriceID: "price_x", Tier: TierFree, Cycle: CycleMonthly}})
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got: %v", err)
		}
	})

	t.Run("should reject an invalid cycle", func(t *testing.T) {
		_, err := NewPriceTierMap([]PriceEntry{{PriceID: "price_x", Tier: TierPro, Cycle: "weekly"}})
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got: %v", err)
		}
	})
}

func TestResolveTier(t *testing.T) {
	prices := testPriceMap(t)

	t.Run("explicit metadata tier wins over the price map", func(t *testing.T) {
		if got := ResolveTier("enterprise", "price_lite_m", prices); got != TierEnterprise {
			t.Errorf("expected enterprise, got %s", got)
		}
	})

	t.Run("every mapped price id resolves to its mapped tier", func(t *testing.T) {
		cases := map[string]Tier{
			"price_lite_m": TierLite,
			"price_pro_m":  TierPro,
			"price_pro_y":  TierPro,
			"price_ent_m":  TierEnterprise,
			"price_max_y":  TierMaximum,
		}
		for priceID, want := range cases {
			if got := ResolveTier("", priceID, prices); got != want {
				t.Errorf("price %s: expected %s, got %s", priceID, want, got)
			}
		}
	})

	t.Run("unmapped price id without metadata falls back to pro", func(t *testing.T) {
		if got := ResolveTier("", "price_unknown", prices); got != TierPro {
			t.Errorf("expected pro fallback, got %s", got)
		}
	})

	t.Run("garbage metadata tier is ignored", func(t *testing.T) {
		if got := ResolveTier("platinum", "price_lite_m", prices); got != TierLite {
			t.Errorf("expected lite from price map, got %s", got)
		}
	})

	t.Run("nil map still resolves via metadata and default", func(t *testing.T) {
		if got := ResolveTier("maximum", "whatever", nil); got != TierMaximum {
			t.Errorf("expected maximum, got %s", got)
		}
		if got := ResolveTier("", "whatever", nil); got != TierPro {
			t.Errorf("expected pro, got %s", got)
		}
	})
}

func TestPriceFor(t *testing.T) {
	prices := testPriceMap(t)

	if id, ok := prices.PriceFor(TierPro, CycleAnnual); !ok || id != "price_pro_y" {
		t.Errorf("expected price_pro_y, got %q (ok=%v)", id, ok)
	}
	if _, ok := prices.PriceFor(TierMaximum, CycleMonthly); ok {
		t.Error("expected unconfigured slot to miss")
	}
}

func TestNormalizeStatus(t *testing.T) {
	t.Run("covers the full provider status table", func(t *testing.T) {
		cases := map[string]SubscriptionStatus{
			"active":             StatusActive,
			"canceled":           StatusCancelled,
			"past_due":           StatusPastDue,
			"trialing":           StatusTrialing,
			"unpaid":             StatusExpired,
			"incomplete":         StatusPending,
			"incomplete_expired": StatusExpired,
		}
		for in, want := range cases {
			got, err := NormalizeStatus(in)
			if err != nil {
				t.Fatalf("status %q: expected no error, got: %v", in, err)
			}
			if got != want {
				t.Errorf("status %q: expected %s, got %s", in, want, got)
			}
		}
	})

	t.Run("unknown status is an error, never a default", func(t *testing.T) {
		_, err := NormalizeStatus("paused")
		if !errors.Is(err, domain.ErrUnknownStatus) {
			t.Errorf("expected ErrUnknownStatus, got: %v", err)
		}
	})
}

func TestCycleAndSeats(t *testing.T) {
	if got := CycleFromInterval("year"); got != CycleAnnual {
		t.Errorf("expected annual, got %s", got)
	}
	if got := CycleFromInterval("month"); got != CycleMonthly {
		t.Errorf("expected monthly, got %s", got)
	}
	if got := CycleFromInterval(""); got != CycleMonthly {
		t.Errorf("expected monthly for empty interval, got %s", got)
	}
	if got := ResolveCycle("annual", "month"); got != CycleAnnual {
		t.Errorf("expected metadata cycle to win, got %s", got)
	}
	if got := ResolveCycle("biweekly", "year"); got != CycleAnnual {
		t.Errorf("expected fallback to interval, got %s", got)
	}

	if got := NormalizeSeats(7); got != 7 {
		t.Errorf("expected 7 seats, got %d", got)
	}
	if got := NormalizeSeats(0); got != 1 {
		t.Errorf("expected seat default 1, got %d", got)
	}
	if got := NormalizeSeats(-3); got != 1 {
		t.Errorf("expected seat default 1, got %d", got)
	}
}

func TestPeriodFromEpoch(t *testing.T) {
	start, end := PeriodFromEpoch(1700000000, 1702592000)
	if start == nil || end == nil {
		t.Fatal("expected both boundaries to be set")
	}
	if !start.Equal(time.Unix(1700000000, 0)) || !end.Equal(time.Unix(1702592000, 0)) {
		t.Errorf("unexpected boundaries: %v .. %v", start, end)
	}

	start, end = PeriodFromEpoch(0, 0)
	if start != nil || end != nil {
		t.Error("expected zero epochs to yield nil boundaries")
	}
}

func TestSubscriptionRecordValidate(t *testing.T) {
	now := time.Now()
	later := now.Add(30 * 24 * time.Hour)

	valid := SubscriptionRecord{
		UserID:             "user-1",
		Tier:               TierPro,
		Status:             StatusActive,
		BillingCycle:       CycleMonthly,
		CurrentPeriodStart: &now,
		CurrentPeriodEnd:   &later,
		Seats:              1,
		UpdatedAt:          now,
	}

	t.Run("valid record passes", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
	})

	t.Run("missing user id fails", func(t *testing.T) {
		r := valid
		r.UserID = ""
		if !errors.Is(r.Validate(), domain.ErrMissingUserID) {
			t.Error("expected ErrMissingUserID")
		}
	})

	t.Run("tier outside the closed set fails", func(t *testing.T) {
		r := valid
		r.Tier = "platinum"
		if !errors.Is(r.Validate(), domain.ErrInvalidArgument) {
			t.Error("expected ErrInvalidArgument")
		}
	})

	t.Run("period end before start fails", func(t *testing.T) {
		r := valid
		r.CurrentPeriodStart = &later
		r.CurrentPeriodEnd = &now
		if !errors.Is(r.Validate(), domain.ErrInvalidArgument) {
			t.Error("expected ErrInvalidArgument")
		}
	})

	t.Run("zero seats fail", func(t *testing.T) {
		r := valid
		r.Seats = 0
		if !errors.Is(r.Validate(), domain.ErrInvalidArgument) {
			t.Error("expected ErrInvalidArgument")
		}
	})
}
