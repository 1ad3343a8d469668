//go:build !integration

package usecase_test

import (
	"context"
	"sync"
	"testing"

	"billing-sync/internal/domain"
	"billing-sync/internal/domain/model"
	"billing-sync/internal/domain/ports/adapter"
)

// ---- Billing provider mock ----

type fakeProvider struct {
	event     *model.WebhookEvent
	verifyErr error

	subs   map[string]*model.ProviderSubscription
	subErr error

	session *model.ProviderSession
	sessErr error

	checkout    *adapter.CheckoutRedirect
	checkoutErr error

	cancelErr error
	cancelled []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) VerifyWebhook(payload []byte, signature string) (*model.WebhookEvent, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.event, nil
}

func (f *fakeProvider) CreateCheckoutSession(ctx context.Context, p adapter.CheckoutParams) (*adapter.CheckoutRedirect, error) {
	if f.checkoutErr != nil {
		return nil, f.checkoutErr
	}
	return f.checkout, nil
}

func (f *fakeProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*model.ProviderSession, error) {
	if f.sessErr != nil {
		return nil, f.sessErr
	}
	return f.session, nil
}

func (f *fakeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*model.ProviderSubscription, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	sub, ok := f.subs[subscriptionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return sub, nil
}

func (f *fakeProvider) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, subscriptionID)
	return nil
}

// ---- Subscription store mock ----

type memStore struct {
	mu          sync.Mutex
	records     map[string]*model.SubscriptionRecord
	upsertErr   error
	findErr     error
	upsertCalls int
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*model.SubscriptionRecord)}
}

func (s *memStore) Upsert(ctx context.Context, rec *model.SubscriptionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls++
	if s.upsertErr != nil {
		return s.upsertErr
	}
	cp := *rec
	s.records[rec.UserID] = &cp
	return nil
}

func (s *memStore) Find(ctx context.Context, userID string) (*model.SubscriptionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	rec, ok := s.records[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *memStore) get(t *testing.T, userID string) *model.SubscriptionRecord {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		t.Fatalf("expected a stored record for %s", userID)
	}
	return rec
}

// ---- Notification dispatcher mock ----

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []adapter.Notification
}

func (d *recordingDispatcher) Dispatch(n adapter.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
}

func (d *recordingDispatcher) all() []adapter.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]adapter.Notification(nil), d.sent...)
}

// ---- Usage counter mock ----

type fakeUsage struct {
	used int
	err  error
}

func (f *fakeUsage) EliteQueriesUsed(ctx context.Context, userID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.used, nil
}

// ---- Shared fixtures ----

func testPrices(t *testing.T) *model.PriceTierMap {
	t.Helper()
	m, err := model.NewPriceTierMap([]model.PriceEntry{
		{PriceID: "price_lite_m", Tier: model.TierLite, Cycle: model.CycleMonthly},
		{PriceID: "price_pro_m", Tier: model.TierPro, Cycle: model.CycleMonthly},
		{PriceID: "price_pro_y", Tier: model.TierPro, Cycle: model.CycleAnnual},
		{PriceID: "price_ent_m", Tier: model.TierEnterprise, Cycle: model.CycleMonthly},
	})
	if err != nil {
		t.Fatalf("price map: %v", err)
	}
	return m
}
