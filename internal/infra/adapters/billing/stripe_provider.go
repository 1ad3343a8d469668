// File: internal/infra/adapters/billing/stripe_provider.go
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"billing-sync/internal/config"
	"billing-sync/internal/domain"
	"billing-sync/internal/domain/model"
	"billing-sync/internal/domain/ports/adapter"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
)

var _ adapter.BillingProvider = (*StripeProvider)(nil)

// StripeProvider implements adapter.BillingProvider against the Stripe API.
// All reads of Stripe objects are translated into the narrow model types
// here; nothing outside this package touches the SDK.
type StripeProvider struct {
	sc            *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
}

// NewStripeProvider builds the provider. Missing keys are tolerated at
// construction time so the service can boot and answer health checks; each
// operation fails with domain.ErrNotConfigured until keys are supplied.
func NewStripeProvider(cfg *config.StripeConfig) *StripeProvider {
	p := &StripeProvider{
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
	}
	if cfg.SecretKey != "" {
		sc := &client.API{}
		// The SDK default backend waits up to 80s; provider reads sit on
		// user-facing request paths, so bound them like the store client.
		sc.Init(cfg.SecretKey, stripe.NewBackends(&http.Client{Timeout: 10 * time.Second}))
		p.sc = sc
	}
	return p
}

func (p *StripeProvider) Name() string { return "stripe" }

// VerifyWebhook checks the signature over the raw payload before anything
// is parsed. A missing secret or header is a failure, not a pass-through.
func (p *StripeProvider) VerifyWebhook(payload []byte, signature string) (*model.WebhookEvent, error) {
	if p.webhookSecret == "" {
		return nil, domain.ErrNotConfigured
	}
	if signature == "" {
		return nil, fmt.Errorf("%w: missing signature header", domain.ErrVerificationFailed)
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVerificationFailed, err)
	}
	return parseEvent(ev)
}

// Webhook payload projections. In webhook bodies the customer and
// subscription references arrive as plain id strings.
type sessionPayload struct {
	ID                string            `json:"id"`
	ClientReferenceID string            `json:"client_reference_id"`
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	Status            string            `json:"status"`
	PaymentStatus     string            `json:"payment_status"`
	Metadata          map[string]string `json:"metadata"`
}

type subscriptionPayload struct {
	ID                 string            `json:"id"`
	Customer           string            `json:"customer"`
	Status             string            `json:"status"`
	Metadata           map[string]string `json:"metadata"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	Items              struct {
		Data []struct {
			Quantity int64 `json:"quantity"`
			Price    struct {
				ID        string `json:"id"`
				Recurring struct {
					Interval string `json:"interval"`
				} `json:"recurring"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

type invoicePayload struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
}

func parseEvent(ev stripe.Event) (*model.WebhookEvent, error) {
	out := &model.WebhookEvent{ID: ev.ID, Type: model.EventType(ev.Type)}
	switch out.Type {
	case model.EventCheckoutCompleted:
		var s sessionPayload
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("parse checkout session: %w", err)
		}
		out.Session = &model.ProviderSession{
			ID:                s.ID,
			ClientReferenceID: s.ClientReferenceID,
			CustomerID:        s.Customer,
			SubscriptionID:    s.Subscription,
			Status:            s.Status,
			PaymentStatus:     s.PaymentStatus,
			Metadata:          s.Metadata,
		}
	case model.EventSubscriptionCreated, model.EventSubscriptionUpdated, model.EventSubscriptionDeleted:
		var s subscriptionPayload
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("parse subscription: %w", err)
		}
		out.Subscription = subscriptionFromPayload(&s)
	case model.EventInvoicePaid, model.EventInvoiceFailed:
		var inv invoicePayload
		if err := json.Unmarshal(ev.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("parse invoice: %w", err)
		}
		out.Invoice = &model.ProviderInvoice{ID: inv.ID, CustomerID: inv.Customer, SubscriptionID: inv.Subscription}
	default:
		// Unknown event types are acknowledged upstream; nothing to parse.
	}
	return out, nil
}

func subscriptionFromPayload(s *subscriptionPayload) *model.ProviderSubscription {
	out := &model.ProviderSubscription{
		ID:                s.ID,
		CustomerID:        s.Customer,
		Status:            s.Status,
		Metadata:          s.Metadata,
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		PeriodStart:       s.CurrentPeriodStart,
		PeriodEnd:         s.CurrentPeriodEnd,
	}
	if len(s.Items.Data) > 0 {
		item := s.Items.Data[0]
		out.Quantity = item.Quantity
		out.PriceID = item.Price.ID
		out.Interval = item.Price.Recurring.Interval
	}
	return out
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, cp adapter.CheckoutParams) (*adapter.CheckoutRedirect, error) {
	if p.sc == nil {
		return nil, domain.ErrNotConfigured
	}
	meta := map[string]string{
		"userId":        cp.UserID,
		"tier":          string(cp.Tier),
		"billing_cycle": string(cp.Cycle),
	}
	params := &stripe.CheckoutSessionParams{
		Params:            stripe.Params{Context: ctx},
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(p.successURL),
		CancelURL:         stripe.String(p.cancelURL),
		ClientReferenceID: stripe.String(cp.UserID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(cp.PriceID),
			Quantity: stripe.Int64(1),
		}},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: meta,
		},
	}
	params.Metadata = meta
	sess, err := p.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &adapter.CheckoutRedirect{URL: sess.URL, SessionID: sess.ID}, nil
}

func (p *StripeProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*model.ProviderSession, error) {
	if p.sc == nil {
		return nil, domain.ErrNotConfigured
	}
	sess, err := p.sc.CheckoutSessions.Get(sessionID, &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	out := &model.ProviderSession{
		ID:                sess.ID,
		ClientReferenceID: sess.ClientReferenceID,
		Status:            string(sess.Status),
		PaymentStatus:     string(sess.PaymentStatus),
		Metadata:          sess.Metadata,
	}
	if sess.Customer != nil {
		out.CustomerID = sess.Customer.ID
	}
	if sess.Subscription != nil {
		out.SubscriptionID = sess.Subscription.ID
	}
	return out, nil
}

func (p *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*model.ProviderSubscription, error) {
	if p.sc == nil {
		return nil, domain.ErrNotConfigured
	}
	sub, err := p.sc.Subscriptions.Get(subscriptionID, &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	out := &model.ProviderSubscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		Metadata:          sub.Metadata,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		PeriodStart:       sub.CurrentPeriodStart,
		PeriodEnd:         sub.CurrentPeriodEnd,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		out.Quantity = item.Quantity
		if item.Price != nil {
			out.PriceID = item.Price.ID
			if item.Price.Recurring != nil {
				out.Interval = string(item.Price.Recurring.Interval)
			}
		}
	}
	return out, nil
}

func (p *StripeProvider) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	if p.sc == nil {
		return domain.ErrNotConfigured
	}
	_, err := p.sc.Subscriptions.Update(subscriptionID, &stripe.SubscriptionParams{
		Params:            stripe.Params{Context: ctx},
		CancelAtPeriodEnd: stripe.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("cancel at period end: %w", err)
	}
	return nil
}
