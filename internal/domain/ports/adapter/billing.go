package adapter

import (
	"context"

	"billing-sync/internal/domain/model"
)

// CheckoutParams describes a checkout session to create for a user.
type CheckoutParams struct {
	UserID  string
	Tier    model.Tier
	Cycle   model.BillingCycle
	PriceID string
}

// CheckoutRedirect is what the caller needs to hand the user off to the
// provider-hosted checkout page.
type CheckoutRedirect struct {
	URL       string
	SessionID string
}

// BillingProvider is the boundary to the billing provider. VerifyWebhook
// must validate the signature before any parsing of the payload.
type BillingProvider interface {
	Name() string
	VerifyWebhook(payload []byte, signature string) (*model.WebhookEvent, error)
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutRedirect, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*model.ProviderSession, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*model.ProviderSubscription, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error
}
