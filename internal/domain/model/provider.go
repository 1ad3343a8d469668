// File: internal/domain/model/provider.go
package model

// Narrow projections of the billing provider's objects. Everything the
// reconciliation engine reads from the provider SDK crosses this boundary,
// so SDK drift stays contained in the adapter.

type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout.session.completed"
	EventSubscriptionCreated EventType = "customer.subscription.created"
	EventSubscriptionUpdated EventType = "customer.subscription.updated"
	EventSubscriptionDeleted EventType = "customer.subscription.deleted"
	EventInvoicePaid         EventType = "invoice.payment_succeeded"
	EventInvoiceFailed       EventType = "invoice.payment_failed"
)

// WebhookEvent is a verified, classified provider event. Exactly one of
// Session, Subscription or Invoice is set for the known event types;
// all three are nil for event types this engine ignores.
type WebhookEvent struct {
	ID           string
	Type         EventType
	Session      *ProviderSession
	Subscription *ProviderSubscription
	Invoice      *ProviderInvoice
}

// ProviderSession mirrors the fields of a provider checkout session this
// engine needs.
type ProviderSession struct {
	ID                string
	ClientReferenceID string
	CustomerID        string
	SubscriptionID    string
	Status            string // open | complete | expired
	PaymentStatus     string // paid | unpaid | no_payment_required
	Metadata          map[string]string
}

// ProviderSubscription mirrors a provider subscription: metadata plus the
// first line item's price, quantity and recurring interval, and the current
// period boundaries as epoch seconds.
type ProviderSubscription struct {
	ID                string
	CustomerID        string
	Status            string
	Metadata          map[string]string
	PriceID           string
	Quantity          int64
	Interval          string // month | year
	PeriodStart       int64
	PeriodEnd         int64
	CancelAtPeriodEnd bool
}

// UserID returns the account id stamped into the subscription metadata at
// checkout time, or "" when absent.
func (s *ProviderSubscription) UserID() string {
	if s == nil {
		return ""
	}
	return s.Metadata["userId"]
}

// MetaTier returns the operator-intent tier from metadata, or "".
func (s *ProviderSubscription) MetaTier() string {
	if s == nil {
		return ""
	}
	return s.Metadata["tier"]
}

// ProviderInvoice carries the subscription reference of an invoice event.
type ProviderInvoice struct {
	ID             string
	CustomerID     string
	SubscriptionID string
}
