package billing

import "time"

// Event is a decoded provider webhook event: one of CheckoutCompleted,
// SubscriptionUpdated, SubscriptionDeleted, PaymentFailed or Unhandled.
type Event interface {
	EventID() string
	EventType() string
	OccurredAt() time.Time
}

// Envelope carries the fields shared by all events.
type Envelope struct {
	ID        string
	Type      string
	CreatedAt time.Time
}

func (e Envelope) EventID() string       { return e.ID }
func (e Envelope) EventType() string     { return e.Type }
func (e Envelope) OccurredAt() time.Time { return e.CreatedAt }

type CheckoutCompleted struct {
	Envelope

	SessionID      string
	SubscriptionID string
	CustomerID     string
	// UserID comes from the session metadata written at checkout creation.
	UserID uint
}

type SubscriptionUpdated struct {
	Envelope

	SubscriptionID    string
	Status            string
	PeriodStart       *time.Time
	PeriodEnd         *time.Time
	CancelAtPeriodEnd bool
}

type SubscriptionDeleted struct {
	Envelope

	SubscriptionID string
}

type PaymentFailed struct {
	Envelope

	InvoiceID      string
	SubscriptionID string
}

type Unhandled struct {
	Envelope
}

const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventPaymentFailed       = "invoice.payment_failed"
)

// Subscription is the provider's view of a subscription.
type Subscription struct {
	ID                string
	CustomerID        string
	Status            string
	PriceID           string
	UnitAmount        int64
	Currency          string
	PeriodStart       time.Time
	PeriodEnd         time.Time
	CancelAtPeriodEnd bool
}

type CheckoutRequest struct {
	CustomerID string
	PriceID    string
	UserID     uint
	SuccessURL string
	CancelURL  string
}

type CheckoutSession struct {
	ID  string
	URL string
}
