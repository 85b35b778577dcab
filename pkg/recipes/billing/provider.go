package billing

import (
	"context"
	"errors"

	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/model"
)

var ErrInvalidSignature = errors.New("webhook signature verification failed")

//go:generate mockery --name Provider
type Provider interface {
	CreateCustomer(ctx context.Context, user model.User) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	// ConstructEvent verifies the signature header against the raw payload
	// and decodes the event.
	ConstructEvent(payload []byte, signature string) (Event, error)
}
