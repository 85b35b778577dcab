package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/repo"
	"github.com/go-errors/errors"
	"go.uber.org/zap"
)

var (
	ErrPriceRequired        = errors.New("Price ID is required")
	ErrUserNotFound         = errors.New("user not found")
	ErrNoSubscription       = errors.New("No subscription found")
	ErrNoActiveSubscription = errors.New("No active subscription found")
)

const CancelScheduledMessage = "Subscription will be canceled at the end of the billing period"

// Service runs the user facing billing flows against the provider and keeps
// the local user and subscription records in step.
type Service struct {
	logger    *zap.Logger
	provider  Provider
	users     repo.UserRepo
	subs      repo.SubscriptionRepo
	clientURL string
}

func NewService(logger *zap.Logger, provider Provider, users repo.UserRepo, subs repo.SubscriptionRepo, clientURL string) *Service {
	return &Service{
		logger:    logger.Named("billing"),
		provider:  provider,
		users:     users,
		subs:      subs,
		clientURL: strings.TrimSuffix(clientURL, "/"),
	}
}

func (s *Service) SuccessURL() string {
	return s.clientURL + "/subscription/success?session_id={CHECKOUT_SESSION_ID}"
}

func (s *Service) CancelURL() string {
	return s.clientURL + "/subscription"
}

func (s *Service) PortalReturnURL() string {
	return s.clientURL + "/account/subscription"
}

// Checkout opens a provider checkout session for the price, creating the
// provider customer for the user on first use.
func (s *Service) Checkout(ctx context.Context, userID uint, priceID string) (*CheckoutSession, error) {
	priceID = strings.TrimSpace(priceID)
	if priceID == "" {
		return nil, ErrPriceRequired
	}

	customerID, err := s.ensureCustomer(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.provider.CreateCheckoutSession(ctx, CheckoutRequest{
		CustomerID: customerID,
		PriceID:    priceID,
		UserID:     userID,
		SuccessURL: s.SuccessURL(),
		CancelURL:  s.CancelURL(),
	})
}

func (s *Service) ensureCustomer(ctx context.Context, userID uint) (string, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load user %d: %w", userID, err)
	}
	if user == nil {
		return "", ErrUserNotFound
	}
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}

	customerID, err := s.provider.CreateCustomer(ctx, *user)
	if err != nil {
		return "", err
	}
	if _, err := s.users.LinkCustomer(ctx, user.ID, customerID); err != nil {
		s.logger.Error("failed to store customer id",
			zap.Uint("user_id", user.ID),
			zap.String("customer_id", customerID),
			zap.Error(err))
	}
	return customerID, nil
}

// Portal returns the provider's self-service billing portal URL.
func (s *Service) Portal(ctx context.Context, userID uint) (string, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load user %d: %w", userID, err)
	}
	if user == nil || user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return "", ErrNoSubscription
	}
	return s.provider.CreatePortalSession(ctx, *user.StripeCustomerID, s.PortalReturnURL())
}

// Cancel schedules cancellation at the end of the current period. The
// provider is updated first; the local flag follows.
func (s *Service) Cancel(ctx context.Context, userID uint) error {
	sub, err := s.subs.GetByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load subscription of user %d: %w", userID, err)
	}
	if sub == nil || sub.StripeSubscriptionID == nil || *sub.StripeSubscriptionID == "" {
		return ErrNoActiveSubscription
	}

	if err := s.provider.CancelAtPeriodEnd(ctx, *sub.StripeSubscriptionID); err != nil {
		return err
	}
	return s.subs.SetCancelAtPeriodEnd(ctx, userID, true)
}
