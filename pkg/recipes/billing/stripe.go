package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/model"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"
)

const metadataUserID = "userId"

type StripeProvider struct {
	logger        *zap.Logger
	api           *client.API
	webhookSecret string
	timeout       time.Duration
}

func NewStripeProvider(logger *zap.Logger, secretKey, webhookSecret string, timeout time.Duration) *StripeProvider {
	sc := &client.API{}
	sc.Init(secretKey, nil)

	return &StripeProvider{
		logger:        logger.Named("stripe"),
		api:           sc,
		webhookSecret: webhookSecret,
		timeout:       timeout,
	}
}

func (p *StripeProvider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

func (p *StripeProvider) CreateCustomer(ctx context.Context, user model.User) (string, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Metadata: map[string]string{
			metadataUserID: strconv.FormatUint(uint64(user.ID), 10),
		},
	}
	if user.Username != "" {
		params.Name = stripe.String(user.Username)
	}
	params.Context = ctx

	c, err := p.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	return c.ID, nil
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(req.CustomerID),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		Metadata: map[string]string{
			metadataUserID: strconv.FormatUint(uint64(req.UserID), 10),
		},
	}
	params.Context = ctx

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (p *StripeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	s, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return s.URL, nil
}

func (p *StripeProvider) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx

	if _, err := p.api.Subscriptions.Update(subscriptionID, params); err != nil {
		return fmt.Errorf("cancel subscription %s: %w", subscriptionID, err)
	}
	return nil
}

func (p *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	s, err := p.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", subscriptionID, err)
	}
	return toSubscription(s)
}

func toSubscription(s *stripe.Subscription) (*Subscription, error) {
	if s.Items == nil || len(s.Items.Data) == 0 || s.Items.Data[0].Price == nil {
		return nil, fmt.Errorf("subscription %s has no priced items", s.ID)
	}
	price := s.Items.Data[0].Price

	res := &Subscription{
		ID:                s.ID,
		Status:            string(s.Status),
		PriceID:           price.ID,
		UnitAmount:        price.UnitAmount,
		Currency:          string(price.Currency),
		PeriodStart:       time.Unix(s.CurrentPeriodStart, 0).UTC(),
		PeriodEnd:         time.Unix(s.CurrentPeriodEnd, 0).UTC(),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
	}
	if s.Customer != nil {
		res.CustomerID = s.Customer.ID
	}
	return res, nil
}

func (p *StripeProvider) ConstructEvent(payload []byte, signature string) (Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return decodeEvent(ev)
}

func decodeEvent(ev stripe.Event) (Event, error) {
	env := Envelope{
		ID:        ev.ID,
		Type:      string(ev.Type),
		CreatedAt: time.Unix(ev.Created, 0).UTC(),
	}

	var raw json.RawMessage
	if ev.Data != nil {
		raw = ev.Data.Raw
	}

	switch ev.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out := CheckoutCompleted{Envelope: env, SessionID: s.ID}
		if s.Subscription != nil {
			out.SubscriptionID = s.Subscription.ID
		}
		if s.Customer != nil {
			out.CustomerID = s.Customer.ID
		}
		if v := s.Metadata[metadataUserID]; v != "" {
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid %s metadata %q: %w", metadataUserID, v, err)
			}
			out.UserID = uint(id)
		}
		return out, nil

	case stripe.EventTypeCustomerSubscriptionUpdated:
		var s stripe.Subscription
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		return SubscriptionUpdated{
			Envelope:          env,
			SubscriptionID:    s.ID,
			Status:            string(s.Status),
			PeriodStart:       unixTime(s.CurrentPeriodStart),
			PeriodEnd:         unixTime(s.CurrentPeriodEnd),
			CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		}, nil

	case stripe.EventTypeCustomerSubscriptionDeleted:
		var s stripe.Subscription
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		return SubscriptionDeleted{Envelope: env, SubscriptionID: s.ID}, nil

	case stripe.EventTypeInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(raw, &inv); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		out := PaymentFailed{Envelope: env, InvoiceID: inv.ID}
		if inv.Subscription != nil {
			out.SubscriptionID = inv.Subscription.ID
		}
		return out, nil

	default:
		return Unhandled{Envelope: env}, nil
	}
}

func unixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// IsInvalidSignature reports whether err came from signature verification.
func IsInvalidSignature(err error) bool {
	return errors.Is(err, ErrInvalidSignature)
}
