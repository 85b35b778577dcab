package entities

import (
	"encoding/json"
	"time"

	"github.com/bitebliss/bitebliss-engine/pkg/internal/api"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/model"
	"github.com/shopspring/decimal"
)

type Plan struct {
	ID                  uint            `json:"id"`
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	Price               string          `json:"price"`
	YearlyPrice         string          `json:"yearlyPrice"`
	Tier                int             `json:"tier"`
	Features            json.RawMessage `json:"features"`
	IsActive            bool            `json:"isActive"`
	StripePriceID       *string         `json:"stripePriceId"`
	StripeYearlyPriceID *string         `json:"stripeYearlyPriceId"`
}

func NewPlan(p model.SubscriptionPlan) Plan {
	features := json.RawMessage("[]")
	if len(p.Features) > 0 {
		features = json.RawMessage(p.Features)
	}
	return Plan{
		ID:                  p.ID,
		Name:                p.Name,
		Description:         p.Description,
		Price:               p.PriceMonthly.StringFixed(2),
		YearlyPrice:         p.PriceYearly.StringFixed(2),
		Tier:                p.Tier,
		Features:            features,
		IsActive:            p.IsActive,
		StripePriceID:       p.StripePriceID,
		StripeYearlyPriceID: p.StripeYearlyPriceID,
	}
}

type CreatePlanRequest struct {
	Name                string          `json:"name" validate:"required"`
	Description         string          `json:"description"`
	Price               decimal.Decimal `json:"price"`
	YearlyPrice         decimal.Decimal `json:"yearlyPrice"`
	Tier                int             `json:"tier" validate:"min=0,max=2"`
	Features            []string        `json:"features"`
	IsActive            *bool           `json:"isActive"`
	StripePriceID       string          `json:"stripePriceId"`
	StripeYearlyPriceID string          `json:"stripeYearlyPriceId"`
}

type PlanListResponse struct {
	Data []Plan `json:"data"`
}

type PlanResponse struct {
	Data Plan `json:"data"`
}

type SubscriberUser struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Subscription is a subscription record, or the synthetic free plan view for
// users without one (zero ID, status "free").
type Subscription struct {
	ID                   uint            `json:"id,omitempty"`
	Status               string          `json:"status"`
	IsActive             bool            `json:"isActive"`
	Plan                 *Plan           `json:"plan"`
	User                 *SubscriberUser `json:"user,omitempty"`
	StripeCustomerID     *string         `json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID *string         `json:"stripeSubscriptionId,omitempty"`
	CurrentPeriodStart   *time.Time      `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd     *time.Time      `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd    bool            `json:"cancelAtPeriodEnd"`
	CanceledAt           *time.Time      `json:"canceledAt,omitempty"`
	CreatedAt            *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt            *time.Time      `json:"updatedAt,omitempty"`
}

func NewSubscription(s model.UserSubscription) Subscription {
	res := Subscription{
		ID:                   s.ID,
		Status:               string(s.Status),
		IsActive:             s.Status == model.SubscriptionStatusActive,
		StripeCustomerID:     s.StripeCustomerID,
		StripeSubscriptionID: s.StripeSubscriptionID,
		CurrentPeriodStart:   s.CurrentPeriodStart,
		CurrentPeriodEnd:     s.CurrentPeriodEnd,
		CancelAtPeriodEnd:    s.CancelAtPeriodEnd,
		CanceledAt:           s.CanceledAt,
		CreatedAt:            &s.CreatedAt,
		UpdatedAt:            &s.UpdatedAt,
	}
	if s.Plan != nil {
		p := NewPlan(*s.Plan)
		res.Plan = &p
	}
	if s.User != nil {
		res.User = &SubscriberUser{
			ID:        s.User.ID,
			Username:  s.User.Username,
			Email:     s.User.Email,
			CreatedAt: s.User.CreatedAt,
		}
	}
	return res
}

// FreeSubscription is reported to users that never subscribed.
func FreeSubscription(plan *model.SubscriptionPlan) Subscription {
	res := Subscription{
		Status:   string(model.SubscriptionStatusFree),
		IsActive: true,
	}
	if plan != nil {
		p := NewPlan(*plan)
		res.Plan = &p
	}
	return res
}

type CheckoutRequest struct {
	PriceID string `json:"priceId"`
}

type CheckoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type PortalResponse struct {
	URL string `json:"url"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type SubscriberListResponse struct {
	Data       []Subscription `json:"data"`
	Pagination api.Pagination `json:"pagination"`
}

type GrantAccessRequest struct {
	UserID uint `json:"userId"`
	PlanID uint `json:"planId"`
}

type SendEmailRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type WebhookResponse struct {
	Received bool   `json:"received,omitempty"`
	Error    string `json:"error,omitempty"`
}
