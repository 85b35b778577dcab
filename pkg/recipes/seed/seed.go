// Package seed creates the default subscription plans on an empty database.
package seed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bitebliss/bitebliss-engine/pkg/recipes/config"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/model"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type planSpec struct {
	name         string
	description  string
	monthly      string
	yearly       string
	tier         int
	features     []string
	monthlyPrice string
	yearlyPrice  string
}

func defaultPlans(cfg config.Stripe) []planSpec {
	return []planSpec{
		{
			name:        "Free",
			description: "Access to basic recipes",
			monthly:     "0",
			yearly:      "0",
			tier:        0,
			features: []string{
				"Access to free recipes",
				"Basic search",
				"Save up to 10 favorites",
			},
		},
		{
			name:        "Premium",
			description: "Unlock all premium recipes",
			monthly:     "7.99",
			yearly:      "79.99",
			tier:        1,
			features: []string{
				"All free features",
				"Access to premium recipes",
				"Unlimited favorites",
				"Ad-free experience",
				"Meal planning tools",
			},
			monthlyPrice: cfg.PremiumMonthlyPriceID,
			yearlyPrice:  cfg.PremiumYearlyPriceID,
		},
		{
			name:        "Chef's Circle",
			description: "VIP access to everything",
			monthly:     "14.99",
			yearly:      "149.99",
			tier:        2,
			features: []string{
				"All premium features",
				"Exclusive chef masterclasses",
				"Priority support",
				"Early access to new recipes",
				"Downloadable recipe PDFs",
			},
			monthlyPrice: cfg.ChefMonthlyPriceID,
			yearlyPrice:  cfg.ChefYearlyPriceID,
		},
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Plans creates the Free, Premium and Chef's Circle plans unless any plan
// exists. It reports how many plans were created.
func Plans(ctx context.Context, logger *zap.Logger, plans repo.PlanRepo, cfg config.Stripe) (int, error) {
	existing, err := plans.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count plans: %w", err)
	}
	if existing > 0 {
		logger.Info("subscription plans already present", zap.Int64("count", existing))
		return 0, nil
	}

	created := 0
	for _, spec := range defaultPlans(cfg) {
		features, err := json.Marshal(spec.features)
		if err != nil {
			return created, err
		}
		p := &model.SubscriptionPlan{
			Name:                spec.name,
			Description:         spec.description,
			PriceMonthly:        decimal.RequireFromString(spec.monthly),
			PriceYearly:         decimal.RequireFromString(spec.yearly),
			Tier:                spec.tier,
			Features:            datatypes.JSON(features),
			IsActive:            true,
			StripePriceID:       optional(spec.monthlyPrice),
			StripeYearlyPriceID: optional(spec.yearlyPrice),
		}
		if err := plans.Create(ctx, p); err != nil {
			return created, fmt.Errorf("create plan %s: %w", spec.name, err)
		}
		created++
		logger.Info("created plan", zap.String("name", p.Name), zap.Int("tier", p.Tier))
	}
	return created, nil
}
