package model

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubscriptionPlan is a purchasable tier. At most one active plan exists per
// tier, and the tier 0 plan is free.
type SubscriptionPlan struct {
	gorm.Model

	Name                string `gorm:"not null"`
	Description         string
	PriceMonthly        decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	PriceYearly         decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Tier                int             `gorm:"not null;index;uniqueIndex:idx_subscription_plans_active_tier,where:is_active = true AND deleted_at IS NULL"`
	Features            datatypes.JSON
	IsActive            bool    `gorm:"not null"`
	StripePriceID       *string `gorm:"index"`
	StripeYearlyPriceID *string `gorm:"index"`
}
