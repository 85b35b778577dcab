package model

import (
	"time"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	// SubscriptionStatusFree is reported for users without a record. It is never stored.
	SubscriptionStatusFree SubscriptionStatus = "free"
)

// UserSubscription is the single subscription record of a user. Records are
// never deleted; cancellation is a status change.
type UserSubscription struct {
	ID     uint `gorm:"primarykey"`
	UserID uint `gorm:"not null;uniqueIndex"`
	User   *User

	PlanID *uint
	Plan   *SubscriptionPlan

	Status               SubscriptionStatus `gorm:"not null;index"`
	StripeCustomerID     *string
	StripeSubscriptionID *string `gorm:"index"`
	CurrentPeriodStart   *time.Time
	CurrentPeriodEnd     *time.Time
	CancelAtPeriodEnd    bool `gorm:"not null"`
	CanceledAt           *time.Time
	// LastEventAt is the creation time of the last provider event applied to the record.
	LastEventAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
