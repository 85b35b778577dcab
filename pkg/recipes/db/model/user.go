package model

import "time"

type User struct {
	ID               uint   `gorm:"primarykey"`
	Username         string `gorm:"not null"`
	Email            string `gorm:"not null;uniqueIndex"`
	StripeCustomerID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
