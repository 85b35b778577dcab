package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Category struct {
	ID          uint   `gorm:"primarykey"`
	Name        string `gorm:"not null;uniqueIndex"`
	Slug        string `gorm:"not null;uniqueIndex"`
	Description string

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Recipe struct {
	ID           uint   `gorm:"primarykey"`
	DocumentID   string `gorm:"not null;uniqueIndex"`
	Title        string `gorm:"not null"`
	Slug         string `gorm:"not null;uniqueIndex"`
	Description  string
	Ingredients  datatypes.JSON
	Instructions datatypes.JSON
	CookingTime  *int
	Servings     *int
	IsPremium    bool  `gorm:"not null;index"`
	ViewCount    int64 `gorm:"not null"`
	ImageURL     *string

	CategoryID *uint
	Category   *Category

	// PublishedAt is nil for drafts.
	PublishedAt *time.Time `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r *Recipe) BeforeCreate(*gorm.DB) error {
	if r.DocumentID == "" {
		r.DocumentID = uuid.NewString()
	}
	return nil
}
