package entities

import (
	"encoding/json"
	"time"

	"github.com/bitebliss/bitebliss-engine/pkg/internal/api"
)

type Category struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// Recipe is the public shape of a recipe. Ingredients and Instructions are
// null in the locked projection served to callers below the required tier.
type Recipe struct {
	ID           uint            `json:"id"`
	DocumentID   string          `json:"documentId"`
	Title        string          `json:"title"`
	Slug         string          `json:"slug"`
	Description  string          `json:"description"`
	Ingredients  json.RawMessage `json:"ingredients"`
	Instructions json.RawMessage `json:"instructions"`
	CookingTime  *int            `json:"cookingTime"`
	Servings     *int            `json:"servings"`
	IsPremium    bool            `json:"isPremium"`
	ViewCount    int64           `json:"viewCount"`
	Image        *string         `json:"image"`
	Category     *Category       `json:"category"`
	PublishedAt  *time.Time      `json:"publishedAt"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`

	IsLocked        bool   `json:"isLocked,omitempty"`
	UpgradeRequired bool   `json:"upgradeRequired,omitempty"`
	UpgradeMessage  string `json:"upgradeMessage,omitempty"`
}

type RecipeListMeta struct {
	Pagination       api.Pagination `json:"pagination"`
	SubscriptionTier int            `json:"subscriptionTier"`
}

type RecipeListResponse struct {
	Data []Recipe       `json:"data"`
	Meta RecipeListMeta `json:"meta"`
}

type RecipeResponse struct {
	Data Recipe `json:"data"`
}

type CookingTimeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type RecipeFiltersResponse struct {
	Categories       []Category       `json:"categories"`
	CookingTimeRange CookingTimeRange `json:"cookingTimeRange"`
}

type GenerateRecipeRequest struct {
	Prompt string `json:"prompt"`
}

type GenerateRecipeResponse struct {
	Message string `json:"message"`
	Recipe  Recipe `json:"recipe"`
}
