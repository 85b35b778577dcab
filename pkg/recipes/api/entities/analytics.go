package entities

import "time"

// Money amounts are decimal strings with two fraction digits.
type RevenueMetrics struct {
	MRR                      string `json:"mrr"`
	ARR                      string `json:"arr"`
	ThisMonthRevenue         string `json:"thisMonthRevenue"`
	PremiumRevenue           string `json:"premiumRevenue"`
	VIPRevenue               string `json:"vipRevenue"`
	TotalActiveSubscriptions int    `json:"totalActiveSubscriptions"`
}

type SubscriberMetrics struct {
	TotalUsers                int64  `json:"totalUsers"`
	FreeUsers                 int64  `json:"freeUsers"`
	PremiumUsers              int    `json:"premiumUsers"`
	VIPUsers                  int    `json:"vipUsers"`
	ActiveSubscriptions       int    `json:"activeSubscriptions"`
	NewSignupsThisWeek        int64  `json:"newSignupsThisWeek"`
	NewSubscriptionsThisMonth int    `json:"newSubscriptionsThisMonth"`
	ChurnRate                 string `json:"churnRate"`
	CanceledThisMonth         int    `json:"canceledThisMonth"`
}

type CategoryRecipeCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type TopRecipe struct {
	Title string `json:"title"`
	Views int64  `json:"views"`
	Slug  string `json:"slug"`
}

type ContentMetrics struct {
	TotalRecipes      int64                 `json:"totalRecipes"`
	FreeRecipes       int64                 `json:"freeRecipes"`
	PremiumRecipes    int64                 `json:"premiumRecipes"`
	RecipesByCategory []CategoryRecipeCount `json:"recipesByCategory"`
	TopRecipes        []TopRecipe           `json:"topRecipes"`
}

type DashboardOverview struct {
	Revenue     RevenueMetrics    `json:"revenue"`
	Subscribers SubscriberMetrics `json:"subscribers"`
	Content     ContentMetrics    `json:"content"`
	GeneratedAt time.Time         `json:"generatedAt"`
}
