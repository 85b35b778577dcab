// Package analytics computes the admin dashboard figures from the
// subscription, user and recipe tables.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/bitebliss/bitebliss-engine/pkg/recipes/api/entities"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/model"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	TierPremium = 1
	TierVIP     = 2

	topRecipesLimit = 10
)

type Service struct {
	logger  *zap.Logger
	users   repo.UserRepo
	subs    repo.SubscriptionRepo
	recipes repo.RecipeRepo
	now     func() time.Time
}

func New(logger *zap.Logger, users repo.UserRepo, subs repo.SubscriptionRepo, recipes repo.RecipeRepo) *Service {
	return &Service{
		logger:  logger.Named("analytics"),
		users:   users,
		subs:    subs,
		recipes: recipes,
		now:     time.Now,
	}
}

func (s *Service) Revenue(ctx context.Context) (entities.RevenueMetrics, error) {
	all, err := s.subs.ListAll(ctx)
	if err != nil {
		return entities.RevenueMetrics{}, fmt.Errorf("list subscriptions: %w", err)
	}

	var (
		mrr     = decimal.Zero
		premium = decimal.Zero
		vip     = decimal.Zero
		active  int
	)
	for _, sub := range all {
		if sub.Status != model.SubscriptionStatusActive {
			continue
		}
		active++
		if sub.Plan == nil {
			continue
		}
		price := sub.Plan.PriceMonthly
		mrr = mrr.Add(price)
		switch sub.Plan.Tier {
		case TierPremium:
			premium = premium.Add(price)
		case TierVIP:
			vip = vip.Add(price)
		}
	}

	return entities.RevenueMetrics{
		MRR:                      mrr.StringFixed(2),
		ARR:                      mrr.Mul(decimal.NewFromInt(12)).StringFixed(2),
		ThisMonthRevenue:         mrr.StringFixed(2),
		PremiumRevenue:           premium.StringFixed(2),
		VIPRevenue:               vip.StringFixed(2),
		TotalActiveSubscriptions: active,
	}, nil
}

func (s *Service) Subscribers(ctx context.Context) (entities.SubscriberMetrics, error) {
	now := s.now().UTC()
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, -1, 0)

	all, err := s.subs.ListAll(ctx)
	if err != nil {
		return entities.SubscriberMetrics{}, fmt.Errorf("list subscriptions: %w", err)
	}
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return entities.SubscriberMetrics{}, fmt.Errorf("count users: %w", err)
	}
	newSignups, err := s.users.CountCreatedSince(ctx, weekAgo)
	if err != nil {
		return entities.SubscriberMetrics{}, fmt.Errorf("count signups: %w", err)
	}

	var res entities.SubscriberMetrics
	for _, sub := range all {
		if !sub.CreatedAt.Before(monthAgo) {
			res.NewSubscriptionsThisMonth++
		}
		switch sub.Status {
		case model.SubscriptionStatusActive:
			res.ActiveSubscriptions++
			if sub.Plan != nil {
				switch sub.Plan.Tier {
				case TierPremium:
					res.PremiumUsers++
				case TierVIP:
					res.VIPUsers++
				}
			}
		case model.SubscriptionStatusCanceled:
			if sub.CanceledAt != nil && !sub.CanceledAt.Before(monthAgo) {
				res.CanceledThisMonth++
			}
		}
	}

	res.TotalUsers = totalUsers
	res.FreeUsers = totalUsers - int64(res.ActiveSubscriptions)
	if res.FreeUsers < 0 {
		res.FreeUsers = 0
	}
	res.NewSignupsThisWeek = newSignups
	res.ChurnRate = ChurnRate(res.CanceledThisMonth, res.ActiveSubscriptions)
	return res, nil
}

// ChurnRate is canceled over active as a percentage with one decimal.
func ChurnRate(canceled, active int) string {
	if active == 0 {
		return "0%"
	}
	rate := decimal.NewFromInt(int64(canceled)).
		Div(decimal.NewFromInt(int64(active))).
		Mul(decimal.NewFromInt(100))
	return rate.StringFixed(1) + "%"
}

func (s *Service) Content(ctx context.Context) (entities.ContentMetrics, error) {
	total, err := s.recipes.Count(ctx, nil)
	if err != nil {
		return entities.ContentMetrics{}, fmt.Errorf("count recipes: %w", err)
	}
	isPremium := true
	premium, err := s.recipes.Count(ctx, &isPremium)
	if err != nil {
		return entities.ContentMetrics{}, fmt.Errorf("count premium recipes: %w", err)
	}
	byCategory, err := s.recipes.CountByCategory(ctx)
	if err != nil {
		return entities.ContentMetrics{}, fmt.Errorf("count recipes by category: %w", err)
	}
	top, err := s.recipes.TopViewed(ctx, topRecipesLimit)
	if err != nil {
		return entities.ContentMetrics{}, fmt.Errorf("top recipes: %w", err)
	}

	res := entities.ContentMetrics{
		TotalRecipes:      total,
		FreeRecipes:       total - premium,
		PremiumRecipes:    premium,
		RecipesByCategory: make([]entities.CategoryRecipeCount, 0, len(byCategory)),
		TopRecipes:        make([]entities.TopRecipe, 0, len(top)),
	}
	for _, c := range byCategory {
		res.RecipesByCategory = append(res.RecipesByCategory, entities.CategoryRecipeCount{Name: c.Name, Count: c.Count})
	}
	for _, r := range top {
		res.TopRecipes = append(res.TopRecipes, entities.TopRecipe{Title: r.Title, Views: r.ViewCount, Slug: r.Slug})
	}
	return res, nil
}

func (s *Service) Dashboard(ctx context.Context) (entities.DashboardOverview, error) {
	var res entities.DashboardOverview

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		res.Revenue, err = s.Revenue(ctx)
		return err
	})
	g.Go(func() (err error) {
		res.Subscribers, err = s.Subscribers(ctx)
		return err
	})
	g.Go(func() (err error) {
		res.Content, err = s.Content(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to build dashboard", zap.Error(err))
		return entities.DashboardOverview{}, err
	}

	res.GeneratedAt = s.now().UTC()
	return res, nil
}
