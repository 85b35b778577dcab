package gate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bitebliss/bitebliss-engine/pkg/internal/api"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/api/entities"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/model"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/repo"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/entitlement"
	"github.com/bitebliss/bitebliss-engine/pkg/utils"
	"go.uber.org/zap"
)

const (
	UpgradeMessage = "Subscribe to Premium or Chef's Circle to access this recipe"

	DefaultPageSize = 12
	MaxPageSize     = 100

	defaultMinCookingTime = 0
	defaultMaxCookingTime = 120

	viewTrackingTimeout = 5 * time.Second
)

var ErrNotFound = errors.New("recipe not found")

type SearchQuery struct {
	Query          string
	Category       string
	MaxCookingTime *int
	Page           api.Page
}

type Gate struct {
	logger     *zap.Logger
	recipes    repo.RecipeRepo
	categories repo.CategoryRepo

	views sync.WaitGroup
}

func New(logger *zap.Logger, recipes repo.RecipeRepo, categories repo.CategoryRepo) *Gate {
	return &Gate{
		logger:     logger.Named("gate"),
		recipes:    recipes,
		categories: categories,
	}
}

// RestrictFilter applies the tier policy to caller supplied filters. Free
// callers only ever see free recipes, whatever they asked for.
func RestrictFilter(tier entitlement.Tier, f repo.RecipeFilter) repo.RecipeFilter {
	if tier < entitlement.TierPremium {
		f.IsPremium = utils.GetPointer(false)
	}
	return f
}

func (g *Gate) List(ctx context.Context, tier entitlement.Tier, f repo.RecipeFilter, page api.Page) (entities.RecipeListResponse, error) {
	items, total, err := g.recipes.List(ctx, RestrictFilter(tier, f), page)
	if err != nil {
		return entities.RecipeListResponse{}, fmt.Errorf("list recipes: %w", err)
	}

	data := make([]entities.Recipe, 0, len(items))
	for _, item := range items {
		data = append(data, Project(tier, item))
	}

	return entities.RecipeListResponse{
		Data: data,
		Meta: entities.RecipeListMeta{
			Pagination:       page.Result(total),
			SubscriptionTier: int(tier),
		},
	}, nil
}

func (g *Gate) Search(ctx context.Context, tier entitlement.Tier, q SearchQuery) (entities.RecipeListResponse, error) {
	return g.List(ctx, tier, repo.RecipeFilter{
		Query:          q.Query,
		CategoryName:   q.Category,
		MaxCookingTime: q.MaxCookingTime,
	}, q.Page)
}

// Get fetches a published recipe regardless of tier and projects it for the
// caller. A successful read counts as a view.
func (g *Gate) Get(ctx context.Context, tier entitlement.Tier, idOrSlug string) (entities.Recipe, error) {
	r, err := g.recipes.GetPublished(ctx, idOrSlug)
	if err != nil {
		return entities.Recipe{}, fmt.Errorf("get recipe: %w", err)
	}
	if r == nil {
		return entities.Recipe{}, ErrNotFound
	}

	g.trackView(ctx, r.ID)

	return Project(tier, *r), nil
}

// Preview returns a recipe including drafts with no tier check. Callers must
// authorize the request themselves.
func (g *Gate) Preview(ctx context.Context, documentID string) (entities.Recipe, error) {
	r, err := g.recipes.GetAny(ctx, documentID)
	if err != nil {
		return entities.Recipe{}, fmt.Errorf("get recipe: %w", err)
	}
	if r == nil {
		return entities.Recipe{}, ErrNotFound
	}
	return full(*r), nil
}

func (g *Gate) Facets(ctx context.Context) (entities.RecipeFiltersResponse, error) {
	cats, err := g.categories.List(ctx)
	if err != nil {
		return entities.RecipeFiltersResponse{}, fmt.Errorf("list categories: %w", err)
	}
	rng, err := g.recipes.CookingTimeRange(ctx)
	if err != nil {
		return entities.RecipeFiltersResponse{}, fmt.Errorf("cooking time range: %w", err)
	}

	res := entities.RecipeFiltersResponse{
		Categories: make([]entities.Category, 0, len(cats)),
		CookingTimeRange: entities.CookingTimeRange{
			Min: defaultMinCookingTime,
			Max: defaultMaxCookingTime,
		},
	}
	for _, c := range cats {
		res.Categories = append(res.Categories, entities.Category{ID: c.ID, Name: c.Name, Slug: c.Slug})
	}
	if rng.Min != nil && rng.Max != nil {
		res.CookingTimeRange = entities.CookingTimeRange{Min: *rng.Min, Max: *rng.Max}
	}
	return res, nil
}

// Wait blocks until pending view increments finish.
func (g *Gate) Wait() {
	g.views.Wait()
}

func (g *Gate) trackView(ctx context.Context, id uint) {
	ctx = context.WithoutCancel(ctx)
	utils.EnsureRunGoroutine(g.logger, &g.views, func() {
		ctx, cancel := context.WithTimeout(ctx, viewTrackingTimeout)
		defer cancel()

		if err := g.recipes.IncrementViews(ctx, id); err != nil {
			g.logger.Warn("failed to track recipe view", zap.Uint("recipe_id", id), zap.Error(err))
		}
	})
}

// Project returns the full recipe when the tier allows it and the locked
// projection otherwise.
func Project(tier entitlement.Tier, r model.Recipe) entities.Recipe {
	v := full(r)
	if tier.CanRead(r.IsPremium) {
		return v
	}

	v.Ingredients = nil
	v.Instructions = nil
	v.IsLocked = true
	v.UpgradeRequired = true
	v.UpgradeMessage = UpgradeMessage
	return v
}

func full(r model.Recipe) entities.Recipe {
	v := entities.Recipe{
		ID:           r.ID,
		DocumentID:   r.DocumentID,
		Title:        r.Title,
		Slug:         r.Slug,
		Description:  r.Description,
		Ingredients:  rawJSON(r.Ingredients),
		Instructions: rawJSON(r.Instructions),
		CookingTime:  r.CookingTime,
		Servings:     r.Servings,
		IsPremium:    r.IsPremium,
		ViewCount:    r.ViewCount,
		Image:        r.ImageURL,
		PublishedAt:  r.PublishedAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.Category != nil {
		v.Category = &entities.Category{ID: r.Category.ID, Name: r.Category.Name, Slug: r.Category.Slug}
	}
	return v
}

func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}
