package gate

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bitebliss/bitebliss-engine/pkg/internal/api"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/dbtest"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/model"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/repo"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/entitlement"
	"github.com/bitebliss/bitebliss-engine/pkg/utils"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type GateSuite struct {
	suite.Suite

	ctx     context.Context
	gate    *Gate
	recipes repo.RecipeRepo

	free    *model.Recipe
	premium *model.Recipe
	draft   *model.Recipe
}

func TestGate(t *testing.T) {
	suite.Run(t, &GateSuite{})
}

func (s *GateSuite) SetupTest() {
	require := s.Require()

	s.ctx = context.Background()
	db := dbtest.New(s.T())
	s.recipes = repo.NewRecipeRepo(db)
	categories := repo.NewCategoryRepo(db)
	s.gate = New(zap.NewNop(), s.recipes, categories)

	require.NoError(categories.Create(s.ctx, &model.Category{Name: "Soups", Slug: "soups"}))
	require.NoError(categories.Create(s.ctx, &model.Category{Name: "Desserts", Slug: "desserts"}))

	now := time.Now().UTC()
	ingredients := datatypes.JSON(`[{"type":"paragraph","children":[{"type":"text","text":"2 eggs"}]}]`)
	instructions := datatypes.JSON(`[{"type":"paragraph","children":[{"type":"text","text":"Whisk."}]}]`)

	s.free = &model.Recipe{Title: "Omelette", Slug: "omelette", Ingredients: ingredients, Instructions: instructions, CookingTime: utils.GetPointer(10), PublishedAt: &now}
	s.premium = &model.Recipe{Title: "Soufflé", Slug: "souffle", Ingredients: ingredients, Instructions: instructions, IsPremium: true, CookingTime: utils.GetPointer(45), PublishedAt: &now}
	s.draft = &model.Recipe{Title: "Draft Tart", Slug: "draft-tart", Ingredients: ingredients, IsPremium: true}
	require.NoError(s.recipes.Create(s.ctx, s.free))
	require.NoError(s.recipes.Create(s.ctx, s.premium))
	require.NoError(s.recipes.Create(s.ctx, s.draft))
}

func (s *GateSuite) TestRestrictFilter() {
	require := s.Require()

	wantsPremium := repo.RecipeFilter{IsPremium: utils.GetPointer(true)}

	f := RestrictFilter(entitlement.TierFree, wantsPremium)
	require.False(*f.IsPremium)

	f = RestrictFilter(entitlement.TierPremium, wantsPremium)
	require.True(*f.IsPremium)

	f = RestrictFilter(entitlement.TierChef, repo.RecipeFilter{})
	require.Nil(f.IsPremium)
}

func (s *GateSuite) TestList_FreeTierNeverSeesPremium() {
	require := s.Require()

	page := api.NewPage(1, DefaultPageSize, DefaultPageSize, MaxPageSize)
	// asking for premium recipes on the free tier still yields free ones only
	res, err := s.gate.List(s.ctx, entitlement.TierFree, repo.RecipeFilter{IsPremium: utils.GetPointer(true)}, page)
	require.NoError(err)
	require.Len(res.Data, 1)
	require.Equal("omelette", res.Data[0].Slug)
	for _, r := range res.Data {
		require.False(r.IsPremium)
	}
	require.Equal(0, res.Meta.SubscriptionTier)

	res, err = s.gate.List(s.ctx, entitlement.TierFree, repo.RecipeFilter{}, page)
	require.NoError(err)
	require.Len(res.Data, 1)
	for _, r := range res.Data {
		require.False(r.IsPremium)
	}
	require.Equal(int64(1), res.Meta.Pagination.Total)

	res, err = s.gate.List(s.ctx, entitlement.TierPremium, repo.RecipeFilter{}, page)
	require.NoError(err)
	require.Len(res.Data, 2)
	require.Equal(1, res.Meta.SubscriptionTier)
	require.Equal(1, res.Meta.Pagination.PageCount)
}

func (s *GateSuite) TestGet_LockedProjection() {
	require := s.Require()

	r, err := s.gate.Get(s.ctx, entitlement.TierFree, s.premium.DocumentID)
	require.NoError(err)
	require.Nil(r.Ingredients)
	require.Nil(r.Instructions)
	require.True(r.IsLocked)
	require.True(r.UpgradeRequired)
	require.Equal(UpgradeMessage, r.UpgradeMessage)
	require.Equal("Soufflé", r.Title)

	out, err := json.Marshal(r)
	require.NoError(err)
	require.Contains(string(out), `"ingredients":null`)
	require.Contains(string(out), `"instructions":null`)

	r, err = s.gate.Get(s.ctx, entitlement.TierPremium, "souffle")
	require.NoError(err)
	require.False(r.IsLocked)
	require.JSONEq(string(s.premium.Ingredients), string(r.Ingredients))
	require.JSONEq(string(s.premium.Instructions), string(r.Instructions))

	r, err = s.gate.Get(s.ctx, entitlement.TierFree, s.free.DocumentID)
	require.NoError(err)
	require.False(r.IsLocked)
	require.NotNil(r.Ingredients)
}

func (s *GateSuite) TestGet_NotFoundAndDrafts() {
	require := s.Require()

	_, err := s.gate.Get(s.ctx, entitlement.TierChef, "missing")
	require.ErrorIs(err, ErrNotFound)

	_, err = s.gate.Get(s.ctx, entitlement.TierChef, s.draft.DocumentID)
	require.ErrorIs(err, ErrNotFound)

	r, err := s.gate.Preview(s.ctx, s.draft.DocumentID)
	require.NoError(err)
	require.NotNil(r.Ingredients)
	require.Nil(r.PublishedAt)
}

func (s *GateSuite) TestGet_TracksViews() {
	require := s.Require()

	_, err := s.gate.Get(s.ctx, entitlement.TierFree, s.free.Slug)
	require.NoError(err)
	_, err = s.gate.Get(s.ctx, entitlement.TierFree, s.free.Slug)
	require.NoError(err)
	s.gate.Wait()

	got, err := s.recipes.GetPublished(s.ctx, s.free.Slug)
	require.NoError(err)
	require.Equal(int64(2), got.ViewCount)
}

func (s *GateSuite) TestSearch() {
	require := s.Require()

	page := api.NewPage(1, DefaultPageSize, DefaultPageSize, MaxPageSize)
	res, err := s.gate.Search(s.ctx, entitlement.TierChef, SearchQuery{Query: "souf", Page: page})
	require.NoError(err)
	require.Len(res.Data, 1)

	res, err = s.gate.Search(s.ctx, entitlement.TierFree, SearchQuery{Query: "souf", Page: page})
	require.NoError(err)
	require.Empty(res.Data)

	res, err = s.gate.Search(s.ctx, entitlement.TierChef, SearchQuery{MaxCookingTime: utils.GetPointer(20), Page: page})
	require.NoError(err)
	require.Len(res.Data, 1)
	require.Equal("omelette", res.Data[0].Slug)
}

func (s *GateSuite) TestFacets() {
	require := s.Require()

	res, err := s.gate.Facets(s.ctx)
	require.NoError(err)
	require.Len(res.Categories, 2)
	require.Equal("Desserts", res.Categories[0].Name)
	require.Equal(10, res.CookingTimeRange.Min)
	require.Equal(45, res.CookingTimeRange.Max)
}

func TestFacets_DefaultRange(t *testing.T) {
	db := dbtest.New(t)
	g := New(zap.NewNop(), repo.NewRecipeRepo(db), repo.NewCategoryRepo(db))

	res, err := g.Facets(context.Background())
	require.NoError(t, err)
	require.Empty(t, res.Categories)
	require.Equal(t, 0, res.CookingTimeRange.Min)
	require.Equal(t, 120, res.CookingTimeRange.Max)
}
