package repo

import (
	"context"
	"testing"
	"time"

	"github.com/bitebliss/bitebliss-engine/pkg/internal/api"
	"github.com/bitebliss/bitebliss-engine/pkg/internal/dockertest"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/connector"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/dbtest"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/model"
	"github.com/bitebliss/bitebliss-engine/pkg/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RepoSuite struct {
	suite.Suite

	open func(t *testing.T) *connector.Database

	ctx  context.Context
	db   *connector.Database
	plan PlanRepo
	sub  SubscriptionRepo
	user UserRepo
	rec  RecipeRepo
	cat  CategoryRepo

	premium *model.SubscriptionPlan
	alice   *model.User
}

func TestRepo(t *testing.T) {
	suite.Run(t, &RepoSuite{open: dbtest.New})
}

// TestRepoPostgres runs the same suite against a postgres container. Each
// test starts from a freshly migrated schema.
func TestRepoPostgres(t *testing.T) {
	db := connector.NewWithOrm(dockertest.StartupPostgreSQL(t))
	suite.Run(t, &RepoSuite{open: func(t *testing.T) *connector.Database {
		require.NoError(t, db.Conn().Migrator().DropTable(
			&model.Recipe{},
			&model.Category{},
			&model.UserSubscription{},
			&model.SubscriptionPlan{},
			&model.User{},
		))
		require.NoError(t, db.Initialize())
		return db
	}})
}

func (s *RepoSuite) SetupTest() {
	require := s.Require()

	s.ctx = context.Background()
	s.db = s.open(s.T())
	s.plan = NewPlanRepo(s.db)
	s.sub = NewSubscriptionRepo(s.db)
	s.user = NewUserRepo(s.db)
	s.rec = NewRecipeRepo(s.db)
	s.cat = NewCategoryRepo(s.db)

	s.premium = &model.SubscriptionPlan{
		Name:                "Premium",
		PriceMonthly:        decimal.RequireFromString("7.99"),
		PriceYearly:         decimal.RequireFromString("79.99"),
		Tier:                1,
		IsActive:            true,
		StripePriceID:       utils.GetPointer("price_m1"),
		StripeYearlyPriceID: utils.GetPointer("price_y1"),
	}
	require.NoError(s.plan.Create(s.ctx, &model.SubscriptionPlan{Name: "Free", Tier: 0, IsActive: true}))
	require.NoError(s.plan.Create(s.ctx, s.premium))

	s.alice = &model.User{Username: "alice", Email: "alice@example.com"}
	require.NoError(s.user.Create(s.ctx, s.alice))
}

func (s *RepoSuite) checkout(userID uint, subID string, eventAt time.Time) (bool, error) {
	start := eventAt
	end := eventAt.AddDate(0, 1, 0)
	return s.sub.UpsertActive(s.ctx, &model.UserSubscription{
		UserID:               userID,
		PlanID:               &s.premium.ID,
		StripeCustomerID:     utils.GetPointer("cus_1"),
		StripeSubscriptionID: utils.GetPointer(subID),
		CurrentPeriodStart:   &start,
		CurrentPeriodEnd:     &end,
		LastEventAt:          &eventAt,
	})
}

func (s *RepoSuite) TestPlan_GetByPriceID() {
	require := s.Require()

	p, err := s.plan.GetByPriceID(s.ctx, "price_y1")
	require.NoError(err)
	require.NotNil(p)
	require.Equal(s.premium.ID, p.ID)
	require.True(p.PriceMonthly.Equal(decimal.RequireFromString("7.99")))

	p, err = s.plan.GetByPriceID(s.ctx, "price_unknown")
	require.NoError(err)
	require.Nil(p)

	plans, err := s.plan.List(s.ctx)
	require.NoError(err)
	require.Len(plans, 2)
	require.Equal(0, plans[0].Tier)
	require.Equal(1, plans[1].Tier)
}

func (s *RepoSuite) TestPlan_OneActivePlanPerTier() {
	require := s.Require()

	dup := &model.SubscriptionPlan{Name: "Premium Plus", Tier: 1, IsActive: true}
	require.ErrorIs(s.plan.Create(s.ctx, dup), ErrActiveTierExists)

	// inactive plans may share a tier
	retired := &model.SubscriptionPlan{Name: "Premium 2024", Tier: 1}
	require.NoError(s.plan.Create(s.ctx, retired))

	// the index backs the check for writes that skip the repo
	err := s.db.Conn().WithContext(s.ctx).Create(&model.SubscriptionPlan{Name: "Sneaky", Tier: 1, IsActive: true}).Error
	require.Error(err)

	p, err := s.plan.GetByTier(s.ctx, 1)
	require.NoError(err)
	require.Equal(s.premium.ID, p.ID)
}

func (s *RepoSuite) TestSubscription_UpsertIsIdempotent() {
	require := s.Require()

	at := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	applied, err := s.checkout(s.alice.ID, "sub_123", at)
	require.NoError(err)
	require.True(applied)

	// a redelivered event changes nothing
	applied, err = s.checkout(s.alice.ID, "sub_123", at)
	require.NoError(err)
	require.False(applied)

	all, err := s.sub.ListAll(s.ctx)
	require.NoError(err)
	require.Len(all, 1)
	require.Equal(model.SubscriptionStatusActive, all[0].Status)
	require.Equal("sub_123", *all[0].StripeSubscriptionID)
	require.NotNil(all[0].Plan)
	require.Equal(1, all[0].Plan.Tier)
}

func (s *RepoSuite) TestSubscription_SameInstantNewSubscriptionApplies() {
	require := s.Require()

	at := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	_, err := s.checkout(s.alice.ID, "sub_a", at)
	require.NoError(err)

	applied, err := s.checkout(s.alice.ID, "sub_b", at)
	require.NoError(err)
	require.True(applied)

	got, err := s.sub.GetByUserID(s.ctx, s.alice.ID)
	require.NoError(err)
	require.Equal("sub_b", *got.StripeSubscriptionID)
}

func (s *RepoSuite) TestSubscription_StaleUpsertIsSkipped() {
	require := s.Require()

	at := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	_, err := s.checkout(s.alice.ID, "sub_new", at)
	require.NoError(err)

	applied, err := s.checkout(s.alice.ID, "sub_old", at.Add(-time.Hour))
	require.NoError(err)
	require.False(applied)

	got, err := s.sub.GetByUserID(s.ctx, s.alice.ID)
	require.NoError(err)
	require.Equal("sub_new", *got.StripeSubscriptionID)
}

func (s *RepoSuite) TestSubscription_ProviderUpdate() {
	require := s.Require()

	at := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	_, err := s.checkout(s.alice.ID, "sub_123", at)
	require.NoError(err)

	end := at.AddDate(0, 2, 0)
	applied, err := s.sub.ApplyProviderUpdate(s.ctx, ProviderUpdate{
		SubscriptionID:    "sub_123",
		Status:            "trialing",
		PeriodStart:       &at,
		PeriodEnd:         &end,
		CancelAtPeriodEnd: true,
		EventAt:           at.Add(time.Minute),
	})
	require.NoError(err)
	require.True(applied)

	got, err := s.sub.GetByUserID(s.ctx, s.alice.ID)
	require.NoError(err)
	require.Equal(model.SubscriptionStatus("trialing"), got.Status)
	require.True(got.CancelAtPeriodEnd)
	require.True(end.Equal(*got.CurrentPeriodEnd))

	// older event
	applied, err = s.sub.ApplyProviderUpdate(s.ctx, ProviderUpdate{
		SubscriptionID: "sub_123",
		Status:         model.SubscriptionStatusActive,
		EventAt:        at,
	})
	require.NoError(err)
	require.False(applied)

	applied, err = s.sub.ApplyProviderUpdate(s.ctx, ProviderUpdate{
		SubscriptionID: "sub_999",
		Status:         model.SubscriptionStatusActive,
		EventAt:        at.Add(time.Hour),
	})
	require.NoError(err)
	require.False(applied)

	all, err := s.sub.ListAll(s.ctx)
	require.NoError(err)
	require.Len(all, 1)
}

func (s *RepoSuite) TestSubscription_PastDueAndCancel() {
	require := s.Require()

	at := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	_, err := s.checkout(s.alice.ID, "sub_123", at)
	require.NoError(err)

	applied, err := s.sub.MarkPastDue(s.ctx, "sub_123", at.Add(time.Minute))
	require.NoError(err)
	require.True(applied)

	applied, err = s.sub.MarkPastDue(s.ctx, "sub_999", at.Add(time.Minute))
	require.NoError(err)
	require.False(applied)

	canceledAt := at.Add(time.Hour)
	applied, err = s.sub.MarkCanceled(s.ctx, "sub_123", canceledAt, at.Add(2*time.Minute))
	require.NoError(err)
	require.True(applied)

	// redelivery keeps the first cancellation time
	applied, err = s.sub.MarkCanceled(s.ctx, "sub_123", canceledAt.Add(time.Hour), at.Add(2*time.Minute))
	require.NoError(err)
	require.True(applied)

	got, err := s.sub.GetByUserID(s.ctx, s.alice.ID)
	require.NoError(err)
	require.Equal(model.SubscriptionStatusCanceled, got.Status)
	require.True(canceledAt.Equal(*got.CanceledAt))

	// canceled records never become past due
	applied, err = s.sub.MarkPastDue(s.ctx, "sub_123", at.Add(time.Hour))
	require.NoError(err)
	require.False(applied)

	active, err := s.sub.GetActiveByUserID(s.ctx, s.alice.ID)
	require.NoError(err)
	require.Nil(active)
}

func (s *RepoSuite) TestSubscription_GrantRevokeAndList() {
	require := s.Require()

	bob := &model.User{Username: "bob", Email: "bob@example.com"}
	require.NoError(s.user.Create(s.ctx, bob))

	require.NoError(s.sub.Grant(s.ctx, bob.ID, s.premium.ID))
	require.NoError(s.sub.Grant(s.ctx, bob.ID, s.premium.ID))

	got, err := s.sub.GetActiveByUserID(s.ctx, bob.ID)
	require.NoError(err)
	require.NotNil(got)

	_, err = s.checkout(s.alice.ID, "sub_123", time.Now().UTC())
	require.NoError(err)

	tier := 1
	list, total, err := s.sub.List(s.ctx, SubscriberFilter{Search: "BOB", Tier: &tier, Page: api.NewPage(1, 25, 25, 100)})
	require.NoError(err)
	require.Equal(int64(1), total)
	require.Len(list, 1)
	require.Equal("bob@example.com", list[0].User.Email)

	ok, err := s.sub.Revoke(s.ctx, got.ID, time.Now().UTC())
	require.NoError(err)
	require.True(ok)

	list, total, err = s.sub.List(s.ctx, SubscriberFilter{Status: "canceled", Page: api.NewPage(1, 25, 25, 100)})
	require.NoError(err)
	require.Equal(int64(1), total)
	require.Equal(bob.ID, list[0].UserID)

	ok, err = s.sub.Revoke(s.ctx, 9999, time.Now().UTC())
	require.NoError(err)
	require.False(ok)
}

func (s *RepoSuite) TestSubscription_GrantDetachesProviderSubscription() {
	require := s.Require()

	at := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	_, err := s.checkout(s.alice.ID, "sub_123", at)
	require.NoError(err)

	require.NoError(s.sub.Grant(s.ctx, s.alice.ID, s.premium.ID))

	got, err := s.sub.GetByUserID(s.ctx, s.alice.ID)
	require.NoError(err)
	require.Nil(got.StripeSubscriptionID)
	require.Nil(got.CurrentPeriodEnd)
	require.Equal("cus_1", *got.StripeCustomerID)

	// the old subscription ending at the provider leaves the grant alone
	canceled, err := s.sub.MarkCanceled(s.ctx, "sub_123", time.Now().UTC(), time.Now().UTC().Add(time.Hour))
	require.NoError(err)
	require.False(canceled)

	// and a replay of the old checkout does not reattach it
	applied, err := s.checkout(s.alice.ID, "sub_123", at)
	require.NoError(err)
	require.False(applied)

	active, err := s.sub.GetActiveByUserID(s.ctx, s.alice.ID)
	require.NoError(err)
	require.NotNil(active)
	require.Nil(active.StripeSubscriptionID)
}

func (s *RepoSuite) TestUser_LinkCustomer() {
	require := s.Require()

	linked, err := s.user.LinkCustomer(s.ctx, s.alice.ID, "cus_1")
	require.NoError(err)
	require.True(linked)

	linked, err = s.user.LinkCustomer(s.ctx, s.alice.ID, "cus_2")
	require.NoError(err)
	require.False(linked)

	u, err := s.user.Get(s.ctx, s.alice.ID)
	require.NoError(err)
	require.Equal("cus_1", *u.StripeCustomerID)
}

func (s *RepoSuite) TestRecipe_ListAndGet() {
	require := s.Require()

	dinner := &model.Category{Name: "Dinner", Slug: "dinner"}
	require.NoError(s.cat.Create(s.ctx, dinner))

	now := time.Now().UTC()
	free := &model.Recipe{Title: "Tomato Soup", Slug: "tomato-soup", Description: "warm", CookingTime: utils.GetPointer(30), CategoryID: &dinner.ID, PublishedAt: &now}
	premium := &model.Recipe{Title: "Beef Wellington", Slug: "beef-wellington", IsPremium: true, CookingTime: utils.GetPointer(150), CategoryID: &dinner.ID, PublishedAt: &now}
	draft := &model.Recipe{Title: "Secret Cake", Slug: "secret-cake"}
	require.NoError(s.rec.Create(s.ctx, free))
	require.NoError(s.rec.Create(s.ctx, premium))
	require.NoError(s.rec.Create(s.ctx, draft))
	require.NotEmpty(free.DocumentID)

	page := api.NewPage(1, 12, 12, 100)
	items, total, err := s.rec.List(s.ctx, RecipeFilter{}, page)
	require.NoError(err)
	require.Equal(int64(2), total)
	require.Len(items, 2)

	notPremium := false
	items, _, err = s.rec.List(s.ctx, RecipeFilter{IsPremium: &notPremium}, page)
	require.NoError(err)
	require.Len(items, 1)
	require.Equal("tomato-soup", items[0].Slug)

	items, _, err = s.rec.List(s.ctx, RecipeFilter{Query: "WELLINGTON", CategoryName: "dinner"}, page)
	require.NoError(err)
	require.Len(items, 1)
	require.Equal("Dinner", items[0].Category.Name)

	items, _, err = s.rec.List(s.ctx, RecipeFilter{MaxCookingTime: utils.GetPointer(60)}, page)
	require.NoError(err)
	require.Len(items, 1)

	got, err := s.rec.GetPublished(s.ctx, "beef-wellington")
	require.NoError(err)
	require.Equal(premium.ID, got.ID)

	got, err = s.rec.GetPublished(s.ctx, draft.DocumentID)
	require.NoError(err)
	require.Nil(got)

	got, err = s.rec.GetAny(s.ctx, draft.DocumentID)
	require.NoError(err)
	require.NotNil(got)

	require.NoError(s.rec.IncrementViews(s.ctx, premium.ID))
	require.NoError(s.rec.IncrementViews(s.ctx, premium.ID))
	top, err := s.rec.TopViewed(s.ctx, 10)
	require.NoError(err)
	require.Equal(premium.ID, top[0].ID)
	require.Equal(int64(2), top[0].ViewCount)

	rng, err := s.rec.CookingTimeRange(s.ctx)
	require.NoError(err)
	require.Equal(30, *rng.Min)
	require.Equal(150, *rng.Max)

	counts, err := s.rec.CountByCategory(s.ctx)
	require.NoError(err)
	require.Equal([]CategoryCount{{Name: "Dinner", Count: 2}}, counts)

	c, err := s.cat.FindByName(s.ctx, "DIN")
	require.NoError(err)
	require.Equal(dinner.ID, c.ID)

	exists, err := s.rec.SlugExists(s.ctx, "secret-cake")
	require.NoError(err)
	require.True(exists)
}

func (s *RepoSuite) TestSearch_WildcardsMatchLiterally() {
	require := s.Require()

	now := time.Now().UTC()
	require.NoError(s.rec.Create(s.ctx, &model.Recipe{Title: "Tomato Soup", Slug: "tomato-soup", PublishedAt: &now}))
	require.NoError(s.rec.Create(s.ctx, &model.Recipe{Title: "100% Rye Bread", Slug: "rye-bread", PublishedAt: &now}))

	page := api.NewPage(1, 12, 12, 100)
	items, total, err := s.rec.List(s.ctx, RecipeFilter{Query: "%"}, page)
	require.NoError(err)
	require.Equal(int64(1), total)
	require.Equal("rye-bread", items[0].Slug)

	items, _, err = s.rec.List(s.ctx, RecipeFilter{Query: "_"}, page)
	require.NoError(err)
	require.Empty(items)

	bob := &model.User{Username: "bob_smith", Email: "bob@example.com"}
	require.NoError(s.user.Create(s.ctx, bob))
	require.NoError(s.sub.Grant(s.ctx, bob.ID, s.premium.ID))
	require.NoError(s.sub.Grant(s.ctx, s.alice.ID, s.premium.ID))

	list, total, err := s.sub.List(s.ctx, SubscriberFilter{Search: "_", Page: api.NewPage(1, 25, 25, 100)})
	require.NoError(err)
	require.Equal(int64(1), total)
	require.Equal(bob.ID, list[0].UserID)

	_, total, err = s.sub.List(s.ctx, SubscriberFilter{Search: "%", Page: api.NewPage(1, 25, 25, 100)})
	require.NoError(err)
	require.Zero(total)

	require.NoError(s.cat.Create(s.ctx, &model.Category{Name: "Dinner", Slug: "dinner"}))
	c, err := s.cat.FindByName(s.ctx, "d_nner")
	require.NoError(err)
	require.Nil(c)
}
