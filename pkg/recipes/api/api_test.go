package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bitebliss/bitebliss-engine/pkg/auth/token"
	"github.com/bitebliss/bitebliss-engine/pkg/internal/httpserver"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/analytics"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/api"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/api/entities"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/billing"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/billing/mocks"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/config"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/dbtest"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/model"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/repo"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/entitlement"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/gate"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/seed"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	userSecret  = "user-secret"
	adminSecret = "admin-secret"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []billing.Event
	err    error
}

func (h *recordingHandler) Handle(_ context.Context, ev billing.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	return h.err
}

type sentMail struct {
	to, subject, message string
}

type recordingMailer struct {
	sent []sentMail
}

func (m *recordingMailer) Custom(_ context.Context, to, subject, message string) error {
	m.sent = append(m.sent, sentMail{to: to, subject: subject, message: message})
	return nil
}

type APISuite struct {
	suite.Suite

	ctx      context.Context
	e        *echo.Echo
	repos    api.Repos
	gate     *gate.Gate
	provider *mocks.Provider
	handler  *recordingHandler
	mailer   *recordingMailer

	alice *model.User
	bob   *model.User
	plans map[int]model.SubscriptionPlan
}

func TestAPI(t *testing.T) {
	suite.Run(t, &APISuite{})
}

func (s *APISuite) SetupTest() {
	require := s.Require()
	logger := zap.NewNop()

	s.ctx = context.Background()
	db := dbtest.New(s.T())
	s.repos = api.Repos{
		Plans:      repo.NewPlanRepo(db),
		Subs:       repo.NewSubscriptionRepo(db),
		Users:      repo.NewUserRepo(db),
		Recipes:    repo.NewRecipeRepo(db),
		Categories: repo.NewCategoryRepo(db),
	}
	s.provider = mocks.NewProvider(s.T())
	s.handler = &recordingHandler{}
	s.mailer = &recordingMailer{}
	s.gate = gate.New(logger, s.repos.Recipes, s.repos.Categories)

	_, err := seed.Plans(s.ctx, logger, s.repos.Plans, config.Stripe{PremiumMonthlyPriceID: "price_pm"})
	require.NoError(err)
	plans, err := s.repos.Plans.List(s.ctx)
	require.NoError(err)
	s.plans = map[int]model.SubscriptionPlan{}
	for _, p := range plans {
		s.plans[p.Tier] = p
	}

	s.alice = &model.User{Username: "alice", Email: "alice@example.com"}
	s.bob = &model.User{Username: "bob", Email: "bob@example.com"}
	require.NoError(s.repos.Users.Create(s.ctx, s.alice))
	require.NoError(s.repos.Users.Create(s.ctx, s.bob))

	now := time.Now().UTC()
	body := datatypes.JSON(`[{"type":"paragraph","children":[{"type":"text","text":"Stir."}]}]`)
	require.NoError(s.repos.Recipes.Create(s.ctx, &model.Recipe{Title: "Porridge", Slug: "porridge", Ingredients: body, Instructions: body, PublishedAt: &now}))
	require.NoError(s.repos.Recipes.Create(s.ctx, &model.Recipe{Title: "Truffle Risotto", Slug: "truffle-risotto", Ingredients: body, Instructions: body, IsPremium: true, PublishedAt: &now}))

	routes := api.New(logger, token.NewVerifier(userSecret, adminSecret), s.repos, api.Services{
		Resolver:   entitlement.NewResolver(logger, s.repos.Subs),
		Gate:       s.gate,
		Billing:    billing.NewService(logger, s.provider, s.repos.Users, s.repos.Subs, "https://app.example.com"),
		Provider:   s.provider,
		Reconciler: s.handler,
		Mailer:     s.mailer,
		Analytics:  analytics.New(logger, s.repos.Users, s.repos.Subs, s.repos.Recipes),
	})
	s.e, _, err = httpserver.Register(logger, httpserver.Config{}, routes)
	require.NoError(err)
}

func (s *APISuite) TearDownTest() {
	s.gate.Wait()
}

func (s *APISuite) userToken(u *model.User) string {
	t, err := token.Sign(userSecret, u.ID)
	s.Require().NoError(err)
	return "Bearer " + t
}

func (s *APISuite) adminToken() string {
	t, err := token.Sign(adminSecret, 1)
	s.Require().NoError(err)
	return "Bearer " + t
}

func (s *APISuite) do(method, path, auth, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *APISuite) decode(rec *httptest.ResponseRecorder, v interface{}) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (s *APISuite) TestHealth() {
	s.Require().Equal(http.StatusOK, s.do(http.MethodGet, "/health", "", "").Code)
}

func (s *APISuite) TestRecipes_AnonymousListHidesPremium() {
	require := s.Require()

	rec := s.do(http.MethodGet, "/api/recipes?filters[isPremium][$eq]=true", "", "")
	require.Equal(http.StatusOK, rec.Code)

	var res entities.RecipeListResponse
	s.decode(rec, &res)
	require.Len(res.Data, 1)
	require.Equal("porridge", res.Data[0].Slug)
	for _, r := range res.Data {
		require.False(r.IsPremium)
	}
	require.Equal(0, res.Meta.SubscriptionTier)

	rec = s.do(http.MethodGet, "/api/recipes", "", "")
	require.Equal(http.StatusOK, rec.Code)
	s.decode(rec, &res)
	require.Len(res.Data, 1)
	require.Equal("porridge", res.Data[0].Slug)
}

func (s *APISuite) TestRecipes_InvalidFilter() {
	rec := s.do(http.MethodGet, "/api/recipes?filters[cookingTime][$lte]=soon", "", "")
	s.Require().Equal(http.StatusBadRequest, rec.Code)
}

func (s *APISuite) TestRecipes_GetLockedForFreeUser() {
	require := s.Require()

	rec := s.do(http.MethodGet, "/api/recipes/truffle-risotto", s.userToken(s.alice), "")
	require.Equal(http.StatusOK, rec.Code)

	var res entities.RecipeResponse
	s.decode(rec, &res)
	require.True(res.Data.IsLocked)
	require.True(res.Data.UpgradeRequired)
	require.Equal(gate.UpgradeMessage, res.Data.UpgradeMessage)
	require.Contains([]string{"", "null"}, string(res.Data.Ingredients))
}

func (s *APISuite) TestRecipes_GetUnlockedForPremiumUser() {
	require := s.Require()

	require.NoError(s.repos.Subs.Grant(s.ctx, s.alice.ID, s.plans[1].ID))

	rec := s.do(http.MethodGet, "/api/recipes/truffle-risotto", s.userToken(s.alice), "")
	require.Equal(http.StatusOK, rec.Code)

	var res entities.RecipeResponse
	s.decode(rec, &res)
	require.False(res.Data.IsLocked)
	require.Contains(string(res.Data.Ingredients), "Stir.")

	list := s.do(http.MethodGet, "/api/recipes", s.userToken(s.alice), "")
	var page entities.RecipeListResponse
	s.decode(list, &page)
	require.Len(page.Data, 2)
	require.Equal(1, page.Meta.SubscriptionTier)
}

func (s *APISuite) TestRecipes_NotFound() {
	rec := s.do(http.MethodGet, "/api/recipes/missing", "", "")
	s.Require().Equal(http.StatusNotFound, rec.Code)
}

func (s *APISuite) TestRecipes_PreviewRequiresAdmin() {
	rec := s.do(http.MethodGet, "/api/recipes/preview/abc", s.userToken(s.alice), "")
	s.Require().Equal(http.StatusForbidden, rec.Code)
}

func (s *APISuite) TestInvalidTokenRejected() {
	rec := s.do(http.MethodGet, "/api/recipes", "Bearer garbage", "")
	s.Require().Equal(http.StatusUnauthorized, rec.Code)
}

func (s *APISuite) TestPlans_List() {
	require := s.Require()

	rec := s.do(http.MethodGet, "/api/subscription-plans", "", "")
	require.Equal(http.StatusOK, rec.Code)

	var res entities.PlanListResponse
	s.decode(rec, &res)
	require.Len(res.Data, 3)
	require.Equal("Free", res.Data[0].Name)
	require.Equal("7.99", res.Data[1].Price)
	require.Equal("price_pm", *res.Data[1].StripePriceID)
	require.Nil(res.Data[2].StripePriceID)
}

func (s *APISuite) TestPlans_CreateRequiresAdmin() {
	require := s.Require()

	body := `{"name":"Family","price":"19.99","yearlyPrice":"199.99","tier":2,"isActive":false,"features":["Six profiles"]}`
	require.Equal(http.StatusUnauthorized, s.do(http.MethodPost, "/api/subscription-plans", "", body).Code)
	require.Equal(http.StatusForbidden, s.do(http.MethodPost, "/api/subscription-plans", s.userToken(s.alice), body).Code)

	rec := s.do(http.MethodPost, "/api/subscription-plans", s.adminToken(), body)
	require.Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var res entities.PlanResponse
	s.decode(rec, &res)
	require.Equal("19.99", res.Data.Price)
	require.JSONEq(`["Six profiles"]`, string(res.Data.Features))
}

func (s *APISuite) TestPlans_CreateKeepsOneActivePlanPerTier() {
	require := s.Require()
	admin := s.adminToken()

	rec := s.do(http.MethodPost, "/api/subscription-plans", admin, `{"name":"Premium Plus","price":"9.99","yearlyPrice":"99.99","tier":1}`)
	require.Equal(http.StatusConflict, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/subscription-plans", admin, `{"name":"Almost Free","price":"5.00","tier":0,"isActive":false}`)
	require.Equal(http.StatusBadRequest, rec.Code, rec.Body.String())

	plans, err := s.repos.Plans.List(s.ctx)
	require.NoError(err)
	perTier := map[int]int{}
	for _, p := range plans {
		perTier[p.Tier]++
	}
	require.Equal(map[int]int{0: 1, 1: 1, 2: 1}, perTier)
}

func (s *APISuite) TestSubscriptions_MeRequiresLogin() {
	s.Require().Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/api/subscriptions/me", "", "").Code)
}

func (s *APISuite) TestSubscriptions_MeWithoutRecordIsFree() {
	require := s.Require()

	rec := s.do(http.MethodGet, "/api/subscriptions/me", s.userToken(s.alice), "")
	require.Equal(http.StatusOK, rec.Code)

	var res entities.Subscription
	s.decode(rec, &res)
	require.Equal("free", res.Status)
	require.True(res.IsActive)
	require.NotNil(res.Plan)
	require.Equal("Free", res.Plan.Name)
}

func (s *APISuite) TestSubscriptions_MeWithGrant() {
	require := s.Require()

	require.NoError(s.repos.Subs.Grant(s.ctx, s.alice.ID, s.plans[2].ID))

	rec := s.do(http.MethodGet, "/api/subscriptions/me", s.userToken(s.alice), "")
	require.Equal(http.StatusOK, rec.Code)

	var res entities.Subscription
	s.decode(rec, &res)
	require.Equal("active", res.Status)
	require.Equal("Chef's Circle", res.Plan.Name)
}

func (s *APISuite) TestSubscriptions_CheckoutRequiresPrice() {
	rec := s.do(http.MethodPost, "/api/subscriptions/checkout", s.userToken(s.alice), `{"priceId":""}`)
	s.Require().Equal(http.StatusBadRequest, rec.Code)
}

func (s *APISuite) TestSubscriptions_Checkout() {
	require := s.Require()

	s.provider.On("CreateCustomer", mock.Anything, mock.Anything).Return("cus_a", nil).Once()
	s.provider.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(r billing.CheckoutRequest) bool {
		return r.PriceID == "price_pm" && r.UserID == s.alice.ID && r.CustomerID == "cus_a"
	})).Return(&billing.CheckoutSession{ID: "cs_9", URL: "https://checkout.example.com/cs_9"}, nil).Once()

	rec := s.do(http.MethodPost, "/api/subscriptions/checkout", s.userToken(s.alice), `{"priceId":"price_pm"}`)
	require.Equal(http.StatusOK, rec.Code, rec.Body.String())

	var res entities.CheckoutResponse
	s.decode(rec, &res)
	require.Equal("cs_9", res.SessionID)
	require.Equal("https://checkout.example.com/cs_9", res.URL)
}

func (s *APISuite) TestSubscriptions_PortalWithoutCustomer() {
	rec := s.do(http.MethodPost, "/api/subscriptions/portal", s.userToken(s.alice), "")
	s.Require().Equal(http.StatusBadRequest, rec.Code)
}

func (s *APISuite) TestSubscriptions_CancelWithoutSubscription() {
	rec := s.do(http.MethodPost, "/api/subscriptions/cancel", s.userToken(s.alice), "")
	s.Require().Equal(http.StatusBadRequest, rec.Code)
}

func (s *APISuite) TestWebhook_InvalidSignature() {
	require := s.Require()

	payload := `{"id":"evt_1"}`
	s.provider.On("ConstructEvent", []byte(payload), "t=1,v1=bad").
		Return(nil, fmt.Errorf("%w: no valid signature", billing.ErrInvalidSignature)).Once()

	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	require.Equal(http.StatusBadRequest, rec.Code)
	require.Empty(s.handler.events)
}

func (s *APISuite) TestWebhook_Dispatches() {
	require := s.Require()

	ev := billing.SubscriptionDeleted{
		Envelope:       billing.Envelope{ID: "evt_2", Type: billing.EventSubscriptionDeleted, CreatedAt: time.Now().UTC()},
		SubscriptionID: "sub_1",
	}
	s.provider.On("ConstructEvent", mock.Anything, "sig").Return(ev, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "sig")
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	require.Equal(http.StatusOK, rec.Code)
	require.JSONEq(`{"received":true}`, rec.Body.String())
	require.Equal([]billing.Event{ev}, s.handler.events)
}

func (s *APISuite) TestWebhook_HandlerFailureAsksForRedelivery() {
	require := s.Require()

	s.handler.err = errors.New("db down")
	s.provider.On("ConstructEvent", mock.Anything, "sig").
		Return(billing.Unhandled{Envelope: billing.Envelope{ID: "evt_3", Type: "customer.created"}}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "sig")
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	require.Equal(http.StatusInternalServerError, rec.Code)
}

func (s *APISuite) TestAdmin_RequiresAdminRole() {
	require := s.Require()

	require.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/api/subscription/admin/subscribers", "", "").Code)
	require.Equal(http.StatusForbidden, s.do(http.MethodGet, "/api/subscription/admin/subscribers", s.userToken(s.alice), "").Code)
	require.Equal(http.StatusForbidden, s.do(http.MethodGet, "/api/analytics/dashboard", s.userToken(s.alice), "").Code)
}

func (s *APISuite) TestAdmin_GrantListRevoke() {
	require := s.Require()
	admin := s.adminToken()

	rec := s.do(http.MethodPost, "/api/subscription/admin/grant-access", admin,
		fmt.Sprintf(`{"userId":%d,"planId":%d}`, s.bob.ID, s.plans[1].ID))
	require.Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/subscription/admin/subscribers?tier=1", admin, "")
	require.Equal(http.StatusOK, rec.Code)
	var list entities.SubscriberListResponse
	s.decode(rec, &list)
	require.Len(list.Data, 1)
	require.Equal("bob@example.com", list.Data[0].User.Email)
	require.Equal(int64(1), list.Pagination.Total)

	id := list.Data[0].ID
	rec = s.do(http.MethodPost, fmt.Sprintf("/api/subscription/admin/subscribers/%d/send-email", id), admin,
		`{"subject":"Hello","message":"<p>Thanks for staying with us</p>"}`)
	require.Equal(http.StatusOK, rec.Code, rec.Body.String())
	require.Equal([]sentMail{{to: "bob@example.com", subject: "Hello", message: "<p>Thanks for staying with us</p>"}}, s.mailer.sent)

	rec = s.do(http.MethodPost, fmt.Sprintf("/api/subscription/admin/subscribers/%d/revoke", id), admin, "")
	require.Equal(http.StatusOK, rec.Code)

	sub, err := s.repos.Subs.Get(s.ctx, id)
	require.NoError(err)
	require.Equal(model.SubscriptionStatusCanceled, sub.Status)
	require.NotNil(sub.CanceledAt)
}

func (s *APISuite) TestAdmin_GrantUnknownPlan() {
	rec := s.do(http.MethodPost, "/api/subscription/admin/grant-access", s.adminToken(),
		fmt.Sprintf(`{"userId":%d,"planId":999}`, s.bob.ID))
	s.Require().Equal(http.StatusNotFound, rec.Code)
}

func (s *APISuite) TestAdmin_SendEmailValidation() {
	rec := s.do(http.MethodPost, "/api/subscription/admin/subscribers/1/send-email", s.adminToken(), `{"subject":"","message":"x"}`)
	s.Require().Equal(http.StatusBadRequest, rec.Code)
}

func (s *APISuite) TestAnalytics_Dashboard() {
	require := s.Require()

	require.NoError(s.repos.Subs.Grant(s.ctx, s.alice.ID, s.plans[1].ID))

	rec := s.do(http.MethodGet, "/api/analytics/dashboard", s.adminToken(), "")
	require.Equal(http.StatusOK, rec.Code, rec.Body.String())

	var res entities.DashboardOverview
	s.decode(rec, &res)
	require.Equal("7.99", res.Revenue.MRR)
	require.Equal(int64(2), res.Subscribers.TotalUsers)
	require.Equal(int64(2), res.Content.TotalRecipes)
}

func (s *APISuite) TestGenerator_RateLimited() {
	require := s.Require()

	auth := s.userToken(s.alice)
	for i := 0; i < 3; i++ {
		require.Equal(http.StatusForbidden, s.do(http.MethodPost, "/api/ai-generator/generate", auth, `{"prompt":"soup"}`).Code)
	}
	require.Equal(http.StatusTooManyRequests, s.do(http.MethodPost, "/api/ai-generator/generate", auth, `{"prompt":"soup"}`).Code)
}
