package api

import (
	"github.com/bitebliss/bitebliss-engine/pkg/auth/token"
	"github.com/bitebliss/bitebliss-engine/pkg/httpserver"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/analytics"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/api/admin"
	analyticsapi "github.com/bitebliss/bitebliss-engine/pkg/recipes/api/analytics"
	generatorapi "github.com/bitebliss/bitebliss-engine/pkg/recipes/api/generator"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/api/plans"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/api/recipes"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/api/subscriptions"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/api/webhook"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/billing"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/repo"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/entitlement"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/gate"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/generator"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Repos struct {
	Plans      repo.PlanRepo
	Subs       repo.SubscriptionRepo
	Users      repo.UserRepo
	Recipes    repo.RecipeRepo
	Categories repo.CategoryRepo
}

type Services struct {
	Resolver   *entitlement.Resolver
	Gate       *gate.Gate
	Billing    *billing.Service
	Provider   billing.Provider
	Reconciler webhook.EventHandler
	Mailer     admin.Mailer
	Generator  *generator.Generator
	Analytics  *analytics.Service
}

type API struct {
	logger   *zap.Logger
	verifier *token.Verifier
	repos    Repos
	services Services
}

func New(logger *zap.Logger, verifier *token.Verifier, repos Repos, services Services) *API {
	return &API{
		logger:   logger.Named("api"),
		verifier: verifier,
		repos:    repos,
		services: services,
	}
}

func (a *API) Register(e *echo.Echo) {
	recipesAPI := recipes.New(a.logger, a.services.Gate)
	plansAPI := plans.New(a.logger, a.repos.Plans)
	subscriptionsAPI := subscriptions.New(a.logger, a.services.Billing, a.repos.Subs, a.repos.Plans)
	adminAPI := admin.New(a.logger, a.repos.Subs, a.repos.Plans, a.repos.Users, a.services.Mailer)
	analyticsAPI := analyticsapi.New(a.logger, a.services.Analytics)
	generatorAPI := generatorapi.New(a.logger, a.services.Generator)
	webhookAPI := webhook.New(a.logger, a.services.Provider, a.services.Reconciler)

	g := e.Group("/api", httpserver.Identity(a.verifier))

	recipesAPI.Register(g.Group("/recipes", entitlement.Middleware(a.services.Resolver)))
	plansAPI.Register(g.Group("/subscription-plans"))
	subscriptionsAPI.Register(g.Group("/subscriptions"))
	adminAPI.Register(g.Group("/subscription/admin"))
	analyticsAPI.Register(g.Group("/analytics"))
	generatorAPI.Register(g.Group("/ai-generator"))

	// signed by the provider, no caller identity
	webhookAPI.Register(e.Group("/webhook"))
}
