package subscriptions

import (
	"errors"
	"net/http"

	"github.com/bitebliss/bitebliss-engine/pkg/auth/api"
	"github.com/bitebliss/bitebliss-engine/pkg/httpserver"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/api/entities"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/billing"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/repo"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type API struct {
	tracer  trace.Tracer
	logger  *zap.Logger
	billing *billing.Service
	subs    repo.SubscriptionRepo
	plans   repo.PlanRepo
}

func New(logger *zap.Logger, billing *billing.Service, subs repo.SubscriptionRepo, plans repo.PlanRepo) API {
	return API{
		tracer:  otel.GetTracerProvider().Tracer("recipes.http.subscriptions"),
		logger:  logger.Named("subscriptions"),
		billing: billing,
		subs:    subs,
		plans:   plans,
	}
}

func currentUser(c echo.Context) (uint, error) {
	id := httpserver.GetUserID(c)
	if id == nil {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "You must be logged in")
	}
	return *id, nil
}

func failed(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Checkout godoc
//
//	@Summary	Start a checkout session for a price
//	@Security	BearerToken
//	@Tags		subscriptions
//	@Accept		json
//	@Produce	json
//	@Param		request	body		entities.CheckoutRequest	true	"Price"
//	@Success	200		{object}	entities.CheckoutResponse
//	@Router		/api/subscriptions/checkout [post]
func (h API) Checkout(c echo.Context) error {
	ctx, span := h.tracer.Start(c.Request().Context(), "checkout")
	defer span.End()

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req entities.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, err := h.billing.Checkout(ctx, userID, req.PriceID)
	switch {
	case errors.Is(err, billing.ErrPriceRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, billing.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	case err != nil:
		failed(span, err)
		h.logger.Error("checkout failed", zap.Uint("user_id", userID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create checkout session")
	}
	return c.JSON(http.StatusOK, entities.CheckoutResponse{SessionID: session.ID, URL: session.URL})
}

// Portal godoc
//
//	@Summary	Open the billing portal
//	@Security	BearerToken
//	@Tags		subscriptions
//	@Produce	json
//	@Success	200	{object}	entities.PortalResponse
//	@Router		/api/subscriptions/portal [post]
func (h API) Portal(c echo.Context) error {
	ctx, span := h.tracer.Start(c.Request().Context(), "portal")
	defer span.End()

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	url, err := h.billing.Portal(ctx, userID)
	switch {
	case errors.Is(err, billing.ErrNoSubscription):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		failed(span, err)
		h.logger.Error("portal failed", zap.Uint("user_id", userID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create portal session")
	}
	return c.JSON(http.StatusOK, entities.PortalResponse{URL: url})
}

// Me godoc
//
//	@Summary		Current subscription
//	@Description	Users without a record get the free plan with status "free".
//	@Security		BearerToken
//	@Tags			subscriptions
//	@Produce		json
//	@Success		200	{object}	entities.Subscription
//	@Router			/api/subscriptions/me [get]
func (h API) Me(c echo.Context) error {
	ctx, span := h.tracer.Start(c.Request().Context(), "my-subscription")
	defer span.End()

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	sub, err := h.subs.GetByUserID(ctx, userID)
	if err != nil {
		failed(span, err)
		h.logger.Error("failed to get subscription", zap.Uint("user_id", userID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get subscription")
	}
	if sub != nil {
		return c.JSON(http.StatusOK, entities.NewSubscription(*sub))
	}

	free, err := h.plans.GetByTier(ctx, 0)
	if err != nil {
		failed(span, err)
		h.logger.Error("failed to get free plan", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get subscription")
	}
	return c.JSON(http.StatusOK, entities.FreeSubscription(free))
}

// Cancel godoc
//
//	@Summary	Cancel at the end of the billing period
//	@Security	BearerToken
//	@Tags		subscriptions
//	@Produce	json
//	@Success	200	{object}	entities.MessageResponse
//	@Router		/api/subscriptions/cancel [post]
func (h API) Cancel(c echo.Context) error {
	ctx, span := h.tracer.Start(c.Request().Context(), "cancel-subscription")
	defer span.End()

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	err = h.billing.Cancel(ctx, userID)
	switch {
	case errors.Is(err, billing.ErrNoActiveSubscription):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		failed(span, err)
		h.logger.Error("cancel failed", zap.Uint("user_id", userID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to cancel subscription")
	}
	return c.JSON(http.StatusOK, entities.MessageResponse{Message: billing.CancelScheduledMessage})
}

func (h API) Register(g *echo.Group) {
	g.POST("/checkout", httpserver.AuthorizeHandler(h.Checkout, api.AuthenticatedRole))
	g.POST("/portal", httpserver.AuthorizeHandler(h.Portal, api.AuthenticatedRole))
	g.GET("/me", httpserver.AuthorizeHandler(h.Me, api.AuthenticatedRole))
	g.POST("/cancel", httpserver.AuthorizeHandler(h.Cancel, api.AuthenticatedRole))
}
