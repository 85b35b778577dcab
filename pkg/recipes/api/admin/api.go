package admin

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bitebliss/bitebliss-engine/pkg/auth/api"
	"github.com/bitebliss/bitebliss-engine/pkg/httpserver"
	internalapi "github.com/bitebliss/bitebliss-engine/pkg/internal/api"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/api/entities"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/repo"
	"github.com/bitebliss/bitebliss-engine/pkg/utils"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

type Mailer interface {
	Custom(ctx context.Context, to, subject, message string) error
}

type API struct {
	tracer trace.Tracer
	logger *zap.Logger
	subs   repo.SubscriptionRepo
	plans  repo.PlanRepo
	users  repo.UserRepo
	mailer Mailer
}

func New(logger *zap.Logger, subs repo.SubscriptionRepo, plans repo.PlanRepo, users repo.UserRepo, mailer Mailer) API {
	return API{
		tracer: otel.GetTracerProvider().Tracer("recipes.http.admin"),
		logger: logger.Named("admin"),
		subs:   subs,
		plans:  plans,
		users:  users,
		mailer: mailer,
	}
}

func pathID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

func (h API) internalError(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	h.logger.Error(msg, zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, msg)
}

// ListSubscribers godoc
//
//	@Summary	List subscribers
//	@Security	BearerToken
//	@Tags		admin
//	@Produce	json
//	@Param		search		query		string	false	"Email or username contains"
//	@Param		tier		query		int		false	"Plan tier"
//	@Param		status		query		string	false	"Subscription status"
//	@Param		page		query		int		false	"Page"
//	@Param		pageSize	query		int		false	"Page size"
//	@Success	200			{object}	entities.SubscriberListResponse
//	@Router		/api/subscription/admin/subscribers [get]
func (h API) ListSubscribers(c echo.Context) error {
	ctx, span := h.tracer.Start(c.Request().Context(), "list-subscribers")
	defer span.End()

	number, size, err := utils.PageConfigFromStrings(c.QueryParam("page"), c.QueryParam("pageSize"), defaultPageSize)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f := repo.SubscriberFilter{
		Search: strings.TrimSpace(c.QueryParam("search")),
		Status: strings.TrimSpace(c.QueryParam("status")),
		Page:   internalapi.NewPage(number, size, defaultPageSize, maxPageSize),
	}
	if v := c.QueryParam("tier"); v != "" {
		tier, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "tier is not a valid integer")
		}
		f.Tier = &tier
	}

	subs, total, err := h.subs.List(ctx, f)
	if err != nil {
		return h.internalError(span, "Failed to fetch subscribers", err)
	}

	res := entities.SubscriberListResponse{
		Data:       make([]entities.Subscription, 0, len(subs)),
		Pagination: f.Page.Result(total),
	}
	for _, s := range subs {
		res.Data = append(res.Data, entities.NewSubscription(s))
	}
	return c.JSON(http.StatusOK, res)
}

func (h API) GetSubscriber(c echo.Context) error {
	ctx, span := h.tracer.Start(c.Request().Context(), "get-subscriber")
	defer span.End()

	id, err := pathID(c)
	if err != nil {
		return err
	}
	sub, err := h.subs.Get(ctx, id)
	if err != nil {
		return h.internalError(span, "Failed to fetch subscriber", err)
	}
	if sub == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Subscriber not found")
	}
	return c.JSON(http.StatusOK, entities.NewSubscription(*sub))
}

// GrantAccess godoc
//
//	@Summary		Grant a plan without billing
//	@Description	Creates or replaces the user's subscription with an active one on the plan.
//	@Security		BearerToken
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			request	body		entities.GrantAccessRequest	true	"User and plan"
//	@Success		200		{object}	entities.MessageResponse
//	@Router			/api/subscription/admin/grant-access [post]
func (h API) GrantAccess(c echo.Context) error {
	ctx, span := h.tracer.Start(c.Request().Context(), "grant-access")
	defer span.End()

	var req entities.GrantAccessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.UserID == 0 || req.PlanID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "userId and planId are required")
	}

	plan, err := h.plans.Get(ctx, req.PlanID)
	if err != nil {
		return h.internalError(span, "Failed to grant access", err)
	}
	if plan == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Plan not found")
	}
	user, err := h.users.Get(ctx, req.UserID)
	if err != nil {
		return h.internalError(span, "Failed to grant access", err)
	}
	if user == nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	if err := h.subs.Grant(ctx, user.ID, plan.ID); err != nil {
		return h.internalError(span, "Failed to grant access", err)
	}
	h.logger.Info("access granted", zap.Uint("user_id", user.ID), zap.String("plan", plan.Name))
	return c.JSON(http.StatusOK, entities.MessageResponse{Message: "Access granted successfully"})
}

func (h API) RevokeAccess(c echo.Context) error {
	ctx, span := h.tracer.Start(c.Request().Context(), "revoke-access")
	defer span.End()

	id, err := pathID(c)
	if err != nil {
		return err
	}
	ok, err := h.subs.Revoke(ctx, id, time.Now().UTC())
	if err != nil {
		return h.internalError(span, "Failed to revoke access", err)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Subscription not found")
	}
	h.logger.Info("access revoked", zap.Uint("subscription_id", id))
	return c.JSON(http.StatusOK, entities.MessageResponse{Message: "Access revoked successfully"})
}

func (h API) SendEmail(c echo.Context) error {
	ctx, span := h.tracer.Start(c.Request().Context(), "send-email")
	defer span.End()

	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req entities.SendEmailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Subject and message are required")
	}

	sub, err := h.subs.Get(ctx, id)
	if err != nil {
		return h.internalError(span, "Failed to send email", err)
	}
	if sub == nil || sub.User == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Subscriber not found")
	}

	if err := h.mailer.Custom(ctx, sub.User.Email, req.Subject, req.Message); err != nil {
		return h.internalError(span, "Failed to send email", err)
	}
	return c.JSON(http.StatusOK, entities.MessageResponse{Message: "Email sent successfully"})
}

func (h API) Register(g *echo.Group) {
	g.GET("/subscribers", httpserver.AuthorizeHandler(h.ListSubscribers, api.AdminRole))
	g.GET("/subscribers/:id", httpserver.AuthorizeHandler(h.GetSubscriber, api.AdminRole))
	g.POST("/grant-access", httpserver.AuthorizeHandler(h.GrantAccess, api.AdminRole))
	g.POST("/subscribers/:id/revoke", httpserver.AuthorizeHandler(h.RevokeAccess, api.AdminRole))
	g.POST("/subscribers/:id/send-email", httpserver.AuthorizeHandler(h.SendEmail, api.AdminRole))
}
