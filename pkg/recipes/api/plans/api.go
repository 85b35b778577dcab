package plans

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bitebliss/bitebliss-engine/pkg/auth/api"
	"github.com/bitebliss/bitebliss-engine/pkg/httpserver"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/api/entities"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/model"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/repo"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type API struct {
	tracer trace.Tracer
	logger *zap.Logger
	plans  repo.PlanRepo
}

func New(logger *zap.Logger, plans repo.PlanRepo) API {
	return API{
		tracer: otel.GetTracerProvider().Tracer("recipes.http.plans"),
		logger: logger.Named("plans"),
		plans:  plans,
	}
}

// List godoc
//
//	@Summary	List active subscription plans ordered by tier
//	@Tags		subscription-plans
//	@Produce	json
//	@Success	200	{object}	entities.PlanListResponse
//	@Router		/api/subscription-plans [get]
func (h API) List(c echo.Context) error {
	ctx, span := h.tracer.Start(c.Request().Context(), "list-plans")
	defer span.End()

	plans, err := h.plans.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.logger.Error("failed to list plans", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list plans")
	}

	res := entities.PlanListResponse{Data: make([]entities.Plan, 0, len(plans))}
	for _, p := range plans {
		res.Data = append(res.Data, entities.NewPlan(p))
	}
	return c.JSON(http.StatusOK, res)
}

func (h API) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid plan id")
	}

	plan, err := h.plans.Get(c.Request().Context(), uint(id))
	if err != nil {
		h.logger.Error("failed to get plan", zap.Uint64("plan_id", id), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get plan")
	}
	if plan == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Plan not found")
	}
	return c.JSON(http.StatusOK, entities.PlanResponse{Data: entities.NewPlan(*plan)})
}

// Create godoc
//
//	@Summary	Create subscription plan
//	@Security	BearerToken
//	@Tags		subscription-plans
//	@Accept		json
//	@Produce	json
//	@Param		request	body		entities.CreatePlanRequest	true	"Plan"
//	@Success	201		{object}	entities.PlanResponse
//	@Router		/api/subscription-plans [post]
func (h API) Create(c echo.Context) error {
	ctx, span := h.tracer.Start(c.Request().Context(), "create-plan")
	defer span.End()

	var req entities.CreatePlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Price.IsNegative() || req.YearlyPrice.IsNegative() {
		return echo.NewHTTPError(http.StatusBadRequest, "prices must not be negative")
	}
	if req.Tier == 0 && (!req.Price.IsZero() || !req.YearlyPrice.IsZero()) {
		return echo.NewHTTPError(http.StatusBadRequest, "the free tier must have zero prices")
	}

	features, err := json.Marshal(req.Features)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Features == nil {
		features = []byte("[]")
	}

	plan := model.SubscriptionPlan{
		Name:         req.Name,
		Description:  req.Description,
		PriceMonthly: req.Price,
		PriceYearly:  req.YearlyPrice,
		Tier:         req.Tier,
		Features:     datatypes.JSON(features),
		IsActive:     req.IsActive == nil || *req.IsActive,
	}
	if req.StripePriceID != "" {
		plan.StripePriceID = &req.StripePriceID
	}
	if req.StripeYearlyPriceID != "" {
		plan.StripeYearlyPriceID = &req.StripeYearlyPriceID
	}

	err = h.plans.Create(ctx, &plan)
	if errors.Is(err, repo.ErrActiveTierExists) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.logger.Error("failed to create plan", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create plan")
	}
	return c.JSON(http.StatusCreated, entities.PlanResponse{Data: entities.NewPlan(plan)})
}

func (h API) Register(g *echo.Group) {
	g.GET("", httpserver.AuthorizeHandler(h.List, api.PublicRole))
	g.GET("/:id", httpserver.AuthorizeHandler(h.Get, api.PublicRole))
	g.POST("", httpserver.AuthorizeHandler(h.Create, api.AdminRole))
}
