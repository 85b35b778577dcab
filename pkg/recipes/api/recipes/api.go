package recipes

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bitebliss/bitebliss-engine/pkg/auth/api"
	"github.com/bitebliss/bitebliss-engine/pkg/httpserver"
	internalapi "github.com/bitebliss/bitebliss-engine/pkg/internal/api"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/api/entities"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/repo"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/entitlement"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/gate"
	"github.com/bitebliss/bitebliss-engine/pkg/utils"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type API struct {
	tracer trace.Tracer
	logger *zap.Logger
	gate   *gate.Gate
}

func New(logger *zap.Logger, gate *gate.Gate) API {
	return API{
		tracer: otel.GetTracerProvider().Tracer("recipes.http.recipes"),
		logger: logger.Named("recipes"),
		gate:   gate,
	}
}

func parsePage(c echo.Context, pageKey, sizeKey string) (internalapi.Page, error) {
	number, size, err := utils.PageConfigFromStrings(c.QueryParam(pageKey), c.QueryParam(sizeKey), gate.DefaultPageSize)
	if err != nil {
		return internalapi.Page{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return internalapi.NewPage(number, size, gate.DefaultPageSize, gate.MaxPageSize), nil
}

func parseFilter(c echo.Context) (repo.RecipeFilter, error) {
	f := repo.RecipeFilter{
		Slug:         c.QueryParam("filters[slug][$eq]"),
		CategorySlug: c.QueryParam("filters[category][slug][$eq]"),
		CategoryName: c.QueryParam("filters[category][name][$eqi]"),
		Query:        c.QueryParam("filters[title][$containsi]"),
	}
	if v := c.QueryParam("filters[isPremium][$eq]"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "filters[isPremium][$eq] is not a valid boolean")
		}
		f.IsPremium = &b
	}
	if v := c.QueryParam("filters[cookingTime][$lte]"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "filters[cookingTime][$lte] is not a valid integer")
		}
		f.MaxCookingTime = &i
	}
	return f, nil
}

// List godoc
//
//	@Summary		List recipes
//	@Description	Free callers only see free recipes.
//	@Tags			recipes
//	@Produce		json
//	@Param			filters[slug][$eq]				query		string	false	"Slug"
//	@Param			filters[isPremium][$eq]			query		bool	false	"Premium flag"
//	@Param			filters[category][slug][$eq]	query		string	false	"Category slug"
//	@Param			pagination[page]				query		int		false	"Page"
//	@Param			pagination[pageSize]			query		int		false	"Page size"
//	@Success		200								{object}	entities.RecipeListResponse
//	@Router			/api/recipes [get]
func (h API) List(c echo.Context) error {
	ctx, span := h.tracer.Start(c.Request().Context(), "list-recipes")
	defer span.End()

	f, err := parseFilter(c)
	if err != nil {
		return err
	}
	page, err := parsePage(c, "pagination[page]", "pagination[pageSize]")
	if err != nil {
		return err
	}

	tier := entitlement.FromContext(ctx).Tier
	span.SetAttributes(attribute.Int("tier", int(tier)))

	res, err := h.gate.List(ctx, tier, f, page)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.logger.Error("failed to list recipes", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list recipes")
	}
	return c.JSON(http.StatusOK, res)
}

// Search godoc
//
//	@Summary	Search recipes
//	@Tags		recipes
//	@Produce	json
//	@Param		q				query		string	false	"Text in title or description"
//	@Param		category		query		string	false	"Category name"
//	@Param		maxCookingTime	query		int		false	"Maximum cooking time in minutes"
//	@Param		page			query		int		false	"Page"
//	@Param		pageSize		query		int		false	"Page size"
//	@Success	200				{object}	entities.RecipeListResponse
//	@Router		/api/recipes/search [get]
func (h API) Search(c echo.Context) error {
	ctx, span := h.tracer.Start(c.Request().Context(), "search-recipes")
	defer span.End()

	page, err := parsePage(c, "page", "pageSize")
	if err != nil {
		return err
	}
	q := gate.SearchQuery{
		Query:    strings.TrimSpace(c.QueryParam("q")),
		Category: strings.TrimSpace(c.QueryParam("category")),
		Page:     page,
	}
	if v := c.QueryParam("maxCookingTime"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "maxCookingTime is not a valid integer")
		}
		q.MaxCookingTime = &i
	}

	res, err := h.gate.Search(ctx, entitlement.FromContext(ctx).Tier, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.logger.Error("failed to search recipes", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to search recipes")
	}
	return c.JSON(http.StatusOK, res)
}

// Filters godoc
//
//	@Summary	Search facets
//	@Tags		recipes
//	@Produce	json
//	@Success	200	{object}	entities.RecipeFiltersResponse
//	@Router		/api/recipes/filters [get]
func (h API) Filters(c echo.Context) error {
	res, err := h.gate.Facets(c.Request().Context())
	if err != nil {
		h.logger.Error("failed to load recipe filters", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load recipe filters")
	}
	return c.JSON(http.StatusOK, res)
}

// Get godoc
//
//	@Summary		Get recipe
//	@Description	Premium recipes are locked for free callers.
//	@Tags			recipes
//	@Produce		json
//	@Param			documentId	path		string	true	"Document id or slug"
//	@Success		200			{object}	entities.RecipeResponse
//	@Router			/api/recipes/{documentId} [get]
func (h API) Get(c echo.Context) error {
	ctx, span := h.tracer.Start(c.Request().Context(), "get-recipe")
	defer span.End()

	id := c.Param("documentId")
	span.SetAttributes(attribute.String("document_id", id))

	recipe, err := h.gate.Get(ctx, entitlement.FromContext(ctx).Tier, id)
	return h.respond(c, span, recipe, err)
}

// Preview returns drafts as well as published recipes.
func (h API) Preview(c echo.Context) error {
	ctx, span := h.tracer.Start(c.Request().Context(), "preview-recipe")
	defer span.End()

	recipe, err := h.gate.Preview(ctx, c.Param("documentId"))
	return h.respond(c, span, recipe, err)
}

func (h API) respond(c echo.Context, span trace.Span, recipe entities.Recipe, err error) error {
	if errors.Is(err, gate.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "recipe not found")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.logger.Error("failed to get recipe", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get recipe")
	}
	return c.JSON(http.StatusOK, entities.RecipeResponse{Data: recipe})
}

func (h API) Register(g *echo.Group) {
	g.GET("", httpserver.AuthorizeHandler(h.List, api.PublicRole))
	g.GET("/search", httpserver.AuthorizeHandler(h.Search, api.PublicRole))
	g.GET("/filters", httpserver.AuthorizeHandler(h.Filters, api.PublicRole))
	g.GET("/preview/:documentId", httpserver.AuthorizeHandler(h.Preview, api.AdminRole))
	g.GET("/:documentId", httpserver.AuthorizeHandler(h.Get, api.PublicRole))
}
