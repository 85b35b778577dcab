package generator

import (
	"errors"
	"net/http"
	"time"

	"github.com/bitebliss/bitebliss-engine/pkg/auth/api"
	"github.com/bitebliss/bitebliss-engine/pkg/httpserver"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/api/entities"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/entitlement"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/gate"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/generator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Generation calls a paid model; each client gets a small burst, then one
// request every 10 seconds.
var (
	generateRate  = rate.Every(10 * time.Second)
	generateBurst = 3
)

type API struct {
	tracer    trace.Tracer
	logger    *zap.Logger
	generator *generator.Generator
}

func New(logger *zap.Logger, g *generator.Generator) API {
	return API{
		tracer:    otel.GetTracerProvider().Tracer("recipes.http.generator"),
		logger:    logger.Named("ai-generator"),
		generator: g,
	}
}

// Generate godoc
//
//	@Summary	Generate and publish a recipe from a prompt
//	@Security	BearerToken
//	@Tags		ai-generator
//	@Accept		json
//	@Produce	json
//	@Param		request	body		entities.GenerateRecipeRequest	true	"Prompt"
//	@Success	200		{object}	entities.GenerateRecipeResponse
//	@Router		/api/ai-generator/generate [post]
func (h API) Generate(c echo.Context) error {
	ctx, span := h.tracer.Start(c.Request().Context(), "generate-recipe")
	defer span.End()

	var req entities.GenerateRecipeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	recipe, err := h.generator.Generate(ctx, req.Prompt)
	switch {
	case errors.Is(err, generator.ErrPromptRequired), errors.Is(err, generator.ErrInvalidJSON):
		return echo.NewHTTPError(http.StatusBadRequest, errorMessage(err))
	case errors.Is(err, generator.ErrNotConfigured):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.logger.Error("recipe generation failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate recipe")
	}

	return c.JSON(http.StatusOK, entities.GenerateRecipeResponse{
		Message: "Recipe generated successfully",
		Recipe:  gate.Project(entitlement.TierChef, *recipe),
	})
}

// errorMessage drops the parser detail wrapped around ErrInvalidJSON.
func errorMessage(err error) string {
	if errors.Is(err, generator.ErrInvalidJSON) {
		return generator.ErrInvalidJSON.Error()
	}
	return err.Error()
}

func (h API) Register(g *echo.Group) {
	limiter := middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      generateRate,
		Burst:     generateBurst,
		ExpiresIn: 10 * time.Minute,
	}))
	g.POST("/generate", httpserver.AuthorizeHandler(h.Generate, api.AdminRole), limiter)
}
