package analytics

import (
	"context"
	"net/http"

	"github.com/bitebliss/bitebliss-engine/pkg/auth/api"
	"github.com/bitebliss/bitebliss-engine/pkg/httpserver"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/analytics"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type API struct {
	tracer    trace.Tracer
	logger    *zap.Logger
	analytics *analytics.Service
}

func New(logger *zap.Logger, service *analytics.Service) API {
	return API{
		tracer:    otel.GetTracerProvider().Tracer("recipes.http.analytics"),
		logger:    logger.Named("analytics"),
		analytics: service,
	}
}

func serve[T any](h API, c echo.Context, name, failure string, f func(ctx context.Context) (T, error)) error {
	ctx, span := h.tracer.Start(c.Request().Context(), name)
	defer span.End()

	res, err := f(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.logger.Error(failure, zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, failure)
	}
	return c.JSON(http.StatusOK, res)
}

// Dashboard godoc
//
//	@Summary	Revenue, subscriber and content metrics
//	@Security	BearerToken
//	@Tags		analytics
//	@Produce	json
//	@Success	200	{object}	entities.DashboardOverview
//	@Router		/api/analytics/dashboard [get]
func (h API) Dashboard(c echo.Context) error {
	return serve(h, c, "analytics-dashboard", "Failed to fetch dashboard data", h.analytics.Dashboard)
}

func (h API) Revenue(c echo.Context) error {
	return serve(h, c, "analytics-revenue", "Failed to fetch revenue metrics", h.analytics.Revenue)
}

func (h API) Subscribers(c echo.Context) error {
	return serve(h, c, "analytics-subscribers", "Failed to fetch subscriber metrics", h.analytics.Subscribers)
}

func (h API) Content(c echo.Context) error {
	return serve(h, c, "analytics-content", "Failed to fetch content metrics", h.analytics.Content)
}

func (h API) Register(g *echo.Group) {
	g.GET("/dashboard", httpserver.AuthorizeHandler(h.Dashboard, api.AdminRole))
	g.GET("/revenue", httpserver.AuthorizeHandler(h.Revenue, api.AdminRole))
	g.GET("/subscribers", httpserver.AuthorizeHandler(h.Subscribers, api.AdminRole))
	g.GET("/content", httpserver.AuthorizeHandler(h.Content, api.AdminRole))
}
