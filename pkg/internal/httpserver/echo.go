package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bitebliss/bitebliss-engine/pkg/httpserver"
	echoPrometheus "github.com/globocom/echo-prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gopkg.in/go-playground/validator.v9"
)

// the middleware registers its collectors globally, so it is built once per process
var metricsMiddleware = sync.OnceValue(echoPrometheus.MetricsMiddleware)

type Routes interface {
	Register(router *echo.Echo)
}

type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	BodyLimit       string

	JaegerAgentHost string
	ServiceName     string
}

// Register builds the echo instance with the shared middleware stack. The
// returned tracer provider is nil when no jaeger agent is configured.
func Register(logger *zap.Logger, cfg Config, routes Routes) (*echo.Echo, *sdktrace.TracerProvider, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(httpserver.Logger(logger))
	e.Use(metricsMiddleware())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	e.Pre(middleware.RemoveTrailingSlash())

	var tp *sdktrace.TracerProvider
	if cfg.JaegerAgentHost != "" {
		var err error
		tp, err = initTracer(cfg.JaegerAgentHost)
		if err != nil {
			return nil, nil, err
		}
		e.Use(otelecho.Middleware(cfg.ServiceName))
	}

	e.Validator = customValidator{
		validate: validator.New(),
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	routes.Register(e)

	return e, tp, nil
}

// RegisterAndStart serves until ctx is canceled, then drains in-flight
// requests within the shutdown timeout.
func RegisterAndStart(ctx context.Context, logger *zap.Logger, cfg Config, routes Routes) error {
	e, tp, err := Register(logger, cfg, routes)
	if err != nil {
		return err
	}

	defer func() {
		if tp == nil {
			return
		}
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("address", cfg.Address))
		errCh <- e.Start(cfg.Address)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("shutting down http server")
	return e.Shutdown(shutdownCtx)
}

type customValidator struct {
	validate *validator.Validate
}

func (v customValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func QueryArrayParam(ctx echo.Context, paramName string) []string {
	var values []string
	for k, v := range ctx.QueryParams() {
		if k == paramName || k == paramName+"[]" {
			values = append(values, v...)
		}
	}
	return values
}

func QueryIntParam(ctx echo.Context, paramName string, fallback int) int {
	v := ctx.QueryParam(paramName)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func initTracer(agentHost string) (*sdktrace.TracerProvider, error) {
	exporter, err := jaeger.New(jaeger.WithAgentEndpoint(jaeger.WithAgentHost(agentHost)))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return tp, nil
}
