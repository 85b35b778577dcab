package webhook

import (
	"context"
	"io"
	"net/http"

	"github.com/bitebliss/bitebliss-engine/pkg/recipes/api/entities"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/billing"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	signatureHeader = "Stripe-Signature"
	maxPayloadBytes = int64(65536)
)

type EventVerifier interface {
	ConstructEvent(payload []byte, signature string) (billing.Event, error)
}

type EventHandler interface {
	Handle(ctx context.Context, ev billing.Event) error
}

type API struct {
	tracer   trace.Tracer
	logger   *zap.Logger
	verifier EventVerifier
	handler  EventHandler
}

func New(logger *zap.Logger, verifier EventVerifier, handler EventHandler) API {
	return API{
		tracer:   otel.GetTracerProvider().Tracer("recipes.http.webhook"),
		logger:   logger.Named("webhook"),
		verifier: verifier,
		handler:  handler,
	}
}

// Stripe godoc
//
//	@Summary		Billing provider webhook
//	@Description	Verified against the Stripe-Signature header. A 500 makes the provider redeliver.
//	@Tags			webhook
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	entities.WebhookResponse
//	@Router			/webhook/stripe [post]
func (h API) Stripe(c echo.Context) error {
	ctx, span := h.tracer.Start(c.Request().Context(), "stripe-webhook")
	defer span.End()

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPayloadBytes))
	if err != nil {
		h.logger.Warn("failed to read webhook body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, entities.WebhookResponse{Error: "Failed to read request body"})
	}

	ev, err := h.verifier.ConstructEvent(payload, c.Request().Header.Get(signatureHeader))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if billing.IsInvalidSignature(err) {
			h.logger.Warn("webhook signature verification failed", zap.Error(err))
			return c.JSON(http.StatusBadRequest, entities.WebhookResponse{Error: "Webhook signature verification failed"})
		}
		h.logger.Error("failed to decode webhook event", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, entities.WebhookResponse{Error: "Webhook handler failed"})
	}

	span.SetAttributes(
		attribute.String("event_id", ev.EventID()),
		attribute.String("event_type", ev.EventType()),
	)
	h.logger.Info("stripe webhook event", zap.String("event_id", ev.EventID()), zap.String("type", ev.EventType()))

	if err := h.handler.Handle(ctx, ev); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return c.JSON(http.StatusInternalServerError, entities.WebhookResponse{Error: "Webhook handler failed"})
	}
	return c.JSON(http.StatusOK, entities.WebhookResponse{Received: true})
}

func (h API) Register(g *echo.Group) {
	g.POST("/stripe", h.Stripe)
}
