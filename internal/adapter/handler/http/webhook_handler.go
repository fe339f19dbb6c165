package http

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/voyagio/payment-service/internal/domain/errors"
	"github.com/voyagio/payment-service/internal/usecase"
)

// signatureHeaders maps each gateway to the header carrying its webhook
// signature.
var signatureHeaders = map[string]string{
	"stripe":       "Stripe-Signature",
	"mercado_pago": "X-Signature",
}

// WebhookHandler accepts inbound gateway notifications. It acknowledges fast:
// the response is sent once the event is durably recorded, before any
// business processing happens.
type WebhookHandler struct {
	service *usecase.WebhookService
	logger  *zap.Logger
}

// NewWebhookHandler creates the webhook HTTP handler.
func NewWebhookHandler(service *usecase.WebhookService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, logger: logger}
}

// Register mounts the webhook routes on the group.
func (h *WebhookHandler) Register(g *echo.Group) {
	g.POST("/payments/webhook/:gateway", h.Receive)
	g.GET("/payments/webhook-events/dead-letter", h.DeadLetters)
}

// Receive handles POST /payments/webhook/:gateway
func (h *WebhookHandler) Receive(c echo.Context) error {
	gatewayName := c.Param("gateway")

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}

	header := signatureHeaders[gatewayName]
	if header == "" {
		header = "X-Signature"
	}
	signature := c.Request().Header.Get(header)

	result, err := h.service.Ingest(c.Request().Context(), gatewayName, payload, signature)
	if err != nil {
		return errors.ToHTTPError(err)
	}

	resp := map[string]interface{}{
		"received": true,
		"event_id": result.GatewayEventID,
	}
	if result.Duplicate {
		resp["message"] = "event already processed"
	}
	return c.JSON(http.StatusOK, resp)
}

// DeadLetters handles GET /payments/webhook-events/dead-letter
func (h *WebhookHandler) DeadLetters(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	events, err := h.service.DeadLetters(c.Request().Context(), limit)
	if err != nil {
		return errors.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}
