package http

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/voyagio/payment-service/internal/domain/errors"
	"github.com/voyagio/payment-service/internal/domain/gateway"
	"github.com/voyagio/payment-service/internal/domain/model"
	"github.com/voyagio/payment-service/internal/domain/repository"
	"github.com/voyagio/payment-service/internal/usecase"
)

// PaymentHandler exposes the payment operations over HTTP.
type PaymentHandler struct {
	service   *usecase.PaymentService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentHandler creates the payment HTTP handler.
func NewPaymentHandler(service *usecase.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// Register mounts the payment routes on the group.
func (h *PaymentHandler) Register(g *echo.Group) {
	g.POST("/payments", h.ProcessPayment)
	g.GET("/payments", h.SearchPayments)
	g.GET("/payments/:id", h.GetPayment)
	g.POST("/payments/:id/confirm", h.ConfirmPayment)
	g.POST("/payments/:id/refund", h.RefundPayment)
	g.GET("/bookings/:id/payments", h.ListBookingPayments)
}

type cardRequest struct {
	Number     string `json:"number" validate:"required,min=13,max=19"`
	ExpMonth   int    `json:"exp_month" validate:"required,min=1,max=12"`
	ExpYear    int    `json:"exp_year" validate:"required,min=2024"`
	CVV        string `json:"cvv" validate:"required,min=3,max=4"`
	HolderName string `json:"holder_name" validate:"required"`
}

type splitRequest struct {
	RecipientID int64   `json:"recipient_id" validate:"required,gt=0"`
	Type        string  `json:"split_type" validate:"required,oneof=percentage fixed_amount"`
	AmountCents int64   `json:"amount_cents"`
	Percentage  float64 `json:"percentage"`
}

type processPaymentRequest struct {
	BookingID   int64                  `json:"booking_id" validate:"required,gt=0"`
	UserID      *int64                 `json:"user_id,omitempty"`
	Gateway     string                 `json:"gateway" validate:"required"`
	Method      string                 `json:"method" validate:"required"`
	AmountCents int64                  `json:"amount_cents" validate:"required,gt=0"`
	Currency    string                 `json:"currency" validate:"omitempty,len=3"`
	Card        *cardRequest           `json:"card,omitempty"`
	Splits      []splitRequest         `json:"splits,omitempty" validate:"dive"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

type refundPaymentRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"omitempty,gt=0"`
	Reason      string `json:"reason" validate:"omitempty,max=255"`
}

// ProcessPayment handles POST /payments
func (h *PaymentHandler) ProcessPayment(c echo.Context) error {
	var req processPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Card != nil {
		if err := h.validator.Struct(req.Card); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	payment, err := h.service.ProcessPayment(c.Request().Context(), toProcessRequest(&req))
	if err != nil {
		return errors.ToHTTPError(err)
	}

	return c.JSON(http.StatusCreated, payment)
}

// GetPayment handles GET /payments/:id
func (h *PaymentHandler) GetPayment(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	payment, err := h.service.GetByID(c.Request().Context(), id)
	if err != nil {
		return errors.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, payment)
}

// SearchPayments handles GET /payments
func (h *PaymentHandler) SearchPayments(c echo.Context) error {
	filters := repository.PaymentSearchFilters{
		Status:  model.PaymentStatus(c.QueryParam("status")),
		Gateway: c.QueryParam("gateway"),
	}
	if v := c.QueryParam("booking_id"); v != "" {
		bookingID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid booking_id")
		}
		filters.BookingID = bookingID
	}
	filters.Page, _ = strconv.Atoi(c.QueryParam("page"))
	filters.Limit, _ = strconv.Atoi(c.QueryParam("limit"))

	payments, total, err := h.service.Search(c.Request().Context(), filters)
	if err != nil {
		return errors.ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"payments": payments,
		"total":    total,
	})
}

type confirmPaymentRequest struct {
	TransactionID string `json:"transaction_id"`
}

// ConfirmPayment handles POST /payments/:id/confirm
func (h *PaymentHandler) ConfirmPayment(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	var req confirmPaymentRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}

	payment, err := h.service.ConfirmPayment(c.Request().Context(), id, req.TransactionID)
	if err != nil {
		return errors.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, payment)
}

// RefundPayment handles POST /payments/:id/refund
func (h *PaymentHandler) RefundPayment(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	var req refundPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	payment, err := h.service.RefundPayment(c.Request().Context(), id, &usecase.RefundPaymentRequest{
		AmountCents: req.AmountCents,
		Reason:      req.Reason,
	})
	if err != nil {
		return errors.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, payment)
}

// ListBookingPayments handles GET /bookings/:id/payments
func (h *PaymentHandler) ListBookingPayments(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	payments, err := h.service.GetByBooking(c.Request().Context(), id)
	if err != nil {
		return errors.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"payments": payments})
}

func paramID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func toProcessRequest(req *processPaymentRequest) *usecase.ProcessPaymentRequest {
	out := &usecase.ProcessPaymentRequest{
		BookingID:   req.BookingID,
		UserID:      req.UserID,
		Gateway:     req.Gateway,
		Method:      req.Method,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Metadata:    req.Metadata,
	}
	if req.Card != nil {
		out.Card = &gateway.CardData{
			Number:     req.Card.Number,
			ExpMonth:   req.Card.ExpMonth,
			ExpYear:    req.Card.ExpYear,
			CVV:        req.Card.CVV,
			HolderName: req.Card.HolderName,
		}
	}
	for _, s := range req.Splits {
		out.Splits = append(out.Splits, model.Split{
			RecipientID: s.RecipientID,
			Type:        model.SplitType(s.Type),
			AmountCents: s.AmountCents,
			Percentage:  decimal.NewFromFloat(s.Percentage),
		})
	}
	return out
}
