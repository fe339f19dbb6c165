package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/voyagio/payment-service/internal/breaker"
	"github.com/voyagio/payment-service/internal/domain/errors"
	"github.com/voyagio/payment-service/internal/domain/gateway"
	"github.com/voyagio/payment-service/internal/domain/model"
	"github.com/voyagio/payment-service/internal/domain/repository"
	"github.com/voyagio/payment-service/internal/notify"
)

// creditCardFeeRate is the processing fee applied to credit card payments.
var creditCardFeeRate = decimal.NewFromFloat(0.025)

// GatewayResolver maps gateway identifiers to adapters.
type GatewayResolver interface {
	Resolve(name string) (gateway.Gateway, error)
}

// ProcessPaymentRequest carries a validated payment creation request.
type ProcessPaymentRequest struct {
	BookingID   int64
	UserID      *int64
	Gateway     string
	Method      string
	AmountCents int64
	Currency    string
	Card        *gateway.CardData
	Splits      model.SplitList
	Metadata    map[string]interface{}
}

// RefundPaymentRequest carries a refund request. A zero amount means a full
// refund of the original payment.
type RefundPaymentRequest struct {
	AmountCents int64
	Reason      string
}

// PaymentService orchestrates payment processing across gateways, keeping the
// payment record and its booking in sync.
type PaymentService struct {
	payments repository.PaymentRepository
	bookings repository.BookingRepository
	gateways GatewayResolver
	breakers *breaker.Registry
	sink     notify.Sink
	logger   *zap.Logger

	// confirmDegrade completes a payment locally when the confirmation call
	// fails but the gateway already holds a transaction for it.
	confirmDegrade bool
}

// NewPaymentService creates the payment orchestrator.
func NewPaymentService(
	payments repository.PaymentRepository,
	bookings repository.BookingRepository,
	gateways GatewayResolver,
	breakers *breaker.Registry,
	sink notify.Sink,
	confirmDegrade bool,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		payments:       payments,
		bookings:       bookings,
		gateways:       gateways,
		breakers:       breakers,
		sink:           sink,
		confirmDegrade: confirmDegrade,
		logger:         logger,
	}
}

// ProcessPayment creates a payment record, charges the gateway through its
// circuit breaker and syncs the booking payment status in one transaction.
func (s *PaymentService) ProcessPayment(ctx context.Context, req *ProcessPaymentRequest) (*model.Payment, error) {
	booking, err := s.bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	if model.IsCardMethod(req.Method) && req.Card == nil {
		return nil, errors.Validation("card data is required for card payments")
	}

	if len(req.Splits) > 0 {
		splitTotal, err := model.ResolveSplitTotal(req.AmountCents, req.Splits)
		if err != nil {
			return nil, errors.Validation(err.Error())
		}
		if splitTotal > req.AmountCents {
			return nil, errors.Validation("split total exceeds payment amount")
		}
	}

	currency := req.Currency
	if currency == "" {
		currency = "BRL"
	}

	feeCents := feeFor(req.Method, req.AmountCents)
	payment := &model.Payment{
		BookingID:     req.BookingID,
		UserID:        req.UserID,
		TransactionID: "tmp_" + uuid.New().String(),
		Gateway:       req.Gateway,
		Method:        req.Method,
		Status:        model.PaymentStatusPending,
		AmountCents:   req.AmountCents,
		Currency:      currency,
		FeeCents:      feeCents,
		NetCents:      req.AmountCents - feeCents,
		Splits:        req.Splits,
		Metadata:      req.Metadata,
	}
	if req.Card != nil && len(req.Card.Number) >= 4 {
		lastFour := req.Card.Number[len(req.Card.Number)-4:]
		payment.CardLastFour = &lastFour
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	gw, err := s.gateways.Resolve(req.Gateway)
	if err != nil {
		s.failPayment(ctx, payment, err)
		return nil, err
	}

	var resp *gateway.CreatePaymentResponse
	callErr := s.breakers.Do(ctx, req.Gateway, func(ctx context.Context) error {
		var err error
		resp, err = gw.CreatePayment(ctx, &gateway.CreatePaymentRequest{
			AmountCents: req.AmountCents,
			Currency:    currency,
			Method:      req.Method,
			Description: fmt.Sprintf("Booking %s", booking.BookingNumber),
			PayerEmail:  booking.CustomerEmail,
			Card:        req.Card,
			Metadata: map[string]interface{}{
				"booking_id": fmt.Sprint(req.BookingID),
				"payment_id": fmt.Sprint(payment.ID),
			},
		})
		return err
	})
	if callErr != nil {
		if errors.Is(callErr, breaker.ErrOpen) {
			callErr = errors.GatewayUnavailable("gateway temporarily unavailable", callErr)
		} else {
			callErr = errors.Gateway("payment creation failed", callErr)
		}
		s.failPayment(ctx, payment, callErr)
		return nil, callErr
	}

	payment.TransactionID = resp.TransactionID
	payment.GatewayTransactionID = &resp.TransactionID
	payment.GatewayResponse = resp.Raw
	if resp.CardBrand != "" {
		payment.CardBrand = &resp.CardBrand
	}
	now := time.Now()
	payment.ProcessedAt = &now

	switch resp.Status {
	case gateway.TransactionStatusConfirmed:
		payment.Status = model.PaymentStatusConfirmed
		payment.ConfirmedAt = &now
		status, paid := bookingStatusAfterPayment(booking, payment.AmountCents)
		if err := s.payments.UpdateWithBookingStatus(ctx, payment, status, paid); err != nil {
			return nil, err
		}
		s.notifyAsync(func(ctx context.Context) { s.sink.PaymentConfirmed(ctx, payment) })
	case gateway.TransactionStatusFailed:
		payment.Status = model.PaymentStatusFailed
		if err := s.payments.Update(ctx, payment); err != nil {
			return nil, err
		}
	default:
		payment.Status = model.PaymentStatusProcessing
		if err := s.payments.UpdateWithBookingStatus(ctx, payment, model.BookingPaymentPartial, booking.PaidAmountCents); err != nil {
			return nil, err
		}
	}

	s.logger.Info("payment processed",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("booking_id", payment.BookingID),
		zap.String("gateway", payment.Gateway),
		zap.String("status", string(payment.Status)))

	return payment, nil
}

// ConfirmPayment checks a pending or processing payment against the gateway
// and settles its final status. A non-empty transactionID attaches the gateway
// transaction to a payment that does not have one yet. A payment that still
// has no gateway transaction is completed locally without any gateway call.
func (s *PaymentService) ConfirmPayment(ctx context.Context, paymentID int64, transactionID string) (*model.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status == model.PaymentStatusCompleted {
		return payment, nil
	}
	if payment.Status.Terminal() {
		return nil, errors.InvalidState(fmt.Sprintf("cannot confirm payment in status '%s'", payment.Status))
	}
	if payment.GatewayTransactionID == nil && transactionID != "" {
		payment.GatewayTransactionID = &transactionID
	}
	if payment.GatewayTransactionID == nil {
		return s.completePayment(ctx, payment, nil)
	}

	gw, err := s.gateways.Resolve(payment.Gateway)
	if err != nil {
		return nil, err
	}

	var resp *gateway.ConfirmPaymentResponse
	callErr := s.breakers.Do(ctx, payment.Gateway, func(ctx context.Context) error {
		var err error
		resp, err = gw.ConfirmPayment(ctx, *payment.GatewayTransactionID)
		return err
	})
	if callErr != nil {
		if !s.confirmDegrade {
			if errors.Is(callErr, breaker.ErrOpen) {
				return nil, errors.GatewayUnavailable("gateway temporarily unavailable", callErr)
			}
			return nil, errors.Gateway("payment confirmation failed", callErr)
		}
		s.logger.Warn("confirmation call failed, completing payment locally",
			zap.Int64("payment_id", payment.ID),
			zap.Error(callErr))
		return s.completePayment(ctx, payment, nil)
	}

	switch resp.Status {
	case gateway.TransactionStatusConfirmed:
		return s.completePayment(ctx, payment, resp.Raw)
	case gateway.TransactionStatusFailed:
		payment.Status = model.PaymentStatusFailed
		payment.GatewayResponse = resp.Raw
		if err := s.payments.Update(ctx, payment); err != nil {
			return nil, err
		}
		s.notifyAsync(func(ctx context.Context) { s.sink.PaymentFailed(ctx, payment) })
		return payment, nil
	default:
		return payment, nil
	}
}

// RefundPayment refunds a completed or confirmed payment, fully or partially.
func (s *PaymentService) RefundPayment(ctx context.Context, paymentID int64, req *RefundPaymentRequest) (*model.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status != model.PaymentStatusCompleted && payment.Status != model.PaymentStatusConfirmed {
		return nil, errors.InvalidState(fmt.Sprintf("cannot refund payment in status '%s'", payment.Status))
	}

	amount := req.AmountCents
	if amount == 0 {
		amount = payment.AmountCents
	}
	if amount < 0 || amount > payment.AmountCents {
		return nil, errors.Validation("refund amount exceeds original payment amount")
	}

	// Payments without a gateway transaction are refunded locally.
	var resp *gateway.RefundResponse
	if payment.GatewayTransactionID != nil {
		gw, err := s.gateways.Resolve(payment.Gateway)
		if err != nil {
			return nil, err
		}

		callErr := s.breakers.Do(ctx, payment.Gateway, func(ctx context.Context) error {
			var err error
			resp, err = gw.RefundPayment(ctx, *payment.GatewayTransactionID, &gateway.RefundRequest{
				AmountCents: amount,
				Reason:      req.Reason,
			})
			return err
		})
		if callErr != nil {
			if errors.Is(callErr, breaker.ErrOpen) || gateway.IsRefundUnavailable(callErr) {
				return nil, errors.GatewayUnavailable("refund is unavailable for this payment", callErr)
			}
			return nil, errors.Gateway("refund failed", callErr)
		}
	}

	booking, err := s.bookings.GetByID(ctx, payment.BookingID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	payment.Status = model.PaymentStatusRefunded
	payment.RefundedCents = amount
	payment.RefundedAt = &now
	if req.Reason != "" {
		payment.RefundReason = &req.Reason
	}
	refundID := ""
	if resp != nil {
		refundID = resp.RefundID
		if resp.Raw != nil {
			payment.GatewayResponse = resp.Raw
		}
	}

	paid := booking.PaidAmountCents - amount
	if paid < 0 {
		paid = 0
	}
	status := model.BookingPaymentRefunded
	if paid > 0 {
		status = model.BookingPaymentPartial
	}
	if err := s.payments.UpdateWithBookingStatus(ctx, payment, status, paid); err != nil {
		return nil, err
	}

	s.logger.Info("payment refunded",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("refunded_cents", amount),
		zap.String("refund_id", refundID))

	s.notifyAsync(func(ctx context.Context) { s.sink.PaymentRefunded(ctx, payment) })
	return payment, nil
}

// GetByID returns a single payment.
func (s *PaymentService) GetByID(ctx context.Context, id int64) (*model.Payment, error) {
	return s.payments.GetByID(ctx, id)
}

// GetByBooking lists the payments of one booking, newest first.
func (s *PaymentService) GetByBooking(ctx context.Context, bookingID int64) ([]*model.Payment, error) {
	return s.payments.GetByBooking(ctx, bookingID)
}

// Search lists payments matching the filters with pagination.
func (s *PaymentService) Search(ctx context.Context, filters repository.PaymentSearchFilters) ([]*model.Payment, int64, error) {
	return s.payments.Search(ctx, filters)
}

func (s *PaymentService) completePayment(ctx context.Context, payment *model.Payment, raw map[string]interface{}) (*model.Payment, error) {
	booking, err := s.bookings.GetByID(ctx, payment.BookingID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	payment.Status = model.PaymentStatusCompleted
	payment.ConfirmedAt = &now
	if raw != nil {
		payment.GatewayResponse = raw
	}

	status, paid := bookingStatusAfterPayment(booking, payment.AmountCents)
	if err := s.payments.UpdateWithBookingStatus(ctx, payment, status, paid); err != nil {
		return nil, err
	}

	s.notifyAsync(func(ctx context.Context) { s.sink.PaymentConfirmed(ctx, payment) })
	return payment, nil
}

func (s *PaymentService) failPayment(ctx context.Context, payment *model.Payment, cause error) {
	payment.Status = model.PaymentStatusFailed
	if cause != nil {
		payment.Metadata = appendError(payment.Metadata, cause)
	}
	if err := s.payments.Update(ctx, payment); err != nil {
		s.logger.Error("failed to record payment failure",
			zap.Int64("payment_id", payment.ID),
			zap.Error(err))
	}
}

// notifyAsync fires a notification without blocking the payment flow.
func (s *PaymentService) notifyAsync(fn func(ctx context.Context)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		fn(ctx)
	}()
}

func bookingStatusAfterPayment(booking *model.Booking, amountCents int64) (model.BookingPaymentStatus, int64) {
	paid := booking.PaidAmountCents + amountCents
	if paid >= booking.TotalAmountCents {
		return model.BookingPaymentPaid, paid
	}
	return model.BookingPaymentPartial, paid
}

func feeFor(method string, amountCents int64) int64 {
	if method != "credit_card" {
		return 0
	}
	return decimal.NewFromInt(amountCents).Mul(creditCardFeeRate).Ceil().IntPart()
}

func appendError(metadata model.JSONB, cause error) model.JSONB {
	if metadata == nil {
		metadata = model.JSONB{}
	}
	metadata["failure_reason"] = cause.Error()
	return metadata
}
