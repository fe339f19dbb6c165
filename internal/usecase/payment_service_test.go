package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/voyagio/payment-service/internal/breaker"
	"github.com/voyagio/payment-service/internal/domain/errors"
	"github.com/voyagio/payment-service/internal/domain/gateway"
	"github.com/voyagio/payment-service/internal/domain/model"
)

func testBreakers() *breaker.Registry {
	return breaker.NewRegistry(breaker.Settings{
		FailureThreshold: 5,
		Window:           10 * time.Second,
		ResetTimeout:     time.Minute,
		HalfOpenMaxCalls: 3,
	}, zap.NewNop())
}

func newTestPaymentService(payments *mockPaymentRepo, bookings *mockBookingRepo, resolver *mockResolver, sink *mockSink, breakers *breaker.Registry) *PaymentService {
	if breakers == nil {
		breakers = testBreakers()
	}
	return NewPaymentService(payments, bookings, resolver, breakers, sink, true, zap.NewNop())
}

func testBooking() *model.Booking {
	return &model.Booking{
		ID:               10,
		BookingNumber:    "BK-1001",
		CustomerEmail:    "traveler@example.com",
		TotalAmountCents: 50000,
		PaymentStatus:    model.BookingPaymentPending,
	}
}

func TestProcessPaymentConfirmed(t *testing.T) {
	payments := new(mockPaymentRepo)
	bookings := new(mockBookingRepo)
	resolver := new(mockResolver)
	sink := new(mockSink)
	gw := &mockGateway{name: "stripe"}

	bookings.On("GetByID", mock.Anything, int64(10)).Return(testBooking(), nil)
	payments.On("Create", mock.Anything, mock.AnythingOfType("*model.Payment")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.Payment).ID = 1
		}).Return(nil)
	resolver.On("Resolve", "stripe").Return(gw, nil)
	gw.On("CreatePayment", mock.Anything, mock.AnythingOfType("*gateway.CreatePaymentRequest")).
		Return(&gateway.CreatePaymentResponse{
			TransactionID: "pi_123",
			Status:        gateway.TransactionStatusConfirmed,
			CardBrand:     "visa",
		}, nil)
	payments.On("UpdateWithBookingStatus", mock.Anything, mock.AnythingOfType("*model.Payment"),
		model.BookingPaymentPaid, int64(50000)).Return(nil)
	sink.On("PaymentConfirmed", mock.Anything, mock.Anything).Maybe()

	svc := newTestPaymentService(payments, bookings, resolver, sink, nil)
	payment, err := svc.ProcessPayment(context.Background(), &ProcessPaymentRequest{
		BookingID:   10,
		Gateway:     "stripe",
		Method:      "credit_card",
		AmountCents: 50000,
		Card: &gateway.CardData{
			Number: "4242424242424242", ExpMonth: 12, ExpYear: 2030,
			CVV: "123", HolderName: "J Doe",
		},
	})

	assert.NoError(t, err)
	assert.Equal(t, model.PaymentStatusConfirmed, payment.Status)
	assert.Equal(t, "pi_123", payment.TransactionID)
	assert.Equal(t, "visa", *payment.CardBrand)
	assert.Equal(t, "4242", *payment.CardLastFour)
	assert.Equal(t, int64(1250), payment.FeeCents)
	assert.Equal(t, int64(48750), payment.NetCents)
	assert.NotNil(t, payment.ConfirmedAt)
	payments.AssertExpectations(t)
}

func TestProcessPaymentProcessingMarksBookingPartial(t *testing.T) {
	payments := new(mockPaymentRepo)
	bookings := new(mockBookingRepo)
	resolver := new(mockResolver)
	gw := &mockGateway{name: "mercado_pago"}

	bookings.On("GetByID", mock.Anything, int64(10)).Return(testBooking(), nil)
	payments.On("Create", mock.Anything, mock.Anything).Return(nil)
	resolver.On("Resolve", "mercado_pago").Return(gw, nil)
	gw.On("CreatePayment", mock.Anything, mock.Anything).
		Return(&gateway.CreatePaymentResponse{
			TransactionID: "mp_1",
			Status:        gateway.TransactionStatusProcessing,
		}, nil)
	payments.On("UpdateWithBookingStatus", mock.Anything, mock.AnythingOfType("*model.Payment"),
		model.BookingPaymentPartial, int64(0)).Return(nil)

	svc := newTestPaymentService(payments, bookings, resolver, new(mockSink), nil)
	payment, err := svc.ProcessPayment(context.Background(), &ProcessPaymentRequest{
		BookingID: 10, Gateway: "mercado_pago", Method: "pix", AmountCents: 20000,
	})

	assert.NoError(t, err)
	assert.Equal(t, model.PaymentStatusProcessing, payment.Status)
	payments.AssertExpectations(t)
}

func TestProcessPaymentBookingNotFound(t *testing.T) {
	payments := new(mockPaymentRepo)
	bookings := new(mockBookingRepo)
	bookings.On("GetByID", mock.Anything, int64(99)).Return(nil, errors.NotFound("booking not found"))

	svc := newTestPaymentService(payments, bookings, new(mockResolver), new(mockSink), nil)
	_, err := svc.ProcessPayment(context.Background(), &ProcessPaymentRequest{
		BookingID: 99, Gateway: "stripe", Method: "pix", AmountCents: 1000,
	})

	assert.Equal(t, errors.ErrNotFound, errors.CodeOf(err))
	payments.AssertNotCalled(t, "Create")
}

func TestProcessPaymentCardRequired(t *testing.T) {
	bookings := new(mockBookingRepo)
	bookings.On("GetByID", mock.Anything, int64(10)).Return(testBooking(), nil)

	svc := newTestPaymentService(new(mockPaymentRepo), bookings, new(mockResolver), new(mockSink), nil)
	_, err := svc.ProcessPayment(context.Background(), &ProcessPaymentRequest{
		BookingID: 10, Gateway: "stripe", Method: "credit_card", AmountCents: 1000,
	})

	assert.Equal(t, errors.ErrValidation, errors.CodeOf(err))
}

func TestProcessPaymentSplitExceedsAmount(t *testing.T) {
	bookings := new(mockBookingRepo)
	bookings.On("GetByID", mock.Anything, int64(10)).Return(testBooking(), nil)

	svc := newTestPaymentService(new(mockPaymentRepo), bookings, new(mockResolver), new(mockSink), nil)
	_, err := svc.ProcessPayment(context.Background(), &ProcessPaymentRequest{
		BookingID: 10, Gateway: "stripe", Method: "pix", AmountCents: 1000,
		Splits: model.SplitList{
			{RecipientID: 1, Type: model.SplitTypeFixedAmount, AmountCents: 800},
			{RecipientID: 2, Type: model.SplitTypeFixedAmount, AmountCents: 300},
		},
	})

	assert.Equal(t, errors.ErrValidation, errors.CodeOf(err))
}

func TestProcessPaymentGatewayFailureMarksPaymentFailed(t *testing.T) {
	payments := new(mockPaymentRepo)
	bookings := new(mockBookingRepo)
	resolver := new(mockResolver)
	gw := &mockGateway{name: "stripe"}

	bookings.On("GetByID", mock.Anything, int64(10)).Return(testBooking(), nil)
	payments.On("Create", mock.Anything, mock.Anything).Return(nil)
	resolver.On("Resolve", "stripe").Return(gw, nil)
	gw.On("CreatePayment", mock.Anything, mock.Anything).
		Return(nil, &gateway.ProviderError{Code: gateway.ErrCodeCardDeclined, Message: "card declined"})
	payments.On("Update", mock.Anything, mock.MatchedBy(func(p *model.Payment) bool {
		return p.Status == model.PaymentStatusFailed
	})).Return(nil)

	svc := newTestPaymentService(payments, bookings, resolver, new(mockSink), nil)
	_, err := svc.ProcessPayment(context.Background(), &ProcessPaymentRequest{
		BookingID: 10, Gateway: "stripe", Method: "pix", AmountCents: 1000,
	})

	assert.Equal(t, errors.ErrGateway, errors.CodeOf(err))
	payments.AssertExpectations(t)
}

func TestProcessPaymentOpenCircuitFailsFast(t *testing.T) {
	payments := new(mockPaymentRepo)
	bookings := new(mockBookingRepo)
	resolver := new(mockResolver)
	gw := &mockGateway{name: "stripe"}

	bookings.On("GetByID", mock.Anything, int64(10)).Return(testBooking(), nil)
	payments.On("Create", mock.Anything, mock.Anything).Return(nil)
	payments.On("Update", mock.Anything, mock.Anything).Return(nil)
	resolver.On("Resolve", "stripe").Return(gw, nil)
	gw.On("CreatePayment", mock.Anything, mock.Anything).
		Return(nil, &gateway.ProviderError{Code: gateway.ErrCodeAPIError, Message: "boom"}).Once()

	breakers := breaker.NewRegistry(breaker.Settings{
		FailureThreshold: 1,
		Window:           10 * time.Second,
		ResetTimeout:     time.Minute,
		HalfOpenMaxCalls: 1,
	}, zap.NewNop())

	svc := newTestPaymentService(payments, bookings, resolver, new(mockSink), breakers)
	req := &ProcessPaymentRequest{BookingID: 10, Gateway: "stripe", Method: "pix", AmountCents: 1000}

	_, err := svc.ProcessPayment(context.Background(), req)
	assert.Equal(t, errors.ErrGateway, errors.CodeOf(err))

	_, err = svc.ProcessPayment(context.Background(), req)
	assert.Equal(t, errors.ErrGatewayUnavailable, errors.CodeOf(err))
	gw.AssertNumberOfCalls(t, "CreatePayment", 1)
}

func TestConfirmPaymentAlreadyCompleted(t *testing.T) {
	payments := new(mockPaymentRepo)
	payments.On("GetByID", mock.Anything, int64(1)).
		Return(&model.Payment{ID: 1, Status: model.PaymentStatusCompleted}, nil)

	svc := newTestPaymentService(payments, new(mockBookingRepo), new(mockResolver), new(mockSink), nil)
	payment, err := svc.ConfirmPayment(context.Background(), 1, "")

	assert.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, payment.Status)
}

func TestConfirmPaymentTerminalState(t *testing.T) {
	payments := new(mockPaymentRepo)
	payments.On("GetByID", mock.Anything, int64(1)).
		Return(&model.Payment{ID: 1, Status: model.PaymentStatusRefunded}, nil)

	svc := newTestPaymentService(payments, new(mockBookingRepo), new(mockResolver), new(mockSink), nil)
	_, err := svc.ConfirmPayment(context.Background(), 1, "")

	assert.Equal(t, errors.ErrInvalidState, errors.CodeOf(err))
}

func TestConfirmPaymentWithoutGatewayTransactionCompletesLocally(t *testing.T) {
	payments := new(mockPaymentRepo)
	bookings := new(mockBookingRepo)
	resolver := new(mockResolver)
	sink := new(mockSink)

	payments.On("GetByID", mock.Anything, int64(1)).Return(&model.Payment{
		ID: 1, BookingID: 10, Gateway: "stripe",
		Status: model.PaymentStatusPending, AmountCents: 50000,
	}, nil)
	bookings.On("GetByID", mock.Anything, int64(10)).Return(testBooking(), nil)
	payments.On("UpdateWithBookingStatus", mock.Anything, mock.Anything,
		model.BookingPaymentPaid, int64(50000)).Return(nil)
	sink.On("PaymentConfirmed", mock.Anything, mock.Anything).Maybe()

	svc := newTestPaymentService(payments, bookings, resolver, sink, nil)
	payment, err := svc.ConfirmPayment(context.Background(), 1, "")

	assert.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, payment.Status)
	assert.NotNil(t, payment.ConfirmedAt)
	resolver.AssertNotCalled(t, "Resolve", mock.Anything)
	payments.AssertExpectations(t)
}

func TestConfirmPaymentAttachesProvidedTransaction(t *testing.T) {
	payments := new(mockPaymentRepo)
	bookings := new(mockBookingRepo)
	resolver := new(mockResolver)
	sink := new(mockSink)
	gw := &mockGateway{name: "stripe"}

	payments.On("GetByID", mock.Anything, int64(1)).Return(&model.Payment{
		ID: 1, BookingID: 10, Gateway: "stripe",
		Status: model.PaymentStatusProcessing, AmountCents: 50000,
	}, nil)
	resolver.On("Resolve", "stripe").Return(gw, nil)
	gw.On("ConfirmPayment", mock.Anything, "pi_late").
		Return(&gateway.ConfirmPaymentResponse{Status: gateway.TransactionStatusConfirmed}, nil)
	bookings.On("GetByID", mock.Anything, int64(10)).Return(testBooking(), nil)
	payments.On("UpdateWithBookingStatus", mock.Anything, mock.Anything,
		model.BookingPaymentPaid, int64(50000)).Return(nil)
	sink.On("PaymentConfirmed", mock.Anything, mock.Anything).Maybe()

	svc := newTestPaymentService(payments, bookings, resolver, sink, nil)
	payment, err := svc.ConfirmPayment(context.Background(), 1, "pi_late")

	assert.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, "pi_late", *payment.GatewayTransactionID)
}

func TestConfirmPaymentDegradesOnGatewayError(t *testing.T) {
	payments := new(mockPaymentRepo)
	bookings := new(mockBookingRepo)
	resolver := new(mockResolver)
	sink := new(mockSink)
	gw := &mockGateway{name: "stripe"}
	txnID := "pi_123"

	payments.On("GetByID", mock.Anything, int64(1)).Return(&model.Payment{
		ID: 1, BookingID: 10, Gateway: "stripe",
		Status: model.PaymentStatusProcessing, AmountCents: 50000,
		GatewayTransactionID: &txnID,
	}, nil)
	resolver.On("Resolve", "stripe").Return(gw, nil)
	gw.On("ConfirmPayment", mock.Anything, "pi_123").
		Return(nil, &gateway.ProviderError{Code: gateway.ErrCodeAPIError, Message: "timeout"})
	bookings.On("GetByID", mock.Anything, int64(10)).Return(testBooking(), nil)
	payments.On("UpdateWithBookingStatus", mock.Anything, mock.Anything,
		model.BookingPaymentPaid, int64(50000)).Return(nil)
	sink.On("PaymentConfirmed", mock.Anything, mock.Anything).Maybe()

	svc := newTestPaymentService(payments, bookings, resolver, sink, nil)
	payment, err := svc.ConfirmPayment(context.Background(), 1, "")

	assert.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, payment.Status)
}

func TestConfirmPaymentStrictModeSurfacesError(t *testing.T) {
	payments := new(mockPaymentRepo)
	resolver := new(mockResolver)
	gw := &mockGateway{name: "stripe"}
	txnID := "pi_123"

	payments.On("GetByID", mock.Anything, int64(1)).Return(&model.Payment{
		ID: 1, BookingID: 10, Gateway: "stripe",
		Status: model.PaymentStatusProcessing, GatewayTransactionID: &txnID,
	}, nil)
	resolver.On("Resolve", "stripe").Return(gw, nil)
	gw.On("ConfirmPayment", mock.Anything, "pi_123").
		Return(nil, &gateway.ProviderError{Code: gateway.ErrCodeAPIError, Message: "timeout"})

	svc := NewPaymentService(payments, new(mockBookingRepo), resolver, testBreakers(),
		new(mockSink), false, zap.NewNop())
	_, err := svc.ConfirmPayment(context.Background(), 1, "")

	assert.Equal(t, errors.ErrGateway, errors.CodeOf(err))
}

func TestRefundPaymentFull(t *testing.T) {
	payments := new(mockPaymentRepo)
	bookings := new(mockBookingRepo)
	resolver := new(mockResolver)
	sink := new(mockSink)
	gw := &mockGateway{name: "stripe"}
	txnID := "pi_123"

	payments.On("GetByID", mock.Anything, int64(1)).Return(&model.Payment{
		ID: 1, BookingID: 10, Gateway: "stripe",
		Status: model.PaymentStatusCompleted, AmountCents: 50000,
		GatewayTransactionID: &txnID,
	}, nil)
	resolver.On("Resolve", "stripe").Return(gw, nil)
	gw.On("RefundPayment", mock.Anything, "pi_123", mock.MatchedBy(func(r *gateway.RefundRequest) bool {
		return r.AmountCents == 50000
	})).Return(&gateway.RefundResponse{RefundID: "re_1", Status: gateway.TransactionStatusRefunded}, nil)

	booking := testBooking()
	booking.PaidAmountCents = 50000
	booking.PaymentStatus = model.BookingPaymentPaid
	bookings.On("GetByID", mock.Anything, int64(10)).Return(booking, nil)
	payments.On("UpdateWithBookingStatus", mock.Anything, mock.Anything,
		model.BookingPaymentRefunded, int64(0)).Return(nil)
	sink.On("PaymentRefunded", mock.Anything, mock.Anything).Maybe()

	svc := newTestPaymentService(payments, bookings, resolver, sink, nil)
	payment, err := svc.RefundPayment(context.Background(), 1, &RefundPaymentRequest{Reason: "customer request"})

	assert.NoError(t, err)
	assert.Equal(t, model.PaymentStatusRefunded, payment.Status)
	assert.Equal(t, int64(50000), payment.RefundedCents)
	assert.Equal(t, "customer request", *payment.RefundReason)
	assert.NotNil(t, payment.RefundedAt)
}

func TestRefundPaymentWithoutGatewayTransactionRefundsLocally(t *testing.T) {
	payments := new(mockPaymentRepo)
	bookings := new(mockBookingRepo)
	resolver := new(mockResolver)
	sink := new(mockSink)

	payments.On("GetByID", mock.Anything, int64(1)).Return(&model.Payment{
		ID: 1, BookingID: 10, Gateway: "stripe",
		Status: model.PaymentStatusCompleted, AmountCents: 50000,
	}, nil)
	booking := testBooking()
	booking.PaidAmountCents = 50000
	booking.PaymentStatus = model.BookingPaymentPaid
	bookings.On("GetByID", mock.Anything, int64(10)).Return(booking, nil)
	payments.On("UpdateWithBookingStatus", mock.Anything, mock.Anything,
		model.BookingPaymentRefunded, int64(0)).Return(nil)
	sink.On("PaymentRefunded", mock.Anything, mock.Anything).Maybe()

	svc := newTestPaymentService(payments, bookings, resolver, sink, nil)
	payment, err := svc.RefundPayment(context.Background(), 1, &RefundPaymentRequest{})

	assert.NoError(t, err)
	assert.Equal(t, model.PaymentStatusRefunded, payment.Status)
	assert.Equal(t, int64(50000), payment.RefundedCents)
	resolver.AssertNotCalled(t, "Resolve", mock.Anything)
	payments.AssertExpectations(t)
}

func TestRefundPaymentInvalidState(t *testing.T) {
	payments := new(mockPaymentRepo)
	payments.On("GetByID", mock.Anything, int64(1)).
		Return(&model.Payment{ID: 1, Status: model.PaymentStatusPending}, nil)

	svc := newTestPaymentService(payments, new(mockBookingRepo), new(mockResolver), new(mockSink), nil)
	_, err := svc.RefundPayment(context.Background(), 1, &RefundPaymentRequest{})

	assert.Equal(t, errors.ErrInvalidState, errors.CodeOf(err))
}

func TestRefundPaymentAmountExceedsOriginal(t *testing.T) {
	payments := new(mockPaymentRepo)
	payments.On("GetByID", mock.Anything, int64(1)).Return(&model.Payment{
		ID: 1, Status: model.PaymentStatusCompleted, AmountCents: 1000,
	}, nil)

	svc := newTestPaymentService(payments, new(mockBookingRepo), new(mockResolver), new(mockSink), nil)
	_, err := svc.RefundPayment(context.Background(), 1, &RefundPaymentRequest{AmountCents: 2000})

	assert.Equal(t, errors.ErrValidation, errors.CodeOf(err))
}

func TestRefundPaymentUnavailable(t *testing.T) {
	payments := new(mockPaymentRepo)
	resolver := new(mockResolver)
	gw := &mockGateway{name: "stripe"}
	txnID := "pi_123"

	payments.On("GetByID", mock.Anything, int64(1)).Return(&model.Payment{
		ID: 1, Gateway: "stripe", Status: model.PaymentStatusCompleted,
		AmountCents: 1000, GatewayTransactionID: &txnID,
	}, nil)
	resolver.On("Resolve", "stripe").Return(gw, nil)
	gw.On("RefundPayment", mock.Anything, "pi_123", mock.Anything).
		Return(nil, &gateway.ProviderError{Code: gateway.ErrCodeRefundUnavailable, Message: "already refunded"})

	svc := newTestPaymentService(payments, new(mockBookingRepo), resolver, new(mockSink), nil)
	_, err := svc.RefundPayment(context.Background(), 1, &RefundPaymentRequest{})

	assert.Equal(t, errors.ErrGatewayUnavailable, errors.CodeOf(err))
}

func TestFeeForMethods(t *testing.T) {
	assert.Equal(t, int64(250), feeFor("credit_card", 10000))
	assert.Equal(t, int64(25), feeFor("credit_card", 999))
	assert.Equal(t, int64(0), feeFor("pix", 10000))
	assert.Equal(t, int64(0), feeFor("boleto", 10000))
}
