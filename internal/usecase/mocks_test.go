package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/voyagio/payment-service/internal/domain/gateway"
	"github.com/voyagio/payment-service/internal/domain/model"
	"github.com/voyagio/payment-service/internal/domain/repository"
)

type mockPaymentRepo struct {
	mock.Mock
}

func (m *mockPaymentRepo) Create(ctx context.Context, payment *model.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *mockPaymentRepo) GetByID(ctx context.Context, id int64) (*model.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *mockPaymentRepo) GetByGatewayTransaction(ctx context.Context, gw, transactionID string) (*model.Payment, error) {
	args := m.Called(ctx, gw, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *mockPaymentRepo) GetByBooking(ctx context.Context, bookingID int64) ([]*model.Payment, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Payment), args.Error(1)
}

func (m *mockPaymentRepo) Search(ctx context.Context, filters repository.PaymentSearchFilters) ([]*model.Payment, int64, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*model.Payment), args.Get(1).(int64), args.Error(2)
}

func (m *mockPaymentRepo) Update(ctx context.Context, payment *model.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *mockPaymentRepo) UpdateWithBookingStatus(ctx context.Context, payment *model.Payment, status model.BookingPaymentStatus, paidAmountCents int64) error {
	args := m.Called(ctx, payment, status, paidAmountCents)
	return args.Error(0)
}

type mockBookingRepo struct {
	mock.Mock
}

func (m *mockBookingRepo) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

type mockWebhookRepo struct {
	mock.Mock
}

func (m *mockWebhookRepo) Create(ctx context.Context, event *model.WebhookEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockWebhookRepo) GetByID(ctx context.Context, id int64) (*model.WebhookEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WebhookEvent), args.Error(1)
}

func (m *mockWebhookRepo) GetByGatewayEvent(ctx context.Context, gw, eventID string) (*model.WebhookEvent, error) {
	args := m.Called(ctx, gw, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WebhookEvent), args.Error(1)
}

func (m *mockWebhookRepo) MarkRetry(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockWebhookRepo) MarkProcessing(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockWebhookRepo) MarkProcessed(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockWebhookRepo) MarkFailed(ctx context.Context, id int64, cause error) error {
	args := m.Called(ctx, id, cause)
	return args.Error(0)
}

func (m *mockWebhookRepo) GetPending(ctx context.Context, maxAttempts, limit int) ([]*model.WebhookEvent, error) {
	args := m.Called(ctx, maxAttempts, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.WebhookEvent), args.Error(1)
}

func (m *mockWebhookRepo) ListDeadLetters(ctx context.Context, maxAttempts, limit int) ([]*model.WebhookEvent, error) {
	args := m.Called(ctx, maxAttempts, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.WebhookEvent), args.Error(1)
}

type mockGateway struct {
	mock.Mock
	name string
}

func (m *mockGateway) Name() string {
	return m.name
}

func (m *mockGateway) CreatePayment(ctx context.Context, req *gateway.CreatePaymentRequest) (*gateway.CreatePaymentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.CreatePaymentResponse), args.Error(1)
}

func (m *mockGateway) ConfirmPayment(ctx context.Context, transactionID string) (*gateway.ConfirmPaymentResponse, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.ConfirmPaymentResponse), args.Error(1)
}

func (m *mockGateway) RefundPayment(ctx context.Context, transactionID string, req *gateway.RefundRequest) (*gateway.RefundResponse, error) {
	args := m.Called(ctx, transactionID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.RefundResponse), args.Error(1)
}

func (m *mockGateway) VerifyWebhook(payload []byte, signature string) error {
	args := m.Called(payload, signature)
	return args.Error(0)
}

func (m *mockGateway) ParseWebhook(payload []byte) (*gateway.WebhookEvent, error) {
	args := m.Called(payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.WebhookEvent), args.Error(1)
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(name string) (gateway.Gateway, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(gateway.Gateway), args.Error(1)
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) PaymentConfirmed(ctx context.Context, payment *model.Payment) {
	m.Called(ctx, payment)
}

func (m *mockSink) PaymentFailed(ctx context.Context, payment *model.Payment) {
	m.Called(ctx, payment)
}

func (m *mockSink) PaymentRefunded(ctx context.Context, payment *model.Payment) {
	m.Called(ctx, payment)
}
