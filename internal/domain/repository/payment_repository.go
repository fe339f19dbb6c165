package repository

import (
	"context"

	"github.com/voyagio/payment-service/internal/domain/model"
)

// PaymentSearchFilters narrows a payment search. Zero values mean "no filter".
type PaymentSearchFilters struct {
	BookingID int64
	Status    model.PaymentStatus
	Gateway   string
	Page      int
	Limit     int
}

// PaymentRepository persists payments. Update and UpdateWithBookingStatus use
// optimistic concurrency on the payment's version column and fail with a
// conflict error when the row changed underneath the caller.
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	GetByID(ctx context.Context, id int64) (*model.Payment, error)
	GetByGatewayTransaction(ctx context.Context, gateway, transactionID string) (*model.Payment, error)
	GetByBooking(ctx context.Context, bookingID int64) ([]*model.Payment, error)
	Search(ctx context.Context, filters PaymentSearchFilters) ([]*model.Payment, int64, error)
	Update(ctx context.Context, payment *model.Payment) error
	// UpdateWithBookingStatus commits the payment mutation and the booking
	// payment_status change in a single database transaction.
	UpdateWithBookingStatus(ctx context.Context, payment *model.Payment, status model.BookingPaymentStatus, paidAmountCents int64) error
}

// BookingRepository reads the externally owned bookings table.
type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
}
