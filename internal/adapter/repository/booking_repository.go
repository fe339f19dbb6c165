package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/voyagio/payment-service/internal/domain/errors"
	"github.com/voyagio/payment-service/internal/domain/model"
	"github.com/voyagio/payment-service/internal/domain/repository"
)

type bookingRepository struct {
	db *gorm.DB
}

// NewBookingRepository creates a read-only view over the bookings table.
func NewBookingRepository(db *gorm.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	var booking model.Booking
	err := r.db.WithContext(ctx).First(&booking, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("booking not found")
		}
		return nil, errors.Internal("failed to get booking", err)
	}
	return &booking, nil
}
