package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/voyagio/payment-service/internal/domain/errors"
	"github.com/voyagio/payment-service/internal/domain/model"
	"github.com/voyagio/payment-service/internal/domain/repository"
)

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a GORM-backed payment repository.
func NewPaymentRepository(db *gorm.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return errors.Internal("failed to create payment", err)
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id int64) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).First(&payment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("payment not found")
		}
		return nil, errors.Internal("failed to get payment", err)
	}
	return &payment, nil
}

func (r *paymentRepository) GetByGatewayTransaction(ctx context.Context, gateway, transactionID string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).
		Where("gateway_provider = ? AND gateway_transaction_id = ?", gateway, transactionID).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("payment not found")
		}
		return nil, errors.Internal("failed to get payment by gateway transaction", err)
	}
	return &payment, nil
}

func (r *paymentRepository) GetByBooking(ctx context.Context, bookingID int64) ([]*model.Payment, error) {
	var payments []*model.Payment
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return nil, errors.Internal("failed to list booking payments", err)
	}
	return payments, nil
}

func (r *paymentRepository) Search(ctx context.Context, filters repository.PaymentSearchFilters) ([]*model.Payment, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Payment{})

	if filters.BookingID > 0 {
		query = query.Where("booking_id = ?", filters.BookingID)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Gateway != "" {
		query = query.Where("gateway_provider = ?", filters.Gateway)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Internal("failed to count payments", err)
	}

	page := filters.Page
	if page < 1 {
		page = 1
	}
	limit := filters.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var payments []*model.Payment
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, 0, errors.Internal("failed to search payments", err)
	}

	return payments, total, nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *model.Payment) error {
	return r.updateVersioned(r.db.WithContext(ctx), payment)
}

func (r *paymentRepository) UpdateWithBookingStatus(ctx context.Context, payment *model.Payment, status model.BookingPaymentStatus, paidAmountCents int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.updateVersioned(tx, payment); err != nil {
			return err
		}

		result := tx.Model(&model.Booking{}).
			Where("id = ?", payment.BookingID).
			Updates(map[string]interface{}{
				"payment_status":    status,
				"paid_amount_cents": paidAmountCents,
			})
		if result.Error != nil {
			return errors.Internal("failed to update booking payment status", result.Error)
		}
		if result.RowsAffected == 0 {
			return errors.NotFound("booking not found")
		}
		return nil
	})
}

// updateVersioned writes the payment guarded by its version column. A zero
// rows-affected result means another writer won the race.
func (r *paymentRepository) updateVersioned(tx *gorm.DB, payment *model.Payment) error {
	currentVersion := payment.Version
	payment.Version++

	result := tx.Model(&model.Payment{}).
		Where("id = ? AND version = ?", payment.ID, currentVersion).
		Select("*").
		Omit("id", "created_at").
		Updates(payment)
	if result.Error != nil {
		payment.Version = currentVersion
		return errors.Internal("failed to update payment", result.Error)
	}
	if result.RowsAffected == 0 {
		payment.Version = currentVersion
		return errors.Conflict("payment was modified concurrently")
	}
	return nil
}
