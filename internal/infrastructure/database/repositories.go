package database

import (
	"gorm.io/gorm"

	adapterrepo "github.com/voyagio/payment-service/internal/adapter/repository"
	"github.com/voyagio/payment-service/internal/domain/repository"
)

// Repositories bundles the persistence adapters for wiring.
type Repositories struct {
	Payments repository.PaymentRepository
	Bookings repository.BookingRepository
	Webhooks repository.WebhookRepository
}

// NewRepositories creates all repositories over one connection.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Payments: adapterrepo.NewPaymentRepository(db),
		Bookings: adapterrepo.NewBookingRepository(db),
		Webhooks: adapterrepo.NewWebhookRepository(db),
	}
}
