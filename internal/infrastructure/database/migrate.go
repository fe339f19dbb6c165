package database

import (
	"gorm.io/gorm"

	"github.com/voyagio/payment-service/internal/domain/model"
)

// Migrate creates or updates the tables this service owns. The bookings
// table belongs to the booking service and is never migrated here.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Payment{},
		&model.WebhookEvent{},
	); err != nil {
		return err
	}

	// Partial index keeps the dispatcher sweep cheap once the event log grows.
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_webhook_events_retryable
		ON webhook_events (next_retry_at)
		WHERE status IN ('pending', 'failed')`).Error
}
