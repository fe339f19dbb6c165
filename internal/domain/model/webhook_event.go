package model

import (
	"database/sql/driver"
	"time"
)

// WebhookStatus represents the processing status of a webhook event.
type WebhookStatus string

const (
	WebhookStatusPending    WebhookStatus = "pending"
	WebhookStatusProcessing WebhookStatus = "processing"
	WebhookStatusProcessed  WebhookStatus = "processed"
	WebhookStatusFailed     WebhookStatus = "failed"
)

// Scan implements sql.Scanner interface
func (w *WebhookStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*w = WebhookStatus(v)
	case []byte:
		*w = WebhookStatus(v)
	default:
		*w = WebhookStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (w WebhookStatus) Value() (driver.Value, error) {
	return string(w), nil
}

// WebhookEvent is the durable idempotency record for one inbound gateway
// notification. The (gateway, event_id) pair is unique; a redelivery of a
// processed event must never re-trigger business processing.
type WebhookEvent struct {
	ID          int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Gateway     string        `gorm:"not null;size:50;uniqueIndex:idx_webhook_gateway_event" json:"gateway"`
	EventID     string        `gorm:"not null;size:255;uniqueIndex:idx_webhook_gateway_event" json:"event_id"`
	EventType   string        `gorm:"not null;size:100;index" json:"event_type"`
	Payload     JSONB         `gorm:"type:jsonb;not null" json:"payload"`
	Status      WebhookStatus `gorm:"size:20;default:'pending';index" json:"status"`
	RetryCount  int           `gorm:"default:0" json:"retry_count"`
	LastError   *string       `json:"last_error,omitempty"`
	NextRetryAt *time.Time    `json:"next_retry_at,omitempty"`
	ProcessedAt *time.Time    `json:"processed_at,omitempty"`
	CreatedAt   time.Time     `gorm:"default:now()" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (WebhookEvent) TableName() string {
	return "webhook_events"
}
