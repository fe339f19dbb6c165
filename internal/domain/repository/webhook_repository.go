package repository

import (
	"context"

	"github.com/voyagio/payment-service/internal/domain/model"
)

// WebhookRepository stores the durable webhook event log that backs
// idempotent processing and retries.
type WebhookRepository interface {
	Create(ctx context.Context, event *model.WebhookEvent) error
	GetByID(ctx context.Context, id int64) (*model.WebhookEvent, error)
	// GetByGatewayEvent returns nil, nil when the pair has never been seen.
	GetByGatewayEvent(ctx context.Context, gateway, eventID string) (*model.WebhookEvent, error)
	// MarkRetry re-enters a previously seen, unprocessed event at pending
	// with its retry count incremented.
	MarkRetry(ctx context.Context, id int64) error
	MarkProcessing(ctx context.Context, id int64) error
	MarkProcessed(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, cause error) error
	// GetPending returns events eligible for (re)processing: pending or
	// failed, past their backoff time, under the attempt cap.
	GetPending(ctx context.Context, maxAttempts, limit int) ([]*model.WebhookEvent, error)
	// ListDeadLetters returns failed events that exhausted their attempts.
	ListDeadLetters(ctx context.Context, maxAttempts, limit int) ([]*model.WebhookEvent, error)
}
