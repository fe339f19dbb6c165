package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voyagio/payment-service/internal/domain/errors"
	"github.com/voyagio/payment-service/internal/domain/model"
	"github.com/voyagio/payment-service/internal/domain/repository"
)

type webhookRepository struct {
	db *gorm.DB
}

// NewWebhookRepository creates a GORM-backed webhook event repository.
func NewWebhookRepository(db *gorm.DB) repository.WebhookRepository {
	return &webhookRepository{db: db}
}

func (r *webhookRepository) Create(ctx context.Context, event *model.WebhookEvent) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "gateway"}, {Name: "event_id"}},
			DoNothing: true,
		}).
		Create(event).Error
	if err != nil {
		return errors.Internal("failed to create webhook event", err)
	}
	return nil
}

func (r *webhookRepository) GetByID(ctx context.Context, id int64) (*model.WebhookEvent, error) {
	var event model.WebhookEvent
	err := r.db.WithContext(ctx).First(&event, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("webhook event not found")
		}
		return nil, errors.Internal("failed to get webhook event", err)
	}
	return &event, nil
}

func (r *webhookRepository) GetByGatewayEvent(ctx context.Context, gateway, eventID string) (*model.WebhookEvent, error) {
	var event model.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("gateway = ? AND event_id = ?", gateway, eventID).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Internal("failed to get webhook event", err)
	}
	return &event, nil
}

func (r *webhookRepository) MarkRetry(ctx context.Context, id int64) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.WebhookStatusPending,
			"retry_count":   gorm.Expr("retry_count + 1"),
			"next_retry_at": now,
		}).Error
	if err != nil {
		return errors.Internal("failed to mark webhook event for retry", err)
	}
	return nil
}

func (r *webhookRepository) MarkProcessing(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("id = ?", id).
		Update("status", model.WebhookStatusProcessing).Error
	if err != nil {
		return errors.Internal("failed to mark webhook event processing", err)
	}
	return nil
}

func (r *webhookRepository) MarkProcessed(ctx context.Context, id int64) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       model.WebhookStatusProcessed,
			"processed_at": now,
			"last_error":   nil,
		}).Error
	if err != nil {
		return errors.Internal("failed to mark webhook event processed", err)
	}
	return nil
}

func (r *webhookRepository) MarkFailed(ctx context.Context, id int64, cause error) error {
	var event model.WebhookEvent
	if err := r.db.WithContext(ctx).First(&event, id).Error; err != nil {
		return errors.Internal("failed to load webhook event", err)
	}

	message := cause.Error()
	nextRetry := time.Now().Add(backoffDelay(event.RetryCount + 1))

	err := r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.WebhookStatusFailed,
			"retry_count":   gorm.Expr("retry_count + 1"),
			"last_error":    message,
			"next_retry_at": nextRetry,
		}).Error
	if err != nil {
		return errors.Internal("failed to mark webhook event failed", err)
	}
	return nil
}

func (r *webhookRepository) GetPending(ctx context.Context, maxAttempts, limit int) ([]*model.WebhookEvent, error) {
	var events []*model.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("status IN ?", []model.WebhookStatus{model.WebhookStatusPending, model.WebhookStatusFailed}).
		Where("retry_count < ?", maxAttempts).
		Where("next_retry_at IS NULL OR next_retry_at <= ?", time.Now()).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, errors.Internal("failed to list pending webhook events", err)
	}
	return events, nil
}

func (r *webhookRepository) ListDeadLetters(ctx context.Context, maxAttempts, limit int) ([]*model.WebhookEvent, error) {
	var events []*model.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("status = ?", model.WebhookStatusFailed).
		Where("retry_count >= ?", maxAttempts).
		Order("updated_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, errors.Internal("failed to list dead-letter webhook events", err)
	}
	return events, nil
}

// backoffDelay grows exponentially with the attempt count, capped at a day.
func backoffDelay(attempt int) time.Duration {
	minutes := 5 * (1 << uint(min(attempt, 8)))
	if minutes > 1440 {
		minutes = 1440
	}
	return time.Duration(minutes) * time.Minute
}
