package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/voyagio/payment-service/internal/domain/errors"
	"github.com/voyagio/payment-service/internal/domain/gateway"
	"github.com/voyagio/payment-service/internal/domain/model"
	"github.com/voyagio/payment-service/internal/domain/repository"
	"github.com/voyagio/payment-service/internal/notify"
)

// Enqueuer hands accepted webhook events to the asynchronous dispatcher.
type Enqueuer interface {
	Enqueue(eventID int64) bool
}

// IngestResult reports the outcome of accepting a webhook delivery.
type IngestResult struct {
	EventID        int64  `json:"-"`
	GatewayEventID string `json:"event_id"`
	Duplicate      bool   `json:"duplicate"`
}

// WebhookService ingests gateway notifications idempotently and applies their
// effects to payments asynchronously.
type WebhookService struct {
	events   repository.WebhookRepository
	payments repository.PaymentRepository
	bookings repository.BookingRepository
	gateways GatewayResolver
	sink     notify.Sink
	queue    Enqueuer
	logger   *zap.Logger

	maxAttempts int
}

// NewWebhookService creates the webhook ingestion and processing service.
// The queue is attached separately because the dispatcher needs this service
// to process what it dequeues.
func NewWebhookService(
	events repository.WebhookRepository,
	payments repository.PaymentRepository,
	bookings repository.BookingRepository,
	gateways GatewayResolver,
	sink notify.Sink,
	maxAttempts int,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		events:      events,
		payments:    payments,
		bookings:    bookings,
		gateways:    gateways,
		sink:        sink,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// AttachQueue wires the dispatcher queue for asynchronous processing.
func (s *WebhookService) AttachQueue(queue Enqueuer) {
	s.queue = queue
}

// Ingest verifies, deduplicates and durably records one webhook delivery,
// then hands it to the dispatcher. It never performs business processing
// itself, so callers can acknowledge the delivery immediately.
func (s *WebhookService) Ingest(ctx context.Context, gatewayName string, payload []byte, signature string) (*IngestResult, error) {
	gw, err := s.gateways.Resolve(gatewayName)
	if err != nil {
		return nil, err
	}

	if err := gw.VerifyWebhook(payload, signature); err != nil {
		s.logger.Warn("webhook signature verification failed",
			zap.String("gateway", gatewayName),
			zap.Error(err))
		return nil, errors.Signature("invalid webhook signature", err)
	}

	parsed, err := gw.ParseWebhook(payload)
	if err != nil {
		return nil, errors.Validation("malformed webhook payload")
	}
	if parsed.EventID == "" {
		return nil, errors.Validation("webhook payload has no event id")
	}

	existing, err := s.events.GetByGatewayEvent(ctx, gatewayName, parsed.EventID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if existing.Status == model.WebhookStatusProcessed {
			s.logger.Info("duplicate webhook delivery ignored",
				zap.String("gateway", gatewayName),
				zap.String("event_id", parsed.EventID))
			return &IngestResult{EventID: existing.ID, GatewayEventID: parsed.EventID, Duplicate: true}, nil
		}

		// Redelivery of an event that never finished: re-enter it at
		// pending with its retry count bumped.
		if err := s.events.MarkRetry(ctx, existing.ID); err != nil {
			return nil, err
		}
		s.enqueue(existing.ID)
		return &IngestResult{EventID: existing.ID, GatewayEventID: parsed.EventID}, nil
	}

	var raw model.JSONB
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, errors.Validation("malformed webhook payload")
	}

	event := &model.WebhookEvent{
		Gateway:   gatewayName,
		EventID:   parsed.EventID,
		EventType: parsed.EventType,
		Payload:   raw,
		Status:    model.WebhookStatusPending,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	// A zero id means a concurrent delivery won the insert race.
	if event.ID == 0 {
		winner, err := s.events.GetByGatewayEvent(ctx, gatewayName, parsed.EventID)
		if err != nil {
			return nil, err
		}
		if winner == nil {
			return nil, errors.Internal("webhook event vanished after insert conflict", nil)
		}
		return &IngestResult{EventID: winner.ID, GatewayEventID: parsed.EventID, Duplicate: true}, nil
	}

	s.enqueue(event.ID)
	return &IngestResult{EventID: event.ID, GatewayEventID: parsed.EventID}, nil
}

// ProcessEvent applies one stored webhook event to its payment. It is called
// by the dispatcher workers, never from the request path.
func (s *WebhookService) ProcessEvent(ctx context.Context, eventID int64) error {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if event.Status == model.WebhookStatusProcessed {
		return nil
	}

	if err := s.events.MarkProcessing(ctx, event.ID); err != nil {
		return err
	}

	if err := s.applyEvent(ctx, event); err != nil {
		s.logger.Error("webhook event processing failed",
			zap.Int64("webhook_event_id", event.ID),
			zap.String("gateway", event.Gateway),
			zap.String("event_id", event.EventID),
			zap.Int("retry_count", event.RetryCount),
			zap.Error(err))
		if markErr := s.events.MarkFailed(ctx, event.ID, err); markErr != nil {
			s.logger.Error("failed to record webhook failure", zap.Error(markErr))
		}
		return err
	}

	return s.events.MarkProcessed(ctx, event.ID)
}

// DeadLetters lists failed events that exhausted their retry budget.
func (s *WebhookService) DeadLetters(ctx context.Context, limit int) ([]*model.WebhookEvent, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return s.events.ListDeadLetters(ctx, s.maxAttempts, limit)
}

func (s *WebhookService) applyEvent(ctx context.Context, event *model.WebhookEvent) error {
	gw, err := s.gateways.Resolve(event.Gateway)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return errors.Internal("failed to re-encode webhook payload", err)
	}
	parsed, err := gw.ParseWebhook(payload)
	if err != nil {
		return errors.Internal("failed to parse stored webhook payload", err)
	}

	if parsed.Kind == gateway.EventKindUnknown {
		s.logger.Info("ignoring webhook event of unhandled type",
			zap.String("gateway", event.Gateway),
			zap.String("event_type", event.EventType))
		return nil
	}
	if parsed.TransactionID == "" {
		s.logger.Warn("webhook event has no transaction reference",
			zap.String("gateway", event.Gateway),
			zap.String("event_id", event.EventID))
		return nil
	}

	payment, err := s.payments.GetByGatewayTransaction(ctx, event.Gateway, parsed.TransactionID)
	if err != nil {
		if errors.CodeOf(err) == errors.ErrNotFound {
			s.logger.Warn("webhook references unknown payment",
				zap.String("gateway", event.Gateway),
				zap.String("transaction_id", parsed.TransactionID))
			return nil
		}
		return err
	}

	switch parsed.Kind {
	case gateway.EventKindPaymentSucceeded:
		return s.applyTransition(ctx, payment, successTarget(payment.Status), parsed)
	case gateway.EventKindPaymentFailed:
		return s.applyTransition(ctx, payment, model.PaymentStatusFailed, parsed)
	case gateway.EventKindPaymentRefunded:
		return s.applyTransition(ctx, payment, model.PaymentStatusRefunded, parsed)
	}
	return nil
}

// successTarget picks where a succeeded event lands. Payments already
// confirmed settle to completed; earlier ones advance to confirmed.
func successTarget(current model.PaymentStatus) model.PaymentStatus {
	if current.CanTransitionTo(model.PaymentStatusCompleted) {
		return model.PaymentStatusCompleted
	}
	return model.PaymentStatusConfirmed
}

// applyTransition moves the payment to its new status when the transition is
// legal. Out-of-order or stale events are logged and dropped without error so
// they are not retried.
func (s *WebhookService) applyTransition(ctx context.Context, payment *model.Payment, next model.PaymentStatus, parsed *gateway.WebhookEvent) error {
	if payment.Status == next {
		return nil
	}
	if !payment.Status.CanTransitionTo(next) {
		s.logger.Warn("dropping out-of-order webhook transition",
			zap.Int64("payment_id", payment.ID),
			zap.String("current_status", string(payment.Status)),
			zap.String("event_status", string(next)))
		return nil
	}

	booking, err := s.bookings.GetByID(ctx, payment.BookingID)
	if err != nil {
		return err
	}

	now := time.Now()
	payment.Status = next
	if parsed.Raw != nil {
		payment.GatewayResponse = parsed.Raw
	}

	switch next {
	case model.PaymentStatusConfirmed, model.PaymentStatusCompleted:
		payment.ConfirmedAt = &now
		status, paid := bookingStatusAfterPayment(booking, payment.AmountCents)
		if err := s.payments.UpdateWithBookingStatus(ctx, payment, status, paid); err != nil {
			return err
		}
		s.sink.PaymentConfirmed(ctx, payment)

	case model.PaymentStatusFailed:
		if err := s.payments.Update(ctx, payment); err != nil {
			return err
		}
		s.sink.PaymentFailed(ctx, payment)

	case model.PaymentStatusRefunded:
		payment.RefundedAt = &now
		if payment.RefundedCents == 0 {
			payment.RefundedCents = payment.AmountCents
		}
		paid := booking.PaidAmountCents - payment.RefundedCents
		if paid < 0 {
			paid = 0
		}
		status := model.BookingPaymentRefunded
		if paid > 0 {
			status = model.BookingPaymentPartial
		}
		if err := s.payments.UpdateWithBookingStatus(ctx, payment, status, paid); err != nil {
			return err
		}
		s.sink.PaymentRefunded(ctx, payment)
	}

	s.logger.Info("webhook applied to payment",
		zap.Int64("payment_id", payment.ID),
		zap.String("new_status", string(next)),
		zap.String("event_type", parsed.EventType))
	return nil
}

func (s *WebhookService) enqueue(eventID int64) {
	if s.queue == nil {
		return
	}
	if !s.queue.Enqueue(eventID) {
		s.logger.Warn(fmt.Sprintf("webhook queue full, event %d left for poller", eventID))
	}
}
