package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/voyagio/payment-service/internal/domain/model"
)

// Sink receives payment lifecycle notifications. Failures inside a sink must
// never affect the payment flow that triggered them.
type Sink interface {
	PaymentConfirmed(ctx context.Context, payment *model.Payment)
	PaymentFailed(ctx context.Context, payment *model.Payment)
	PaymentRefunded(ctx context.Context, payment *model.Payment)
}

// LogSink writes notifications to the structured log. It stands in for the
// messaging integration handled outside this service.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a logging notification sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) PaymentConfirmed(ctx context.Context, payment *model.Payment) {
	s.logger.Info("payment confirmed notification",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("booking_id", payment.BookingID),
		zap.Int64("amount_cents", payment.AmountCents))
}

func (s *LogSink) PaymentFailed(ctx context.Context, payment *model.Payment) {
	s.logger.Info("payment failed notification",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("booking_id", payment.BookingID))
}

func (s *LogSink) PaymentRefunded(ctx context.Context, payment *model.Payment) {
	s.logger.Info("payment refunded notification",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("booking_id", payment.BookingID),
		zap.Int64("refunded_cents", payment.RefundedCents))
}
