package model

import (
	"time"
)

// PaymentStatus represents the lifecycle status of a payment attempt.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusConfirmed  PaymentStatus = "confirmed"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// paymentTransitions encodes the allowed status transitions. Refunded and
// failed payments accept no further transition.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusConfirmed, PaymentStatusFailed},
	PaymentStatusProcessing: {PaymentStatusConfirmed, PaymentStatusFailed},
	PaymentStatusConfirmed:  {PaymentStatusCompleted, PaymentStatusRefunded},
	PaymentStatusCompleted:  {PaymentStatusRefunded},
}

// CanTransitionTo reports whether moving to next is a legal transition.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status accepts no further mutation.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusFailed || s == PaymentStatusRefunded
}

// Payment represents a single payment or refund attempt against a booking.
// Only the last four card digits and the brand are ever stored.
type Payment struct {
	ID                   int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	BookingID            int64         `gorm:"not null;index" json:"booking_id"`
	UserID               *int64        `gorm:"index" json:"user_id,omitempty"`
	TransactionID        string        `gorm:"unique;not null;size:100" json:"transaction_id"`
	Gateway              string        `gorm:"column:gateway_provider;not null;size:50;index" json:"gateway"`
	GatewayTransactionID *string       `gorm:"size:100;index:idx_payments_gateway_txn" json:"gateway_transaction_id,omitempty"`
	Method               string        `gorm:"not null;size:50" json:"method"`
	Status               PaymentStatus `gorm:"not null;size:50;index" json:"status"`
	AmountCents          int64         `gorm:"column:amount_cents;not null" json:"amount_cents"`
	Currency             string        `gorm:"size:3;default:'BRL'" json:"currency"`
	FeeCents             int64         `gorm:"column:fee_cents;default:0" json:"fee_cents"`
	NetCents             int64         `gorm:"column:net_cents;default:0" json:"net_cents"`
	CardLastFour         *string       `gorm:"size:4" json:"card_last_four,omitempty"`
	CardBrand            *string       `gorm:"size:50" json:"card_brand,omitempty"`
	Splits               SplitList     `gorm:"type:jsonb" json:"splits,omitempty"`
	Metadata             JSONB         `gorm:"type:jsonb" json:"metadata,omitempty"`
	GatewayResponse      JSONB         `gorm:"type:jsonb" json:"gateway_response,omitempty"`
	RefundReason         *string       `gorm:"size:255" json:"refund_reason,omitempty"`
	RefundedCents        int64         `gorm:"column:refunded_cents;default:0" json:"refunded_cents"`
	Version              int64         `gorm:"not null;default:0" json:"-"`
	ProcessedAt          *time.Time    `json:"processed_at,omitempty"`
	ConfirmedAt          *time.Time    `json:"confirmed_at,omitempty"`
	RefundedAt           *time.Time    `json:"refunded_at,omitempty"`
	CreatedAt            time.Time     `gorm:"default:now()" json:"created_at"`
	UpdatedAt            time.Time     `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// IsCardMethod reports whether the payment method requires card data.
func IsCardMethod(method string) bool {
	return method == "credit_card" || method == "debit_card"
}
