package model

import "time"

// BookingPaymentStatus mirrors the payment_status column of the bookings
// table, which this service keeps in sync with its payments.
type BookingPaymentStatus string

const (
	BookingPaymentPending  BookingPaymentStatus = "pending"
	BookingPaymentPartial  BookingPaymentStatus = "partial"
	BookingPaymentPaid     BookingPaymentStatus = "paid"
	BookingPaymentRefunded BookingPaymentStatus = "refunded"
)

// Booking is owned by the booking service; this service only reads it and
// updates its payment columns.
type Booking struct {
	ID               int64                `gorm:"primaryKey" json:"id"`
	BookingNumber    string               `gorm:"size:50" json:"booking_number"`
	CustomerEmail    string               `gorm:"size:255" json:"customer_email"`
	TotalAmountCents int64                `gorm:"column:total_amount_cents" json:"total_amount_cents"`
	PaidAmountCents  int64                `gorm:"column:paid_amount_cents" json:"paid_amount_cents"`
	PaymentStatus    BookingPaymentStatus `gorm:"size:20;default:'pending'" json:"payment_status"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Booking) TableName() string {
	return "bookings"
}
