package gateway

import (
	"context"
	"time"
)

// Gateway defines the contract every payment provider adapter satisfies.
// Provider-specific field paths and auth schemes stay inside the adapter;
// nothing provider-shaped leaks to the orchestrator.
type Gateway interface {
	// Name returns the gateway identifier (e.g. "stripe").
	Name() string

	// CreatePayment creates and attempts to capture a payment.
	CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*CreatePaymentResponse, error)

	// ConfirmPayment fetches the provider-side state of a transaction.
	ConfirmPayment(ctx context.Context, transactionID string) (*ConfirmPaymentResponse, error)

	// RefundPayment refunds a captured transaction, fully or partially.
	RefundPayment(ctx context.Context, transactionID string, req *RefundRequest) (*RefundResponse, error)

	// VerifyWebhook checks the authenticity of an inbound notification.
	VerifyWebhook(payload []byte, signature string) error

	// ParseWebhook normalizes a verified notification payload.
	ParseWebhook(payload []byte) (*WebhookEvent, error)
}

// CardData carries raw card input. It is passed through to the provider and
// never persisted beyond the last four digits and brand.
type CardData struct {
	Number     string `json:"number"`
	ExpMonth   int    `json:"exp_month"`
	ExpYear    int    `json:"exp_year"`
	CVV        string `json:"cvv"`
	HolderName string `json:"holder_name"`
}

// CreatePaymentRequest is a provider-agnostic payment creation request.
type CreatePaymentRequest struct {
	AmountCents int64                  `json:"amount_cents"`
	Currency    string                 `json:"currency"`
	Method      string                 `json:"method"`
	Description string                 `json:"description"`
	PayerEmail  string                 `json:"payer_email,omitempty"`
	Card        *CardData              `json:"card,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// TransactionStatus is the provider-normalized outcome of a call.
type TransactionStatus string

const (
	TransactionStatusConfirmed  TransactionStatus = "confirmed"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusRefunded   TransactionStatus = "refunded"
	TransactionStatusFailed     TransactionStatus = "failed"
)

// CreatePaymentResponse is the normalized result of CreatePayment.
type CreatePaymentResponse struct {
	TransactionID string                 `json:"transaction_id"`
	Status        TransactionStatus      `json:"status"`
	CardBrand     string                 `json:"card_brand,omitempty"`
	FeeCents      int64                  `json:"fee_cents,omitempty"`
	Raw           map[string]interface{} `json:"raw,omitempty"`
}

// ConfirmPaymentResponse is the normalized result of ConfirmPayment.
type ConfirmPaymentResponse struct {
	Status TransactionStatus      `json:"status"`
	Raw    map[string]interface{} `json:"raw,omitempty"`
}

// RefundRequest asks for a full or partial refund.
type RefundRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason,omitempty"`
}

// RefundResponse is the normalized result of RefundPayment.
type RefundResponse struct {
	RefundID string                 `json:"refund_id"`
	Status   TransactionStatus      `json:"status"`
	Raw      map[string]interface{} `json:"raw,omitempty"`
}

// EventKind is the normalized classification of a webhook notification.
type EventKind string

const (
	EventKindPaymentSucceeded EventKind = "payment_succeeded"
	EventKindPaymentFailed    EventKind = "payment_failed"
	EventKindPaymentRefunded  EventKind = "payment_refunded"
	EventKindUnknown          EventKind = "unknown"
)

// WebhookEvent is a normalized inbound notification. EventID and
// TransactionID are extracted from the provider-specific field paths by the
// adapter, so downstream handlers never see raw provider shapes.
type WebhookEvent struct {
	EventID       string                 `json:"event_id"`
	EventType     string                 `json:"event_type"`
	Kind          EventKind              `json:"kind"`
	TransactionID string                 `json:"transaction_id,omitempty"`
	Status        string                 `json:"status,omitempty"`
	Raw           map[string]interface{} `json:"raw,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// ProviderError carries a provider failure with a stable code.
type ProviderError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Distinguished provider error codes.
const (
	ErrCodeCardDeclined      = "CARD_DECLINED"
	ErrCodeRefundUnavailable = "REFUND_UNAVAILABLE"
	ErrCodeAPIError          = "API_ERROR"
)

// IsRefundUnavailable reports whether err is the distinguished
// refund-unavailable provider failure.
func IsRefundUnavailable(err error) bool {
	pe, ok := err.(*ProviderError)
	return ok && pe.Code == ErrCodeRefundUnavailable
}
