package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/voyagio/payment-service/internal/domain/gateway"
	"go.uber.org/zap"
)

const gatewayName = "stripe"

// Gateway implements the payment gateway contract for Stripe.
type Gateway struct {
	api           *client.API
	webhookSecret string
	logger        *zap.Logger
}

// NewGateway creates a Stripe gateway adapter.
func NewGateway(secretKey, webhookSecret string, logger *zap.Logger) *Gateway {
	api := &client.API{}
	api.Init(secretKey, nil)

	return &Gateway{
		api:           api,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// Name returns the gateway identifier
func (g *Gateway) Name() string {
	return gatewayName
}

// CreatePayment creates a payment method from the raw card data (when
// present) and a confirmed payment intent.
func (g *Gateway) CreatePayment(ctx context.Context, req *gateway.CreatePaymentRequest) (*gateway.CreatePaymentResponse, error) {
	params := &stripeapi.PaymentIntentParams{
		Params:      stripeapi.Params{Context: ctx},
		Amount:      stripeapi.Int64(req.AmountCents),
		Currency:    stripeapi.String(strings.ToLower(req.Currency)),
		Description: stripeapi.String(req.Description),
		Confirm:     stripeapi.Bool(true),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripeapi.Bool(true),
			AllowRedirects: stripeapi.String("never"),
		},
	}
	if req.PayerEmail != "" {
		params.ReceiptEmail = stripeapi.String(req.PayerEmail)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, fmt.Sprint(v))
	}

	var cardBrand string
	if req.Card != nil {
		pm, err := g.api.PaymentMethods.New(&stripeapi.PaymentMethodParams{
			Params: stripeapi.Params{Context: ctx},
			Type:   stripeapi.String(string(stripeapi.PaymentMethodTypeCard)),
			Card: &stripeapi.PaymentMethodCardParams{
				Number:   stripeapi.String(req.Card.Number),
				ExpMonth: stripeapi.Int64(int64(req.Card.ExpMonth)),
				ExpYear:  stripeapi.Int64(int64(req.Card.ExpYear)),
				CVC:      stripeapi.String(req.Card.CVV),
			},
			BillingDetails: &stripeapi.PaymentMethodBillingDetailsParams{
				Name: stripeapi.String(req.Card.HolderName),
			},
		})
		if err != nil {
			return nil, g.providerError(err)
		}
		params.PaymentMethod = stripeapi.String(pm.ID)
		if pm.Card != nil {
			cardBrand = string(pm.Card.Brand)
		}
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, g.providerError(err)
	}

	g.logger.Info("stripe payment intent created",
		zap.String("payment_intent", pi.ID),
		zap.String("status", string(pi.Status)))

	return &gateway.CreatePaymentResponse{
		TransactionID: pi.ID,
		Status:        mapIntentStatus(pi.Status),
		CardBrand:     cardBrand,
		Raw:           rawMap(pi),
	}, nil
}

// ConfirmPayment fetches the payment intent and reports its state.
func (g *Gateway) ConfirmPayment(ctx context.Context, transactionID string) (*gateway.ConfirmPaymentResponse, error) {
	pi, err := g.api.PaymentIntents.Get(transactionID, &stripeapi.PaymentIntentParams{
		Params: stripeapi.Params{Context: ctx},
	})
	if err != nil {
		return nil, g.providerError(err)
	}

	return &gateway.ConfirmPaymentResponse{
		Status: mapIntentStatus(pi.Status),
		Raw:    rawMap(pi),
	}, nil
}

// RefundPayment refunds a payment intent, fully or partially.
func (g *Gateway) RefundPayment(ctx context.Context, transactionID string, req *gateway.RefundRequest) (*gateway.RefundResponse, error) {
	params := &stripeapi.RefundParams{
		Params:        stripeapi.Params{Context: ctx},
		PaymentIntent: stripeapi.String(transactionID),
		Reason:        stripeapi.String(string(stripeapi.RefundReasonRequestedByCustomer)),
	}
	if req.AmountCents > 0 {
		params.Amount = stripeapi.Int64(req.AmountCents)
	}

	refund, err := g.api.Refunds.New(params)
	if err != nil {
		return nil, g.refundError(err)
	}

	g.logger.Info("stripe refund created",
		zap.String("payment_intent", transactionID),
		zap.String("refund", refund.ID))

	return &gateway.RefundResponse{
		RefundID: refund.ID,
		Status:   gateway.TransactionStatusRefunded,
		Raw:      rawMap(refund),
	}, nil
}

// VerifyWebhook validates the Stripe-Signature header against the payload.
func (g *Gateway) VerifyWebhook(payload []byte, signature string) error {
	_, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	return err
}

// ParseWebhook normalizes a Stripe event. The transaction id lives under
// data.object.id for payment_intent events and data.object.payment_intent
// for charge events.
func (g *Gateway) ParseWebhook(payload []byte) (*gateway.WebhookEvent, error) {
	var event stripeapi.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to parse stripe event: %w", err)
	}

	normalized := &gateway.WebhookEvent{
		EventID:   event.ID,
		EventType: string(event.Type),
		Kind:      gateway.EventKindUnknown,
		Raw:       event.Data.Object,
	}

	switch event.Type {
	case stripeapi.EventTypePaymentIntentSucceeded:
		normalized.Kind = gateway.EventKindPaymentSucceeded
		normalized.TransactionID, _ = event.Data.Object["id"].(string)
	case stripeapi.EventTypePaymentIntentPaymentFailed:
		normalized.Kind = gateway.EventKindPaymentFailed
		normalized.TransactionID, _ = event.Data.Object["id"].(string)
	case stripeapi.EventTypeChargeRefunded:
		normalized.Kind = gateway.EventKindPaymentRefunded
		normalized.TransactionID, _ = event.Data.Object["payment_intent"].(string)
	}

	if status, ok := event.Data.Object["status"].(string); ok {
		normalized.Status = status
	}

	return normalized, nil
}

func mapIntentStatus(status stripeapi.PaymentIntentStatus) gateway.TransactionStatus {
	switch status {
	case stripeapi.PaymentIntentStatusSucceeded:
		return gateway.TransactionStatusConfirmed
	case stripeapi.PaymentIntentStatusCanceled:
		return gateway.TransactionStatusFailed
	default:
		return gateway.TransactionStatusProcessing
	}
}

func (g *Gateway) providerError(err error) error {
	var sErr *stripeapi.Error
	if !errors.As(err, &sErr) {
		return &gateway.ProviderError{
			Code:    gateway.ErrCodeAPIError,
			Message: "stripe request failed",
			Details: err.Error(),
		}
	}

	code := gateway.ErrCodeAPIError
	if sErr.Type == stripeapi.ErrorTypeCard {
		code = gateway.ErrCodeCardDeclined
	}

	g.logger.Error("stripe api error",
		zap.String("stripe_code", string(sErr.Code)),
		zap.String("message", sErr.Msg))

	return &gateway.ProviderError{
		Code:    code,
		Message: sErr.Msg,
		Details: string(sErr.Code),
	}
}

func (g *Gateway) refundError(err error) error {
	var sErr *stripeapi.Error
	if errors.As(err, &sErr) {
		switch sErr.Code {
		case stripeapi.ErrorCodeChargeAlreadyRefunded, stripeapi.ErrorCodeResourceMissing:
			return &gateway.ProviderError{
				Code:    gateway.ErrCodeRefundUnavailable,
				Message: sErr.Msg,
				Details: string(sErr.Code),
			}
		}
	}
	return g.providerError(err)
}

func rawMap(v interface{}) map[string]interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
