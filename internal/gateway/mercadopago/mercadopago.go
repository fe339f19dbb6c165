package mercadopago

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/voyagio/payment-service/internal/domain/gateway"
	"go.uber.org/zap"
)

const (
	gatewayName    = "mercado_pago"
	defaultBaseURL = "https://api.mercadopago.com"
)

// Gateway implements the payment gateway contract for Mercado Pago.
type Gateway struct {
	accessToken   string
	webhookSecret string
	baseURL       string
	client        *http.Client
	logger        *zap.Logger
}

// NewGateway creates a Mercado Pago gateway adapter.
func NewGateway(accessToken, webhookSecret, baseURL string, logger *zap.Logger) *Gateway {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Gateway{
		accessToken:   accessToken,
		webhookSecret: webhookSecret,
		baseURL:       baseURL,
		client:        &http.Client{Timeout: 15 * time.Second},
		logger:        logger,
	}
}

// Name returns the gateway identifier
func (g *Gateway) Name() string {
	return gatewayName
}

// CreatePayment tokenizes the card (when present) and creates a payment.
func (g *Gateway) CreatePayment(ctx context.Context, req *gateway.CreatePaymentRequest) (*gateway.CreatePaymentResponse, error) {
	body := map[string]interface{}{
		"transaction_amount": centsToUnits(req.AmountCents),
		"currency_id":        req.Currency,
		"description":        req.Description,
		"payment_method_id":  req.Method,
	}
	if req.PayerEmail != "" {
		body["payer"] = map[string]interface{}{"email": req.PayerEmail}
	}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}

	var cardBrand string
	if req.Card != nil {
		token, brand, err := g.tokenizeCard(ctx, req.Card)
		if err != nil {
			return nil, err
		}
		body["token"] = token
		cardBrand = brand
	}

	resp, err := g.doRequest(ctx, http.MethodPost, "/v1/payments", body)
	if err != nil {
		return nil, err
	}

	id, _ := resp["id"].(float64)
	status, _ := resp["status"].(string)
	transactionID := fmt.Sprintf("%.0f", id)

	if status == "rejected" || status == "cancelled" {
		detail, _ := resp["status_detail"].(string)
		return nil, &gateway.ProviderError{
			Code:    gateway.ErrCodeCardDeclined,
			Message: "payment rejected by mercado pago",
			Details: detail,
		}
	}

	g.logger.Info("mercado pago payment created",
		zap.String("payment_id", transactionID),
		zap.String("status", status))

	return &gateway.CreatePaymentResponse{
		TransactionID: transactionID,
		Status:        mapStatus(status),
		CardBrand:     cardBrand,
		Raw:           resp,
	}, nil
}

// ConfirmPayment fetches the payment and reports its state.
func (g *Gateway) ConfirmPayment(ctx context.Context, transactionID string) (*gateway.ConfirmPaymentResponse, error) {
	resp, err := g.doRequest(ctx, http.MethodGet, "/v1/payments/"+transactionID, nil)
	if err != nil {
		return nil, err
	}

	status, _ := resp["status"].(string)
	return &gateway.ConfirmPaymentResponse{
		Status: mapStatus(status),
		Raw:    resp,
	}, nil
}

// RefundPayment refunds a payment, fully or partially.
func (g *Gateway) RefundPayment(ctx context.Context, transactionID string, req *gateway.RefundRequest) (*gateway.RefundResponse, error) {
	var body map[string]interface{}
	if req.AmountCents > 0 {
		body = map[string]interface{}{"amount": centsToUnits(req.AmountCents)}
	}

	resp, err := g.doRequest(ctx, http.MethodPost, "/v1/payments/"+transactionID+"/refunds", body)
	if err != nil {
		var pe *gateway.ProviderError
		if ok := asProviderError(err, &pe); ok && (pe.Details == "404" || strings.Contains(pe.Message, "refund")) {
			return nil, &gateway.ProviderError{
				Code:    gateway.ErrCodeRefundUnavailable,
				Message: pe.Message,
				Details: pe.Details,
			}
		}
		return nil, err
	}

	refundID, _ := resp["id"].(float64)
	status, _ := resp["status"].(string)

	return &gateway.RefundResponse{
		RefundID: fmt.Sprintf("%.0f", refundID),
		Status:   mapStatus(status),
		Raw:      resp,
	}, nil
}

// VerifyWebhook checks the x-signature header, formatted "ts=...,v1=..."
// where v1 is the hex HMAC-SHA256 of the raw payload.
func (g *Gateway) VerifyWebhook(payload []byte, signature string) error {
	var provided string
	for _, part := range strings.Split(signature, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) == 2 && kv[0] == "v1" {
			provided = kv[1]
		}
	}
	if provided == "" {
		return fmt.Errorf("missing v1 component in signature header")
	}

	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// ParseWebhook normalizes a Mercado Pago notification. The event id lives
// under data.id and the classification under action plus data.status.
func (g *Gateway) ParseWebhook(payload []byte) (*gateway.WebhookEvent, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse mercado pago event: %w", err)
	}

	normalized := &gateway.WebhookEvent{
		Kind: gateway.EventKindUnknown,
		Raw:  raw,
	}

	if id, ok := raw["id"]; ok {
		normalized.EventID = stringify(id)
	}

	action, _ := raw["action"].(string)
	if action == "" {
		action, _ = raw["type"].(string)
	}
	normalized.EventType = action

	var status string
	if data, ok := raw["data"].(map[string]interface{}); ok {
		if normalized.EventID == "" {
			normalized.EventID = stringify(data["id"])
		}
		normalized.TransactionID = stringify(data["id"])
		status, _ = data["status"].(string)
	}
	if status == "" {
		status, _ = raw["status"].(string)
	}
	normalized.Status = status

	switch {
	case status == "approved":
		normalized.Kind = gateway.EventKindPaymentSucceeded
	case status == "rejected" || status == "cancelled":
		normalized.Kind = gateway.EventKindPaymentFailed
	case status == "refunded" || strings.Contains(action, "refund"):
		normalized.Kind = gateway.EventKindPaymentRefunded
	}

	return normalized, nil
}

func (g *Gateway) tokenizeCard(ctx context.Context, card *gateway.CardData) (string, string, error) {
	body := map[string]interface{}{
		"card_number":      card.Number,
		"expiration_month": card.ExpMonth,
		"expiration_year":  card.ExpYear,
		"security_code":    card.CVV,
		"cardholder":       map[string]interface{}{"name": card.HolderName},
	}

	resp, err := g.doRequest(ctx, http.MethodPost, "/v1/card_tokens", body)
	if err != nil {
		return "", "", err
	}

	token, _ := resp["id"].(string)
	brand, _ := resp["payment_method_id"].(string)
	return token, brand, nil
}

func (g *Gateway) doRequest(ctx context.Context, method, path string, body map[string]interface{}) (map[string]interface{}, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, &gateway.ProviderError{
				Code:    gateway.ErrCodeAPIError,
				Message: "failed to prepare request",
				Details: err.Error(),
			}
		}
		reader = bytes.NewBuffer(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, &gateway.ProviderError{
			Code:    gateway.ErrCodeAPIError,
			Message: "failed to create request",
			Details: err.Error(),
		}
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.accessToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		g.logger.Error("mercado pago request failed",
			zap.String("path", path),
			zap.Error(err))
		return nil, &gateway.ProviderError{
			Code:    gateway.ErrCodeAPIError,
			Message: "mercado pago api request failed",
			Details: err.Error(),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &gateway.ProviderError{
			Code:    gateway.ErrCodeAPIError,
			Message: "failed to read response",
			Details: err.Error(),
		}
	}

	var result map[string]interface{}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &result); err != nil {
			return nil, &gateway.ProviderError{
				Code:    gateway.ErrCodeAPIError,
				Message: "failed to parse response",
				Details: err.Error(),
			}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message, _ := result["message"].(string)
		if message == "" {
			message = "mercado pago api error"
		}
		g.logger.Error("mercado pago api error",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("message", message))
		return nil, &gateway.ProviderError{
			Code:    gateway.ErrCodeAPIError,
			Message: message,
			Details: fmt.Sprintf("%d", resp.StatusCode),
		}
	}

	return result, nil
}

func mapStatus(status string) gateway.TransactionStatus {
	switch status {
	case "approved":
		return gateway.TransactionStatusConfirmed
	case "refunded":
		return gateway.TransactionStatusRefunded
	case "rejected", "cancelled":
		return gateway.TransactionStatusFailed
	default:
		return gateway.TransactionStatusProcessing
	}
}

func centsToUnits(cents int64) float64 {
	f, _ := decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).Float64()
	return f
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func asProviderError(err error, target **gateway.ProviderError) bool {
	pe, ok := err.(*gateway.ProviderError)
	if ok {
		*target = pe
	}
	return ok
}
