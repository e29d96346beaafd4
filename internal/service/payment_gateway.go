package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RefundRequest is sent to the payment gateway before a refund is recorded locally.
type RefundRequest struct {
	PaymentID        string          `json:"payment_id"`
	GatewayReference string          `json:"gateway_reference"`
	Amount           decimal.Decimal `json:"amount"`
	Reason           string          `json:"reason"`
}

type RefundResult struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// PaymentGateway is the external processor. Refund is an at-least-once effect:
// callers invoke it before committing local state.
type PaymentGateway interface {
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

type httpPaymentGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPPaymentGateway(baseURL, apiKey string, timeout time.Duration) PaymentGateway {
	return &httpPaymentGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *httpPaymentGateway) Refund(ctx context.Context, request RefundRequest) (*RefundResult, error) {
	requestJSON, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to encode refund request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/refunds", bytes.NewBuffer(requestJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create refund request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Idempotency-Key", fmt.Sprintf("refund-%s-%s", request.PaymentID, request.Amount.String()))

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send refund request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("gateway refund returned status %d", resp.StatusCode)
	}

	result := new(RefundResult)
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return nil, fmt.Errorf("failed to decode refund response: %w", err)
	}

	return result, nil
}

type offlinePaymentGateway struct{}

// NewOfflinePaymentGateway accepts every refund without calling out. It is
// used when no gateway URL is configured, for local development.
func NewOfflinePaymentGateway() PaymentGateway {
	return offlinePaymentGateway{}
}

func (offlinePaymentGateway) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	return &RefundResult{
		Reference: "offline-" + req.PaymentID,
		Status:    "succeeded",
	}, nil
}
