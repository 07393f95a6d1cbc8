package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tickethub/internal/models"
)

// PaystackConfig represents Paystack payment gateway configuration
type PaystackConfig struct {
	SecretKey   string
	CallbackURL string
	Currency    string
}

// PaystackGateway opens payment sessions via the Paystack API and verifies
// its signed webhooks.
type PaystackGateway struct {
	config  PaystackConfig
	client  *http.Client
	baseURL string
}

// NewPaystackGateway creates a new Paystack gateway client
func NewPaystackGateway(config PaystackConfig) *PaystackGateway {
	if config.Currency == "" {
		config.Currency = "KES"
	}

	return &PaystackGateway{
		config:  config,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://api.paystack.co",
	}
}

// initializeRequest is the payload for transaction initialization
type initializeRequest struct {
	Amount      int               `json:"amount"` // minor currency units
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url"`
	Metadata    map[string]string `json:"metadata"`
}

// initializeResponse is the response from transaction initialization
type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// CreateSession initializes a payment session for a checkout. The
// transaction number doubles as the gateway reference so that outcome
// callbacks map back without extra state.
func (g *PaystackGateway) CreateSession(ctx context.Context, req *SessionRequest) (*PaymentSession, error) {
	payload := initializeRequest{
		Amount:      req.Amount,
		Currency:    g.config.Currency,
		Reference:   req.TransactionNumber,
		CallbackURL: g.config.CallbackURL,
		Metadata: map[string]string{
			"transaction_id": fmt.Sprintf("%d", req.TransactionID),
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/transaction/initialize", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create session request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+g.config.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", models.ErrGatewayUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: gateway returned status %d: %s", models.ErrGatewayUnavailable, resp.StatusCode, string(body))
	}

	var initResp initializeResponse
	if err := json.Unmarshal(body, &initResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", models.ErrGatewayUnavailable, err)
	}

	if !initResp.Status {
		return nil, fmt.Errorf("%w: %s", models.ErrGatewayUnavailable, initResp.Message)
	}

	return &PaymentSession{
		Reference:  initResp.Data.Reference,
		PaymentURL: initResp.Data.AuthorizationURL,
	}, nil
}

// VerifyWebhookSignature checks the HMAC-SHA512 signature Paystack puts in
// the x-paystack-signature header against the raw request body.
func (g *PaystackGateway) VerifyWebhookSignature(body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(g.config.SecretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// WebhookEvent is the subset of a gateway webhook payload the reconciler
// needs
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"data"`
}

// ParseWebhookEvent decodes a webhook body and maps the gateway's charge
// status onto a payment outcome.
func ParseWebhookEvent(body []byte) (reference string, outcome PaymentOutcome, err error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return "", "", fmt.Errorf("failed to decode webhook payload: %w", err)
	}

	if event.Data.Reference == "" {
		return "", "", fmt.Errorf("webhook payload missing reference")
	}

	if event.Event == "charge.success" || event.Data.Status == "success" {
		return event.Data.Reference, OutcomeSuccess, nil
	}

	return event.Data.Reference, OutcomeFailure, nil
}
