package services

import "context"

// PaymentOutcome is a terminal result delivered by the gateway
type PaymentOutcome string

const (
	OutcomeSuccess PaymentOutcome = "success"
	OutcomeFailure PaymentOutcome = "failure"
)

// SessionRequest asks the gateway to open a payment session for a checkout
type SessionRequest struct {
	TransactionID     int    `json:"transaction_id"`
	TransactionNumber string `json:"transaction_number"`
	Amount            int    `json:"amount"` // in cents
}

// PaymentSession is the gateway's handle for a payment in flight. The
// reference ties asynchronous outcome callbacks back to the transaction.
type PaymentSession struct {
	Reference  string `json:"reference"`
	PaymentURL string `json:"payment_url"`
}

// PaymentGateway is the engine's port to the external payment provider.
// Sessions are opened synchronously; outcomes arrive later through the
// payment reconciler, at least once.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req *SessionRequest) (*PaymentSession, error)
}

// WebhookVerifier is implemented by gateways that sign their outcome
// callbacks
type WebhookVerifier interface {
	VerifyWebhookSignature(body []byte, signature string) bool
}
