package services

import (
	"context"
	"fmt"
	"log"
	"time"
)

// MockGateway simulates the payment provider for development and tests.
// Every session opens successfully with a deterministic-looking reference;
// the outcome callback is left to the caller (or curl).
type MockGateway struct {
	baseURL string
}

// NewMockGateway creates a new mock gateway
func NewMockGateway(baseURL string) *MockGateway {
	return &MockGateway{baseURL: baseURL}
}

// CreateSession simulates opening a payment session
func (g *MockGateway) CreateSession(ctx context.Context, req *SessionRequest) (*PaymentSession, error) {
	reference := fmt.Sprintf("mock_pay_%d_%d", req.TransactionID, time.Now().Unix())

	log.Printf("Mock gateway: session for transaction %s, amount %.2f",
		req.TransactionNumber, float64(req.Amount)/100)

	return &PaymentSession{
		Reference:  reference,
		PaymentURL: fmt.Sprintf("%s/mock-pay/%s", g.baseURL, reference),
	}, nil
}

// NewGatewayFromConfig selects the real gateway when credentials are
// configured and falls back to the mock otherwise.
func NewGatewayFromConfig(paystack PaystackConfig, mockBaseURL string) PaymentGateway {
	if paystack.SecretKey != "" {
		log.Printf("Payment gateway: using Paystack API")
		return NewPaystackGateway(paystack)
	}

	log.Println("Payment gateway: using mock (no gateway credentials provided)")
	return NewMockGateway(mockBaseURL)
}
