package handlers

import (
	"context"
	"io"
	"log"
	"net/http"

	"tickethub/internal/models"
	"tickethub/internal/services"
)

// PaymentResultApplier applies verified gateway outcomes
type PaymentResultApplier interface {
	OnPaymentResult(ctx context.Context, reference string, outcome services.PaymentOutcome) error
}

// TransactionReader looks up transactions for the redirect callback
type TransactionReader interface {
	GetByPaymentReference(ctx context.Context, reference string) (*models.Transaction, error)
}

// PaymentHandler handles gateway webhooks and buyer redirect callbacks
type PaymentHandler struct {
	reconciler PaymentResultApplier
	txns       TransactionReader
	gateway    services.PaymentGateway
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(reconciler PaymentResultApplier, txns TransactionReader, gateway services.PaymentGateway) *PaymentHandler {
	return &PaymentHandler{
		reconciler: reconciler,
		txns:       txns,
		gateway:    gateway,
	}
}

// Webhook receives the gateway's server-to-server outcome notification.
// Only the webhook is authoritative; the buyer-facing callback never
// settles a transaction.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	if verifier, ok := h.gateway.(services.WebhookVerifier); ok {
		signature := r.Header.Get("X-Paystack-Signature")
		if !verifier.VerifyWebhookSignature(body, signature) {
			log.Printf("webhook: rejected payload with bad signature")
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}
	}

	reference, outcome, err := services.ParseWebhookEvent(body)
	if err != nil {
		log.Printf("webhook: failed to parse event: %v", err)
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	if err := h.reconciler.OnPaymentResult(r.Context(), reference, outcome); err != nil {
		log.Printf("webhook: failed to apply outcome for reference %s: %v", reference, err)
		// 500 makes the gateway redeliver; the reconciler absorbs duplicates.
		http.Error(w, "Failed to process event", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Callback handles the buyer returning from the payment page. It reports
// the transaction's current state and redirects accordingly, but the
// settlement itself always comes through the webhook.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("reference")
	if reference == "" {
		http.Error(w, "Missing payment reference", http.StatusBadRequest)
		return
	}

	txn, err := h.txns.GetByPaymentReference(r.Context(), reference)
	if err != nil {
		respondError(w, err)
		return
	}

	switch txn.Status {
	case models.TransactionPaid:
		http.Redirect(w, r, "/payment/success?transaction="+txn.Number, http.StatusSeeOther)
	case models.TransactionPending:
		http.Redirect(w, r, "/payment/processing?transaction="+txn.Number, http.StatusSeeOther)
	default:
		http.Redirect(w, r, "/payment/failed?transaction="+txn.Number, http.StatusSeeOther)
	}
}
