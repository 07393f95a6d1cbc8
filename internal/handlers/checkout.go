package handlers

import (
	"net/http"

	"tickethub/internal/middleware"
	"tickethub/internal/services"
)

// CheckoutHandler handles checkout requests
type CheckoutHandler struct {
	checkoutService *services.CheckoutService
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// Checkout converts the user's cart into a pending transaction and returns
// the payment URL to redirect the buyer to
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	result, err := h.checkoutService.Checkout(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}
