package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"tickethub/internal/middleware"
	"tickethub/internal/services"

	"github.com/go-chi/chi/v5"
)

// CartHandler handles cart operations
type CartHandler struct {
	cartService *services.CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *services.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// GetCart returns the user's cart with current prices and totals
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	cart, err := h.cartService.List(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

type cartItemRequest struct {
	CategoryID int `json:"category_id"`
	Quantity   int `json:"quantity"`
}

// AddItem adds a category to the cart or increments its quantity
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := h.cartService.AddOrIncrement(r.Context(), userID, req.CategoryID, req.Quantity); err != nil {
		respondError(w, err)
		return
	}

	cart, err := h.cartService.List(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

// UpdateItem sets a line's quantity; zero removes the line
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	categoryID, err := strconv.Atoi(chi.URLParam(r, "categoryID"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid category ID"})
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := h.cartService.SetQuantity(r.Context(), userID, categoryID, req.Quantity); err != nil {
		respondError(w, err)
		return
	}

	cart, err := h.cartService.List(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

// RemoveItem removes a category line from the cart
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	categoryID, err := strconv.Atoi(chi.URLParam(r, "categoryID"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid category ID"})
		return
	}

	if err := h.cartService.Remove(r.Context(), userID, categoryID); err != nil {
		respondError(w, err)
		return
	}

	cart, err := h.cartService.List(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}
