package handlers

import (
	"encoding/json"
	"net/http"

	"tickethub/internal/middleware"
	"tickethub/internal/models"
	"tickethub/internal/services"

	"github.com/go-chi/chi/v5"
)

// TicketHandler handles ticket listing, tagging and check-in
type TicketHandler struct {
	ticketService *services.TicketService
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(ticketService *services.TicketService) *TicketHandler {
	return &TicketHandler{ticketService: ticketService}
}

// ListTickets returns the user's tickets, optionally filtered by effective
// status via ?status=
func (h *TicketHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	status := models.TicketStatus(r.URL.Query().Get("status"))

	tickets, err := h.ticketService.ListUserTickets(r.Context(), userID, status)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"tickets": tickets})
}

// SetTag attaches a free-text note to one of the user's tickets
func (h *TicketHandler) SetTag(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	code := chi.URLParam(r, "code")

	var req struct {
		Tag string `json:"tag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if len(req.Tag) > 255 {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "tag must be less than 255 characters"})
		return
	}

	if err := h.ticketService.SetTag(r.Context(), userID, code, req.Tag); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"code": code, "tag": req.Tag})
}

type checkInRequest struct {
	Code    string `json:"code"`
	EventID int    `json:"event_id"`
}

// CheckIn validates a scanned ticket code at the gate and marks it used
func (h *TicketHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if req.Code == "" || req.EventID <= 0 {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "code and event_id are required"})
		return
	}

	ticket, err := h.ticketService.CheckIn(r.Context(), req.Code, req.EventID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ticket)
}
