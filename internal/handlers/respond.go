package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"tickethub/internal/models"
)

// respondJSON writes the payload as a JSON response
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if payload == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// respondError maps a service error to its HTTP status and writes it.
// Unrecognized errors are logged and masked as a generic 500.
func respondError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	message := err.Error()

	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		message = "internal server error"
	}

	respondJSON(w, status, errorResponse{Error: message})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidQuantity),
		errors.Is(err, models.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrEventNotFound),
		errors.Is(err, models.ErrCategoryNotFound),
		errors.Is(err, models.ErrTicketNotFound),
		errors.Is(err, models.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInsufficientStock),
		errors.Is(err, models.ErrWrongEvent),
		errors.Is(err, models.ErrAlreadyUsed),
		errors.Is(err, models.ErrNotActive):
		return http.StatusConflict
	case errors.Is(err, models.ErrExpired):
		return http.StatusGone
	case errors.Is(err, models.ErrGatewayUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrCategoryHalted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
