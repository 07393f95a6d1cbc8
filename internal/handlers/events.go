package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"tickethub/internal/models"

	"github.com/go-chi/chi/v5"
)

// EventReader looks up events for the storefront view
type EventReader interface {
	GetByID(ctx context.Context, id int) (*models.Event, error)
}

// CategoryReader lists an event's categories
type CategoryReader interface {
	GetByEvent(ctx context.Context, eventID int) ([]*models.TicketCategory, error)
}

// EventHandler serves the storefront availability view
type EventHandler struct {
	events     EventReader
	categories CategoryReader
}

// NewEventHandler creates a new event handler
func NewEventHandler(events EventReader, categories CategoryReader) *EventHandler {
	return &EventHandler{
		events:     events,
		categories: categories,
	}
}

type categoryView struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Price     int    `json:"price"`
	Available int    `json:"available"`
	SoldOut   bool   `json:"sold_out"`
}

type eventCategoriesResponse struct {
	Event      *models.Event  `json:"event"`
	Ended      bool           `json:"ended"`
	Categories []categoryView `json:"categories"`
}

// ListCategories returns the event's categories with remaining stock
func (h *EventHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.Atoi(chi.URLParam(r, "eventID"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid event ID"})
		return
	}

	event, err := h.events.GetByID(r.Context(), eventID)
	if err != nil {
		respondError(w, err)
		return
	}

	categories, err := h.categories.GetByEvent(r.Context(), eventID)
	if err != nil {
		respondError(w, err)
		return
	}

	views := make([]categoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, categoryView{
			ID:        c.ID,
			Name:      c.Name,
			Price:     c.Price,
			Available: c.Available(),
			SoldOut:   c.IsSoldOut(),
		})
	}

	respondJSON(w, http.StatusOK, eventCategoriesResponse{
		Event:      event,
		Ended:      event.HasEnded(time.Now()),
		Categories: views,
	})
}
