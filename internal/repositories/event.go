package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"tickethub/internal/models"
)

// EventRepository reads event rows owned by the administration subsystem.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// GetByID retrieves an event by ID
func (r *EventRepository) GetByID(ctx context.Context, id int) (*models.Event, error) {
	query := `
		SELECT id, title, starts_at, ends_at, created_at
		FROM events
		WHERE id = $1`

	event := &models.Event{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.Title,
		&event.StartsAt,
		&event.EndsAt,
		&event.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return event, nil
}
