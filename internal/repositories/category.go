package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"tickethub/internal/models"
)

// CategoryRepository handles ticket category data operations. The sold
// counter is only written through ReserveStock and ReleaseStock; both are
// single conditional statements so the 0 <= sold <= quota invariant holds
// regardless of interleaving.
type CategoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetByID retrieves a ticket category by ID
func (r *CategoryRepository) GetByID(ctx context.Context, id int) (*models.TicketCategory, error) {
	query := `
		SELECT id, event_id, name, price, quota, sold, valid_from, valid_to, created_at
		FROM ticket_categories
		WHERE id = $1`

	category := &models.TicketCategory{}
	var validFrom, validTo sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&category.ID,
		&category.EventID,
		&category.Name,
		&category.Price,
		&category.Quota,
		&category.Sold,
		&validFrom,
		&validTo,
		&category.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get ticket category: %w", err)
	}

	if validFrom.Valid {
		category.ValidFrom = &validFrom.Time
	}
	if validTo.Valid {
		category.ValidTo = &validTo.Time
	}

	return category, nil
}

// GetByEvent retrieves all ticket categories for an event
func (r *CategoryRepository) GetByEvent(ctx context.Context, eventID int) ([]*models.TicketCategory, error) {
	query := `
		SELECT id, event_id, name, price, quota, sold, valid_from, valid_to, created_at
		FROM ticket_categories
		WHERE event_id = $1
		ORDER BY price ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket categories by event: %w", err)
	}
	defer rows.Close()

	var categories []*models.TicketCategory
	for rows.Next() {
		category := &models.TicketCategory{}
		var validFrom, validTo sql.NullTime

		err := rows.Scan(
			&category.ID,
			&category.EventID,
			&category.Name,
			&category.Price,
			&category.Quota,
			&category.Sold,
			&validFrom,
			&validTo,
			&category.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket category: %w", err)
		}

		if validFrom.Valid {
			category.ValidFrom = &validFrom.Time
		}
		if validTo.Valid {
			category.ValidTo = &validTo.Time
		}

		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ticket categories: %w", err)
	}

	return categories, nil
}

// ReserveStock atomically counts qty units against the category's quota.
// The guard in the WHERE clause makes two racing reservations that would
// jointly exceed the quota resolve to one success and one
// ErrInsufficientStock.
func (r *CategoryRepository) ReserveStock(ctx context.Context, id, qty int) error {
	query := `
		UPDATE ticket_categories
		SET sold = sold + $2
		WHERE id = $1 AND sold + $2 <= quota`

	result, err := r.db.ExecContext(ctx, query, id, qty)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Distinguish a missing category from exhausted stock
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return models.ErrInsufficientStock
	}

	return nil
}

// ReleaseStock returns qty previously reserved units to the category. The
// sold >= qty guard refuses any release that would drive the counter
// negative; a zero-row result here means the counters are out of step with
// the reservation ledger and the caller must treat it as an invariant
// violation.
func (r *CategoryRepository) ReleaseStock(ctx context.Context, id, qty int) error {
	query := `
		UPDATE ticket_categories
		SET sold = sold - $2
		WHERE id = $1 AND sold >= $2`

	result, err := r.db.ExecContext(ctx, query, id, qty)
	if err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("release of %d units for category %d refused: counter would underflow", qty, id)
	}

	return nil
}
