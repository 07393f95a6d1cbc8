package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"tickethub/internal/models"
)

// ReservationRepository persists reservation rows so that stock held by a
// failed or abandoned checkout can be released idempotently, including after
// a restart.
type ReservationRepository struct {
	db *sql.DB
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(db *sql.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// Create inserts a reservation row
func (r *ReservationRepository) Create(ctx context.Context, res *models.Reservation) error {
	query := `
		INSERT INTO reservations (id, category_id, quantity, transaction_id, released, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	var txnID sql.NullInt64
	if res.TransactionID != nil {
		txnID = sql.NullInt64{Int64: int64(*res.TransactionID), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		res.ID,
		res.CategoryID,
		res.Quantity,
		txnID,
		res.Released,
		res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	return nil
}

// MarkReleased flips the released flag exactly once. It reports whether this
// call performed the flip; a false result means the reservation was already
// released (or never existed) and no stock must be returned again.
func (r *ReservationRepository) MarkReleased(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE reservations
		SET released = TRUE
		WHERE id = $1 AND released = FALSE`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark reservation released: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// GetOpenByTransaction retrieves the unreleased reservations held by a
// transaction, in ascending category order.
func (r *ReservationRepository) GetOpenByTransaction(ctx context.Context, transactionID int) ([]*models.Reservation, error) {
	query := `
		SELECT id, category_id, quantity, transaction_id, released, created_at
		FROM reservations
		WHERE transaction_id = $1 AND released = FALSE
		ORDER BY category_id ASC`

	rows, err := r.db.QueryContext(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservations by transaction: %w", err)
	}
	defer rows.Close()

	var reservations []*models.Reservation
	for rows.Next() {
		res := &models.Reservation{}
		var txnID sql.NullInt64

		err := rows.Scan(
			&res.ID,
			&res.CategoryID,
			&res.Quantity,
			&txnID,
			&res.Released,
			&res.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}

		if txnID.Valid {
			id := int(txnID.Int64)
			res.TransactionID = &id
		}

		reservations = append(reservations, res)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reservations: %w", err)
	}

	return reservations, nil
}
