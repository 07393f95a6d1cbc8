package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"tickethub/internal/models"
)

// TransactionRepository handles transaction data operations.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// CreateWithTickets persists a transaction, its tickets, and the link from
// the checkout's reservations in one database transaction. Either everything
// from the checkout attempt becomes visible or nothing does.
func (r *TransactionRepository) CreateWithTickets(ctx context.Context, txn *models.Transaction, tickets []*models.Ticket, reservationIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	headerQuery := `
		INSERT INTO transactions (user_id, number, total, status, payment_reference, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	now := time.Now()
	err = tx.QueryRowContext(ctx, headerQuery,
		txn.UserID,
		txn.Number,
		txn.Total,
		txn.Status,
		txn.PaymentReference,
		now,
		now,
	).Scan(&txn.ID)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	txn.CreatedAt = now
	txn.UpdatedAt = now

	ticketQuery := `
		INSERT INTO tickets (code, transaction_id, category_id, event_id, status, tag, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	stmt, err := tx.PrepareContext(ctx, ticketQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare ticket statement: %w", err)
	}
	defer stmt.Close()

	for _, ticket := range tickets {
		ticket.TransactionID = txn.ID
		ticket.CreatedAt = now

		err := stmt.QueryRowContext(ctx,
			ticket.Code,
			ticket.TransactionID,
			ticket.CategoryID,
			ticket.EventID,
			ticket.Status,
			ticket.Tag,
			now,
		).Scan(&ticket.ID)
		if err != nil {
			return fmt.Errorf("failed to insert ticket %s: %w", ticket.Code, err)
		}
	}

	if len(reservationIDs) > 0 {
		linkQuery := `
			UPDATE reservations
			SET transaction_id = $1
			WHERE id = ANY($2)`

		if _, err := tx.ExecContext(ctx, linkQuery, txn.ID, pq.Array(reservationIDs)); err != nil {
			return fmt.Errorf("failed to link reservations: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkout: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction by ID
func (r *TransactionRepository) GetByID(ctx context.Context, id int) (*models.Transaction, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByPaymentReference retrieves a transaction by its gateway reference
func (r *TransactionRepository) GetByPaymentReference(ctx context.Context, reference string) (*models.Transaction, error) {
	return r.getOne(ctx, "payment_reference = $1", reference)
}

func (r *TransactionRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, number, total, status, payment_reference, created_at, updated_at
		FROM transactions
		WHERE %s`, where)

	txn := &models.Transaction{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&txn.ID,
		&txn.UserID,
		&txn.Number,
		&txn.Total,
		&txn.Status,
		&txn.PaymentReference,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return txn, nil
}

// SetPaymentReference stores the gateway reference on a transaction
func (r *TransactionRepository) SetPaymentReference(ctx context.Context, id int, reference string) error {
	query := `
		UPDATE transactions
		SET payment_reference = $2, updated_at = $3
		WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, reference, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set payment reference: %w", err)
	}

	return nil
}

// FinalizeStatus moves a pending transaction to a terminal status, exactly
// once. It reports whether this call performed the transition; a false
// result means another caller (webhook retry or the sweeper) got there
// first.
func (r *TransactionRepository) FinalizeStatus(ctx context.Context, id int, status models.TransactionStatus) (bool, error) {
	query := `
		UPDATE transactions
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = 'pending'`

	result, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to finalize transaction status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// GetFailedWithOpenReservations retrieves failed or expired transactions
// that still hold unreleased reservations, so the sweeper can finish an
// unwind that a crash or partial failure left incomplete.
func (r *TransactionRepository) GetFailedWithOpenReservations(ctx context.Context) ([]*models.Transaction, error) {
	query := `
		SELECT DISTINCT t.id, t.user_id, t.number, t.total, t.status, t.payment_reference, t.created_at, t.updated_at
		FROM transactions t
		JOIN reservations r ON r.transaction_id = t.id
		WHERE t.status IN ('failed', 'expired') AND r.released = FALSE
		LIMIT 100`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions with open reservations: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetExpiredPending retrieves pending transactions created before the cutoff
func (r *TransactionRepository) GetExpiredPending(ctx context.Context, cutoff time.Time) ([]*models.Transaction, error) {
	query := `
		SELECT id, user_id, number, total, status, payment_reference, created_at, updated_at
		FROM transactions
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT 100`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired pending transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]*models.Transaction, error) {
	var transactions []*models.Transaction
	for rows.Next() {
		txn := &models.Transaction{}
		err := rows.Scan(
			&txn.ID,
			&txn.UserID,
			&txn.Number,
			&txn.Total,
			&txn.Status,
			&txn.PaymentReference,
			&txn.CreatedAt,
			&txn.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}
