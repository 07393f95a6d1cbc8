package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tickethub/internal/models"
)

// TicketRepository handles ticket data operations.
type TicketRepository struct {
	db *sql.DB
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// TicketWithValidity pairs a ticket with the end of its validity window
// (the category's valid_to, or the event's end when none is set), so status
// derivation never needs a second lookup.
type TicketWithValidity struct {
	*models.Ticket
	ValidUntil time.Time `json:"valid_until"`
}

const ticketValidityQuery = `
	SELECT t.id, t.code, t.transaction_id, t.category_id, t.event_id,
	       t.status, t.used_at, t.tag, t.created_at,
	       COALESCE(c.valid_to, e.ends_at) AS valid_until
	FROM tickets t
	JOIN ticket_categories c ON t.category_id = c.id
	JOIN events e ON t.event_id = e.id`

// GetByCode retrieves a ticket and its validity window by code
func (r *TicketRepository) GetByCode(ctx context.Context, code string) (*TicketWithValidity, error) {
	query := ticketValidityQuery + `
	WHERE t.code = $1`

	ticket, err := r.scanOne(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket by code: %w", err)
	}

	return ticket, nil
}

// MarkUsed flips an active ticket to used, exactly once. The guard on the
// stored status makes two concurrent scans of the same code resolve to one
// success; the loser sees a false result and must report the ticket as
// already used.
func (r *TicketRepository) MarkUsed(ctx context.Context, code string, at time.Time) (bool, error) {
	query := `
		UPDATE tickets
		SET status = $2, used_at = $3
		WHERE code = $1 AND status = $4`

	result, err := r.db.ExecContext(ctx, query, code, models.TicketUsed, at, models.TicketActive)
	if err != nil {
		return false, fmt.Errorf("failed to mark ticket used: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// UpdateStatusByTransaction moves every ticket of a transaction from one
// stored status to another. Used by the payment reconciler to activate or
// cancel a transaction's tickets as a single statement.
func (r *TicketRepository) UpdateStatusByTransaction(ctx context.Context, transactionID int, from, to models.TicketStatus) error {
	query := `
		UPDATE tickets
		SET status = $3
		WHERE transaction_id = $1 AND status = $2`

	_, err := r.db.ExecContext(ctx, query, transactionID, from, to)
	if err != nil {
		return fmt.Errorf("failed to update ticket statuses: %w", err)
	}

	return nil
}

// SetTag updates the free-text note on a ticket owned by the given user. It
// reports whether a ticket was found; the tag never affects ticket status.
func (r *TicketRepository) SetTag(ctx context.Context, userID int, code, tag string) (bool, error) {
	query := `
		UPDATE tickets
		SET tag = $3
		WHERE code = $2
		  AND transaction_id IN (SELECT id FROM transactions WHERE user_id = $1)`

	result, err := r.db.ExecContext(ctx, query, userID, code, tag)
	if err != nil {
		return false, fmt.Errorf("failed to set ticket tag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// ListByUser retrieves a user's tickets with validity windows, newest first
func (r *TicketRepository) ListByUser(ctx context.Context, userID int) ([]*TicketWithValidity, error) {
	query := ticketValidityQuery + `
	JOIN transactions x ON t.transaction_id = x.id
	WHERE x.user_id = $1
	ORDER BY t.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets by user: %w", err)
	}
	defer rows.Close()

	var tickets []*TicketWithValidity
	for rows.Next() {
		ticket, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}

	return tickets, nil
}

// GetByTransaction retrieves all tickets for a transaction
func (r *TicketRepository) GetByTransaction(ctx context.Context, transactionID int) ([]*TicketWithValidity, error) {
	query := ticketValidityQuery + `
	WHERE t.transaction_id = $1
	ORDER BY t.created_at ASC, t.id ASC`

	rows, err := r.db.QueryContext(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets by transaction: %w", err)
	}
	defer rows.Close()

	var tickets []*TicketWithValidity
	for rows.Next() {
		ticket, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}

	return tickets, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *TicketRepository) scanOne(row rowScanner) (*TicketWithValidity, error) {
	ticket := &TicketWithValidity{Ticket: &models.Ticket{}}
	var usedAt sql.NullTime

	err := row.Scan(
		&ticket.ID,
		&ticket.Code,
		&ticket.TransactionID,
		&ticket.CategoryID,
		&ticket.EventID,
		&ticket.Status,
		&usedAt,
		&ticket.Tag,
		&ticket.CreatedAt,
		&ticket.ValidUntil,
	)
	if err != nil {
		return nil, err
	}

	if usedAt.Valid {
		ticket.UsedAt = &usedAt.Time
	}

	return ticket, nil
}
