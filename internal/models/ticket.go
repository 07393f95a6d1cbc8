package models

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// TicketStatus represents the status of a ticket
type TicketStatus string

const (
	TicketPending   TicketStatus = "pending"
	TicketActive    TicketStatus = "active"
	TicketUsed      TicketStatus = "used"
	TicketCancelled TicketStatus = "cancelled"
	// TicketExpired is a read-time derivation for active tickets past their
	// validity window. It is never written to storage.
	TicketExpired TicketStatus = "expired"
)

// Ticket represents one admission unit. Its code is the check-in credential;
// each ticket is independently check-in-able exactly once.
type Ticket struct {
	ID            int          `json:"id" db:"id"`
	Code          string       `json:"code" db:"code"`
	TransactionID int          `json:"transaction_id" db:"transaction_id"`
	CategoryID    int          `json:"category_id" db:"category_id"`
	EventID       int          `json:"event_id" db:"event_id"`
	Status        TicketStatus `json:"status" db:"status"`
	UsedAt        *time.Time   `json:"used_at,omitempty" db:"used_at"`
	Tag           string       `json:"tag" db:"tag"` // Free-text user note, never affects status
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}

// Validate validates the ticket data
func (t *Ticket) Validate() error {
	if t.Code == "" {
		return errors.New("ticket code is required")
	}

	if len(t.Code) > 255 {
		return errors.New("ticket code must be less than 255 characters")
	}

	return t.validateStatus()
}

// validateStatus validates the stored ticket status
func (t *Ticket) validateStatus() error {
	switch t.Status {
	case TicketPending, TicketActive, TicketUsed, TicketCancelled:
		return nil
	default:
		return errors.New("invalid ticket status")
	}
}

// EffectiveStatus derives the reportable status at the given time. An active
// ticket past its validity window reports as expired without any write; all
// other statuses are reported as stored.
func (t *Ticket) EffectiveStatus(now, validUntil time.Time) TicketStatus {
	if t.Status == TicketActive && now.After(validUntil) {
		return TicketExpired
	}
	return t.Status
}

// IsActive returns true if the ticket is active in storage
func (t *Ticket) IsActive() bool {
	return t.Status == TicketActive
}

// IsUsed returns true if the ticket has been checked in
func (t *Ticket) IsUsed() bool {
	return t.Status == TicketUsed
}

// GenerateTicketCode generates a unique opaque ticket code
func GenerateTicketCode() (string, error) {
	randomBytes := make([]byte, 16)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return fmt.Sprintf("TKT-%s", hex.EncodeToString(randomBytes)), nil
}
