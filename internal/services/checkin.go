package services

import (
	"context"
	"fmt"
	"time"

	"tickethub/internal/models"
	"tickethub/internal/monitoring"
	"tickethub/internal/repositories"
)

// TicketStore interface for ticket lookups, check-in and tagging
type TicketStore interface {
	GetByCode(ctx context.Context, code string) (*repositories.TicketWithValidity, error)
	MarkUsed(ctx context.Context, code string, at time.Time) (bool, error)
	SetTag(ctx context.Context, userID int, code, tag string) (bool, error)
	ListByUser(ctx context.Context, userID int) ([]*repositories.TicketWithValidity, error)
}

// TicketService handles ticket lifecycle operations: gate check-in, tagging
// and listing a user's tickets with their effective status.
type TicketService struct {
	tickets TicketStore
	now     func() time.Time
}

// NewTicketService creates a new ticket service
func NewTicketService(tickets TicketStore) *TicketService {
	return &TicketService{
		tickets: tickets,
		now:     time.Now,
	}
}

// CheckIn validates the scanned code against the gate's event and marks the
// ticket used. Rejections are checked most-specific first so a scan of a
// used ticket reports used, not expired. The final mark is conditional on
// the ticket still being active, so N concurrent scans of one code admit
// exactly once.
func (s *TicketService) CheckIn(ctx context.Context, code string, eventID int) (*models.Ticket, error) {
	ticket, err := s.tickets.GetByCode(ctx, code)
	if err != nil {
		monitoring.CheckInScanned("not_found")
		return nil, err
	}

	if ticket.EventID != eventID {
		monitoring.CheckInScanned("wrong_event")
		return nil, models.ErrWrongEvent
	}

	if ticket.IsUsed() {
		monitoring.CheckInScanned("already_used")
		return nil, models.ErrAlreadyUsed
	}

	now := s.now()
	switch ticket.EffectiveStatus(now, ticket.ValidUntil) {
	case models.TicketExpired:
		monitoring.CheckInScanned("expired")
		return nil, models.ErrExpired
	case models.TicketActive:
		// eligible
	default:
		monitoring.CheckInScanned("not_active")
		return nil, models.ErrNotActive
	}

	admitted, err := s.tickets.MarkUsed(ctx, code, now)
	if err != nil {
		monitoring.CheckInScanned("error")
		return nil, fmt.Errorf("failed to mark ticket used: %w", err)
	}

	if !admitted {
		// Another scanner won the race between our read and the mark.
		monitoring.CheckInScanned("already_used")
		return nil, models.ErrAlreadyUsed
	}

	ticket.Status = models.TicketUsed
	ticket.UsedAt = &now

	monitoring.CheckInScanned("ok")
	return ticket.Ticket, nil
}

// SetTag attaches a free-text note to one of the user's tickets. The tag is
// cosmetic and never affects ticket status or check-in.
func (s *TicketService) SetTag(ctx context.Context, userID int, code, tag string) error {
	found, err := s.tickets.SetTag(ctx, userID, code, tag)
	if err != nil {
		return fmt.Errorf("failed to tag ticket: %w", err)
	}

	if !found {
		return models.ErrTicketNotFound
	}

	return nil
}

// TicketView is a ticket with its effective status resolved at read time
type TicketView struct {
	*models.Ticket
	EffectiveStatus models.TicketStatus `json:"effective_status"`
}

// ListUserTickets returns the user's tickets, newest purchase first. The
// optional status filter matches against the effective status, so filtering
// for "expired" works even though storage never holds that value.
func (s *TicketService) ListUserTickets(ctx context.Context, userID int, status models.TicketStatus) ([]*TicketView, error) {
	tickets, err := s.tickets.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}

	now := s.now()
	views := make([]*TicketView, 0, len(tickets))
	for _, t := range tickets {
		effective := t.EffectiveStatus(now, t.ValidUntil)
		if status != "" && effective != status {
			continue
		}

		views = append(views, &TicketView{
			Ticket:          t.Ticket,
			EffectiveStatus: effective,
		})
	}

	return views, nil
}
