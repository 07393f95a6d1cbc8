package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"tickethub/internal/models"
	"tickethub/internal/monitoring"
)

// CartStore interface for cart operations used by checkout
type CartStore interface {
	List(ctx context.Context, userID int) (*models.Cart, error)
	Clear(ctx context.Context, userID int) error
}

// Ledger interface for the inventory ledger
type Ledger interface {
	Reserve(ctx context.Context, categoryID, qty int) (*models.Reservation, error)
	Release(ctx context.Context, res *models.Reservation) error
	Confirm(ctx context.Context, res *models.Reservation) error
}

// TransactionStore interface for transaction persistence
type TransactionStore interface {
	CreateWithTickets(ctx context.Context, txn *models.Transaction, tickets []*models.Ticket, reservationIDs []string) error
	SetPaymentReference(ctx context.Context, id int, reference string) error
	FinalizeStatus(ctx context.Context, id int, status models.TransactionStatus) (bool, error)
}

// TicketStatusStore interface for bulk ticket status flips
type TicketStatusStore interface {
	UpdateStatusByTransaction(ctx context.Context, transactionID int, from, to models.TicketStatus) error
}

// CheckoutService converts a cart into a pending transaction with reserved
// stock and an open payment session. Checkout never partially succeeds:
// either a fully reserved transaction with a session exists afterwards, or
// nothing persists beyond the untouched cart.
type CheckoutService struct {
	carts   CartStore
	ledger  Ledger
	txns    TransactionStore
	tickets TicketStatusStore
	gateway PaymentGateway
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(carts CartStore, ledger Ledger, txns TransactionStore, tickets TicketStatusStore, gateway PaymentGateway) *CheckoutService {
	return &CheckoutService{
		carts:   carts,
		ledger:  ledger,
		txns:    txns,
		tickets: tickets,
		gateway: gateway,
	}
}

// CheckoutResult is the successful outcome of a checkout
type CheckoutResult struct {
	Transaction *models.Transaction `json:"transaction"`
	PaymentURL  string              `json:"payment_url"`
}

// Checkout converts the user's cart into a pending transaction. Reservations
// are acquired in ascending category order; any failure releases everything
// acquired so far. The gateway call happens only after all stock is
// committed, so gateway latency never holds a category lock.
func (s *CheckoutService) Checkout(ctx context.Context, userID int) (*CheckoutResult, error) {
	cart, err := s.carts.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot cart: %w", err)
	}

	if cart.IsEmpty() {
		return nil, models.ErrEmptyCart
	}

	// Fixed global order prevents deadlock between checkouts reserving the
	// same categories.
	lines := make([]models.CartLine, len(cart.Lines))
	copy(lines, cart.Lines)
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].CategoryID < lines[j].CategoryID
	})

	var reservations []*models.Reservation
	for _, line := range lines {
		res, err := s.ledger.Reserve(ctx, line.CategoryID, line.Quantity)
		if err != nil {
			s.releaseAll(ctx, reservations)
			monitoring.CheckoutCompleted("reserve_failed")
			if errors.Is(err, models.ErrInsufficientStock) || errors.Is(err, models.ErrCategoryHalted) || errors.Is(err, models.ErrCategoryNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to reserve category %d: %w", line.CategoryID, err)
		}
		reservations = append(reservations, res)
	}

	txn := &models.Transaction{
		UserID: userID,
		Number: models.GenerateTransactionNumber(),
		Total:  cart.TotalAmount, // recomputed from current prices, never client-supplied
		Status: models.TransactionPending,
	}

	tickets, err := buildTickets(lines)
	if err != nil {
		s.releaseAll(ctx, reservations)
		monitoring.CheckoutCompleted("error")
		return nil, err
	}

	reservationIDs := make([]string, len(reservations))
	for i, res := range reservations {
		reservationIDs[i] = res.ID
	}

	if err := s.txns.CreateWithTickets(ctx, txn, tickets, reservationIDs); err != nil {
		s.releaseAll(ctx, reservations)
		monitoring.CheckoutCompleted("error")
		return nil, fmt.Errorf("failed to persist checkout: %w", err)
	}

	if err := s.carts.Clear(ctx, userID); err != nil {
		// The transaction holds the stock now; a stale cart only means the
		// user sees already-purchased lines until it is cleared again.
		log.Printf("checkout: failed to clear cart for user %d: %v", userID, err)
	}

	session, err := s.gateway.CreateSession(ctx, &SessionRequest{
		TransactionID:     txn.ID,
		TransactionNumber: txn.Number,
		Amount:            txn.Total,
	})
	if err != nil {
		s.failAfterGateway(ctx, txn, reservations)
		monitoring.CheckoutCompleted("gateway_unavailable")
		if errors.Is(err, models.ErrGatewayUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, err)
	}

	if err := s.txns.SetPaymentReference(ctx, txn.ID, session.Reference); err != nil {
		s.failAfterGateway(ctx, txn, reservations)
		monitoring.CheckoutCompleted("error")
		return nil, fmt.Errorf("failed to store payment reference: %w", err)
	}
	txn.PaymentReference = session.Reference

	monitoring.CheckoutCompleted("ok")
	return &CheckoutResult{
		Transaction: txn,
		PaymentURL:  session.PaymentURL,
	}, nil
}

// buildTickets expands cart lines into one pending ticket per admission unit
func buildTickets(lines []models.CartLine) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	for _, line := range lines {
		for i := 0; i < line.Quantity; i++ {
			code, err := models.GenerateTicketCode()
			if err != nil {
				return nil, fmt.Errorf("failed to generate ticket code: %w", err)
			}

			tickets = append(tickets, &models.Ticket{
				Code:       code,
				CategoryID: line.CategoryID,
				EventID:    line.EventID,
				Status:     models.TicketPending,
			})
		}
	}

	return tickets, nil
}

// releaseAll returns every reservation acquired by this attempt, newest
// first
func (s *CheckoutService) releaseAll(ctx context.Context, reservations []*models.Reservation) {
	for i := len(reservations) - 1; i >= 0; i-- {
		if err := s.ledger.Release(ctx, reservations[i]); err != nil {
			log.Printf("checkout: failed to release reservation %s: %v", reservations[i].ID, err)
		}
	}
}

// failAfterGateway unwinds a persisted checkout whose payment session could
// not be opened: the transaction and its tickets reach their terminal failed
// state and all stock returns to the categories.
func (s *CheckoutService) failAfterGateway(ctx context.Context, txn *models.Transaction, reservations []*models.Reservation) {
	flipped, err := s.txns.FinalizeStatus(ctx, txn.ID, models.TransactionFailed)
	if err != nil {
		log.Printf("checkout: failed to fail transaction %s: %v", txn.Number, err)
		return
	}

	if !flipped {
		// Someone else already finalized it; their path owns the cleanup.
		return
	}
	txn.Status = models.TransactionFailed

	if err := s.tickets.UpdateStatusByTransaction(ctx, txn.ID, models.TicketPending, models.TicketCancelled); err != nil {
		log.Printf("checkout: failed to cancel tickets for transaction %s: %v", txn.Number, err)
	}

	s.releaseAll(ctx, reservations)
}
