package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"tickethub/internal/models"
	"tickethub/internal/monitoring"
)

// ReconcilerTransactionStore interface for transaction lookups and finalization
type ReconcilerTransactionStore interface {
	GetByID(ctx context.Context, id int) (*models.Transaction, error)
	GetByPaymentReference(ctx context.Context, reference string) (*models.Transaction, error)
	FinalizeStatus(ctx context.Context, id int, status models.TransactionStatus) (bool, error)
	GetExpiredPending(ctx context.Context, cutoff time.Time) ([]*models.Transaction, error)
	GetFailedWithOpenReservations(ctx context.Context) ([]*models.Transaction, error)
}

// OpenReservationStore interface for finding a transaction's unreleased reservations
type OpenReservationStore interface {
	GetOpenByTransaction(ctx context.Context, transactionID int) ([]*models.Reservation, error)
}

// ReconcilerService applies gateway outcomes to pending transactions and
// sweeps the ones the gateway never answered for. Every path funnels through
// the same conditional status flip, so each transaction is settled exactly
// once no matter how many webhooks, callbacks and sweeper ticks race for it.
type ReconcilerService struct {
	txns         ReconcilerTransactionStore
	tickets      TicketStatusStore
	reservations OpenReservationStore
	ledger       Ledger

	pendingTTL    time.Duration
	sweepInterval time.Duration
	now           func() time.Time
}

// NewReconcilerService creates a new reconciler service
func NewReconcilerService(txns ReconcilerTransactionStore, tickets TicketStatusStore, reservations OpenReservationStore, ledger Ledger, pendingTTL, sweepInterval time.Duration) *ReconcilerService {
	return &ReconcilerService{
		txns:          txns,
		tickets:       tickets,
		reservations:  reservations,
		ledger:        ledger,
		pendingTTL:    pendingTTL,
		sweepInterval: sweepInterval,
		now:           time.Now,
	}
}

// OnPaymentResult settles the transaction identified by the gateway
// reference. Duplicate deliveries of the same outcome are no-ops; a
// delivery that conflicts with an already-settled outcome is logged and
// ignored, never reverses state.
func (s *ReconcilerService) OnPaymentResult(ctx context.Context, reference string, outcome PaymentOutcome) error {
	txn, err := s.txns.GetByPaymentReference(ctx, reference)
	if err != nil {
		return fmt.Errorf("failed to look up payment reference: %w", err)
	}

	target := models.TransactionFailed
	if outcome == OutcomeSuccess {
		target = models.TransactionPaid
	}

	flipped, err := s.txns.FinalizeStatus(ctx, txn.ID, target)
	if err != nil {
		return fmt.Errorf("failed to finalize transaction %s: %w", txn.Number, err)
	}

	if !flipped {
		current, err := s.txns.GetByID(ctx, txn.ID)
		if err != nil {
			return fmt.Errorf("failed to re-read transaction %s: %w", txn.Number, err)
		}

		// A transaction already settled on the failure side may still carry
		// leftovers from an unwind that errored mid-way. Re-running it is
		// idempotent, so redeliveries finish whatever the first delivery
		// could not.
		if current.Status == models.TransactionFailed || current.Status == models.TransactionExpired {
			if err := s.unwind(ctx, current); err != nil {
				return err
			}
		}

		if current.Status == target {
			monitoring.PaymentOutcomeApplied(string(outcome), "duplicate")
			return nil
		}

		log.Printf("reconciler: conflicting outcome %s for transaction %s already settled as %s",
			target, txn.Number, current.Status)
		monitoring.PaymentOutcomeApplied(string(outcome), "conflict")
		return nil
	}

	if target == models.TransactionPaid {
		if err := s.tickets.UpdateStatusByTransaction(ctx, txn.ID, models.TicketPending, models.TicketActive); err != nil {
			return fmt.Errorf("failed to activate tickets for transaction %s: %w", txn.Number, err)
		}
		monitoring.PaymentOutcomeApplied(string(outcome), "applied")
		return nil
	}

	if err := s.unwind(ctx, txn); err != nil {
		return err
	}
	monitoring.PaymentOutcomeApplied(string(outcome), "applied")
	return nil
}

// SweepExpired fails every pending transaction older than the pending TTL.
// A late webhook for a swept transaction lands on the conflict path in
// OnPaymentResult and cannot resurrect it.
func (s *ReconcilerService) SweepExpired(ctx context.Context) error {
	cutoff := s.now().Add(-s.pendingTTL)

	stale, err := s.txns.GetExpiredPending(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to list expired transactions: %w", err)
	}

	for _, txn := range stale {
		flipped, err := s.txns.FinalizeStatus(ctx, txn.ID, models.TransactionExpired)
		if err != nil {
			log.Printf("reconciler: failed to expire transaction %s: %v", txn.Number, err)
			continue
		}
		if !flipped {
			// Settled between the listing and the flip.
			continue
		}

		if err := s.unwind(ctx, txn); err != nil {
			log.Printf("reconciler: failed to unwind transaction %s: %v", txn.Number, err)
			continue
		}
		monitoring.TransactionSwept()
	}

	return s.reclaimStranded(ctx)
}

// reclaimStranded finishes unwinds that a crash or partial failure left
// incomplete: terminal transactions on the failure side must never keep a
// reservation open, no matter which delivery or sweep tick broke down.
func (s *ReconcilerService) reclaimStranded(ctx context.Context) error {
	stranded, err := s.txns.GetFailedWithOpenReservations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list stranded transactions: %w", err)
	}

	for _, txn := range stranded {
		if err := s.unwind(ctx, txn); err != nil {
			log.Printf("reconciler: failed to reclaim transaction %s: %v", txn.Number, err)
		}
	}

	return nil
}

// unwind cancels the transaction's pending tickets and returns its stock.
// Ticket cancellation and reservation release are both idempotent, so a
// crash mid-unwind is repaired by the next redelivery or sweep tick.
func (s *ReconcilerService) unwind(ctx context.Context, txn *models.Transaction) error {
	if err := s.tickets.UpdateStatusByTransaction(ctx, txn.ID, models.TicketPending, models.TicketCancelled); err != nil {
		return fmt.Errorf("failed to cancel tickets for transaction %s: %w", txn.Number, err)
	}

	open, err := s.reservations.GetOpenByTransaction(ctx, txn.ID)
	if err != nil {
		return fmt.Errorf("failed to list reservations for transaction %s: %w", txn.Number, err)
	}

	for _, res := range open {
		if err := s.ledger.Release(ctx, res); err != nil {
			log.Printf("reconciler: failed to release reservation %s: %v", res.ID, err)
		}
	}

	return nil
}

// Run sweeps expired transactions on a fixed interval until the context is
// cancelled
func (s *ReconcilerService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	log.Printf("reconciler: sweeping pending transactions older than %s every %s", s.pendingTTL, s.sweepInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("reconciler: stopped")
			return
		case <-ticker.C:
			if err := s.SweepExpired(ctx); err != nil {
				log.Printf("reconciler: sweep failed: %v", err)
			}
		}
	}
}
