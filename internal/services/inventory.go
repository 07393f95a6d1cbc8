package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"tickethub/internal/models"
	"tickethub/internal/monitoring"
)

// CategoryStore interface for category stock operations
type CategoryStore interface {
	GetByID(ctx context.Context, id int) (*models.TicketCategory, error)
	ReserveStock(ctx context.Context, id, qty int) error
	ReleaseStock(ctx context.Context, id, qty int) error
}

// ReservationStore interface for reservation bookkeeping
type ReservationStore interface {
	Create(ctx context.Context, res *models.Reservation) error
	MarkReleased(ctx context.Context, id string) (bool, error)
}

// InventoryService is the inventory ledger: the only path by which a
// category's sold counter moves. Reserve and Release for the same category
// are serialized by a per-category mutex; different categories proceed fully
// in parallel.
type InventoryService struct {
	categories   CategoryStore
	reservations ReservationStore

	mu     sync.Mutex
	locks  map[int]*sync.Mutex
	halted map[int]bool
}

// NewInventoryService creates a new inventory service
func NewInventoryService(categories CategoryStore, reservations ReservationStore) *InventoryService {
	return &InventoryService{
		categories:   categories,
		reservations: reservations,
		locks:        make(map[int]*sync.Mutex),
		halted:       make(map[int]bool),
	}
}

// lockFor returns the mutex serializing ledger operations for one category
func (s *InventoryService) lockFor(categoryID int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[categoryID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[categoryID] = lock
	}
	return lock
}

// isHalted reports whether the category refuses reservations after an
// observed invariant violation
func (s *InventoryService) isHalted(categoryID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halted[categoryID]
}

func (s *InventoryService) halt(categoryID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.halted[categoryID] = true
}

// Reserve atomically counts qty units against the category's quota and
// returns a reservation token. Two concurrent calls that would jointly
// exceed remaining stock result in exactly one success and one
// ErrInsufficientStock.
func (s *InventoryService) Reserve(ctx context.Context, categoryID, qty int) (*models.Reservation, error) {
	if qty <= 0 {
		return nil, models.ErrInvalidQuantity
	}

	lock := s.lockFor(categoryID)
	lock.Lock()
	defer lock.Unlock()

	if s.isHalted(categoryID) {
		return nil, models.ErrCategoryHalted
	}

	if err := s.categories.ReserveStock(ctx, categoryID, qty); err != nil {
		// Rejections are oversell attempts; a missing category or a store
		// failure is not one.
		if errors.Is(err, models.ErrInsufficientStock) {
			monitoring.ReservationRejected()
		}
		return nil, err
	}

	res := &models.Reservation{
		ID:         uuid.NewString(),
		CategoryID: categoryID,
		Quantity:   qty,
		CreatedAt:  time.Now(),
	}

	if err := s.reservations.Create(ctx, res); err != nil {
		// Return the stock we just counted; the reservation row never
		// existed so nothing else can release it.
		if releaseErr := s.categories.ReleaseStock(ctx, categoryID, qty); releaseErr != nil {
			s.halt(categoryID)
			log.Printf("inventory: category %d halted: failed to undo reservation: %v", categoryID, releaseErr)
		}
		return nil, fmt.Errorf("failed to record reservation: %w", err)
	}

	monitoring.ReservationAccepted(qty)
	return res, nil
}

// Release returns a reservation's stock to the category. Idempotent per
// reservation: only the call that flips the released flag decrements the
// counter, so retries and races between the reconciler and the sweeper are
// safe.
func (s *InventoryService) Release(ctx context.Context, res *models.Reservation) error {
	lock := s.lockFor(res.CategoryID)
	lock.Lock()
	defer lock.Unlock()

	flipped, err := s.reservations.MarkReleased(ctx, res.ID)
	if err != nil {
		return fmt.Errorf("failed to release reservation %s: %w", res.ID, err)
	}

	if !flipped {
		// Already released
		return nil
	}

	if err := s.categories.ReleaseStock(ctx, res.CategoryID, res.Quantity); err != nil {
		// The counters no longer agree with the reservation ledger. Refuse
		// further reservations on this category rather than risk oversell.
		s.halt(res.CategoryID)
		log.Printf("inventory: category %d halted: %v", res.CategoryID, err)
		return err
	}

	res.Released = true
	monitoring.ReservationReleased(res.Quantity)
	return nil
}

// Confirm finalizes a reservation after its transaction is paid. The stock
// was counted at Reserve time, so there is nothing to adjust; the
// reservation simply stays on record as committed.
func (s *InventoryService) Confirm(ctx context.Context, res *models.Reservation) error {
	return nil
}
