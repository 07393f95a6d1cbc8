package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"tickethub/internal/models"
)

// CartService keeps each user's working set of ticket selections in a redis
// hash keyed by user. Cart lines are advisory: every quantity increase is
// checked against stock read at call time, but nothing is reserved until
// checkout. Writes to the same user's cart are serialized by a per-user
// mutex so concurrent requests cannot interleave their read-check-write.
type CartService struct {
	redis      *redis.Client
	categories CategoryStore

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

// NewCartService creates a new cart service
func NewCartService(redisClient *redis.Client, categories CategoryStore) *CartService {
	return &CartService{
		redis:      redisClient,
		categories: categories,
		locks:      make(map[int]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing cart writes for one user
func (s *CartService) lockFor(userID int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}

	return lock
}

func cartKey(userID int) string {
	return fmt.Sprintf("cart:%d", userID)
}

// AddOrIncrement adds qty units of a category to the user's cart, stacking
// on any existing line. The resulting quantity must fit the stock available
// at call time.
func (s *CartService) AddOrIncrement(ctx context.Context, userID, categoryID, qty int) error {
	if qty <= 0 {
		return models.ErrInvalidQuantity
	}

	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.lineQuantity(ctx, userID, categoryID)
	if err != nil {
		return err
	}

	if err := s.checkStock(ctx, categoryID, current+qty); err != nil {
		return err
	}

	// Written as a delta, so even a write that races past the lock (another
	// process, say) stacks instead of clobbering.
	if err := s.redis.HIncrBy(ctx, cartKey(userID), strconv.Itoa(categoryID), int64(qty)).Err(); err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}

	return nil
}

// SetQuantity replaces the quantity of a cart line. Setting zero removes
// the line.
func (s *CartService) SetQuantity(ctx context.Context, userID, categoryID, qty int) error {
	if qty < 0 {
		return models.ErrInvalidQuantity
	}

	if qty == 0 {
		return s.Remove(ctx, userID, categoryID)
	}

	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.lineQuantity(ctx, userID, categoryID)
	if err != nil {
		return err
	}

	// Only an increase needs the advisory stock check
	if qty > current {
		if err := s.checkStock(ctx, categoryID, qty); err != nil {
			return err
		}
	}

	if err := s.redis.HSet(ctx, cartKey(userID), strconv.Itoa(categoryID), qty).Err(); err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}

	return nil
}

// Remove deletes a cart line
func (s *CartService) Remove(ctx context.Context, userID, categoryID int) error {
	if err := s.redis.HDel(ctx, cartKey(userID), strconv.Itoa(categoryID)).Err(); err != nil {
		return fmt.Errorf("failed to remove cart line: %w", err)
	}

	return nil
}

// List returns the user's cart with lines joined against current category
// data, in ascending category order, with subtotals and a recomputed total.
func (s *CartService) List(ctx context.Context, userID int) (*models.Cart, error) {
	fields, err := s.redis.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}

	cart := &models.Cart{UserID: userID}
	for field, value := range fields {
		categoryID, err := strconv.Atoi(field)
		if err != nil {
			continue // Skip corrupt fields rather than failing the whole cart
		}

		qty, err := strconv.Atoi(value)
		if err != nil || qty <= 0 {
			continue
		}

		category, err := s.categories.GetByID(ctx, categoryID)
		if err != nil {
			if err == models.ErrCategoryNotFound {
				continue
			}
			return nil, err
		}

		cart.Lines = append(cart.Lines, models.CartLine{
			CategoryID:   category.ID,
			EventID:      category.EventID,
			CategoryName: category.Name,
			UnitPrice:    category.Price,
			Quantity:     qty,
			Subtotal:     category.Price * qty,
		})
	}

	sort.Slice(cart.Lines, func(i, j int) bool {
		return cart.Lines[i].CategoryID < cart.Lines[j].CategoryID
	})

	for _, line := range cart.Lines {
		cart.TotalAmount += line.Subtotal
	}

	return cart, nil
}

// Clear empties the user's cart
func (s *CartService) Clear(ctx context.Context, userID int) error {
	if err := s.redis.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return nil
}

// lineQuantity reads the current quantity of one cart line, zero if absent
func (s *CartService) lineQuantity(ctx context.Context, userID, categoryID int) (int, error) {
	value, err := s.redis.HGet(ctx, cartKey(userID), strconv.Itoa(categoryID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cart line: %w", err)
	}

	qty, err := strconv.Atoi(value)
	if err != nil {
		return 0, nil
	}

	return qty, nil
}

// checkStock verifies qty fits the category's stock as read right now. This
// is advisory only; checkout re-validates through the inventory ledger.
func (s *CartService) checkStock(ctx context.Context, categoryID, qty int) error {
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		return err
	}

	if qty > category.Available() {
		return models.ErrInsufficientStock
	}

	return nil
}
