package services

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickethub/internal/models"
)

func newTestInventory(categories ...*models.TicketCategory) (*InventoryService, *mockCategoryStore, *mockReservationStore) {
	categoryStore := newMockCategoryStore()
	for _, c := range categories {
		categoryStore.addCategory(c)
	}
	reservationStore := newMockReservationStore()
	return NewInventoryService(categoryStore, reservationStore), categoryStore, reservationStore
}

func TestInventoryReserve(t *testing.T) {
	tests := []struct {
		name        string
		quota       int
		sold        int
		qty         int
		expectedErr error
	}{
		{name: "reserves available stock", quota: 10, sold: 0, qty: 3},
		{name: "reserves exactly remaining stock", quota: 10, sold: 7, qty: 3},
		{name: "rejects overdraw", quota: 10, sold: 8, qty: 3, expectedErr: models.ErrInsufficientStock},
		{name: "rejects sold out category", quota: 5, sold: 5, qty: 1, expectedErr: models.ErrInsufficientStock},
		{name: "rejects zero quantity", quota: 10, sold: 0, qty: 0, expectedErr: models.ErrInvalidQuantity},
		{name: "rejects negative quantity", quota: 10, sold: 0, qty: -2, expectedErr: models.ErrInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, categoryStore, _ := newTestInventory(&models.TicketCategory{
				ID: 1, EventID: 1, Name: "General", Price: 5000, Quota: tt.quota, Sold: tt.sold,
			})

			res, err := service.Reserve(context.Background(), 1, tt.qty)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, res)
				assert.Equal(t, tt.sold, categoryStore.sold(1), "sold counter must not move on rejection")
				return
			}

			require.NoError(t, err)
			require.NotNil(t, res)
			assert.NotEmpty(t, res.ID)
			assert.Equal(t, 1, res.CategoryID)
			assert.Equal(t, tt.qty, res.Quantity)
			assert.Equal(t, tt.sold+tt.qty, categoryStore.sold(1))
		})
	}
}

func TestInventoryReserveUnknownCategory(t *testing.T) {
	service, _, _ := newTestInventory()

	_, err := service.Reserve(context.Background(), 42, 1)
	assert.ErrorIs(t, err, models.ErrCategoryNotFound)
}

func TestInventoryReserveUndoesStockWhenPersistFails(t *testing.T) {
	service, categoryStore, reservationStore := newTestInventory(&models.TicketCategory{
		ID: 1, EventID: 1, Name: "General", Price: 5000, Quota: 10,
	})
	reservationStore.shouldFailOps["Create"] = true

	_, err := service.Reserve(context.Background(), 1, 4)

	require.Error(t, err)
	assert.Equal(t, 0, categoryStore.sold(1), "stock must return when the reservation row cannot be written")
}

// Concurrent reservations against one category must never jointly exceed the
// quota: with quota Q and N single-unit attempts, exactly Q succeed.
func TestInventoryConcurrentReserveNeverOversells(t *testing.T) {
	const quota = 25
	const attempts = 100

	service, categoryStore, _ := newTestInventory(&models.TicketCategory{
		ID: 1, EventID: 1, Name: "General", Price: 5000, Quota: quota,
	})

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	rejected := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := service.Reserve(context.Background(), 1, 1)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case err == models.ErrInsufficientStock:
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, quota, succeeded)
	assert.Equal(t, attempts-quota, rejected)
	assert.Equal(t, quota, categoryStore.sold(1))
}

// Two concurrent multi-unit reservations that would jointly exceed remaining
// stock: exactly one succeeds and one is rejected.
func TestInventoryConcurrentReserveOneWinsOneLoses(t *testing.T) {
	service, categoryStore, _ := newTestInventory(&models.TicketCategory{
		ID: 1, EventID: 1, Name: "General", Price: 5000, Quota: 10, Sold: 5,
	})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.Reserve(context.Background(), 1, 4)
		}(i)
	}
	wg.Wait()

	successes := 0
	rejections := 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case err == models.ErrInsufficientStock:
			rejections++
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, rejections)
	assert.Equal(t, 9, categoryStore.sold(1))
}

func TestInventoryReleaseReturnsStock(t *testing.T) {
	service, categoryStore, _ := newTestInventory(&models.TicketCategory{
		ID: 1, EventID: 1, Name: "General", Price: 5000, Quota: 10,
	})

	res, err := service.Reserve(context.Background(), 1, 4)
	require.NoError(t, err)
	require.Equal(t, 4, categoryStore.sold(1))

	require.NoError(t, service.Release(context.Background(), res))
	assert.Equal(t, 0, categoryStore.sold(1))
}

// Releasing the same reservation twice must decrement the counter exactly
// once; the second call is a silent no-op.
func TestInventoryReleaseIsIdempotent(t *testing.T) {
	service, categoryStore, _ := newTestInventory(&models.TicketCategory{
		ID: 1, EventID: 1, Name: "General", Price: 5000, Quota: 10,
	})

	res, err := service.Reserve(context.Background(), 1, 4)
	require.NoError(t, err)

	require.NoError(t, service.Release(context.Background(), res))
	require.NoError(t, service.Release(context.Background(), res))

	assert.Equal(t, 0, categoryStore.sold(1))
}

func TestInventoryConcurrentReleaseDecrementsOnce(t *testing.T) {
	service, categoryStore, _ := newTestInventory(&models.TicketCategory{
		ID: 1, EventID: 1, Name: "General", Price: 5000, Quota: 10,
	})

	res, err := service.Reserve(context.Background(), 1, 4)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := service.Release(context.Background(), res); err != nil {
				t.Errorf("release failed: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, categoryStore.sold(1))
}

// A release whose counter write fails leaves the ledger inconsistent; the
// category must refuse further reservations afterwards.
func TestInventoryHaltsCategoryOnReleaseFailure(t *testing.T) {
	service, categoryStore, _ := newTestInventory(&models.TicketCategory{
		ID: 1, EventID: 1, Name: "General", Price: 5000, Quota: 10,
	})

	res, err := service.Reserve(context.Background(), 1, 2)
	require.NoError(t, err)

	categoryStore.shouldFailOps["ReleaseStock"] = true
	require.Error(t, service.Release(context.Background(), res))

	categoryStore.shouldFailOps["ReleaseStock"] = false
	_, err = service.Reserve(context.Background(), 1, 1)
	assert.ErrorIs(t, err, models.ErrCategoryHalted)
}

// rejectedReservations reads the rejected-reservation counter from the
// default prometheus registry.
func rejectedReservations(t *testing.T) float64 {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != "inventory_reservations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "result" && label.GetValue() == "rejected" {
					return m.GetCounter().GetValue()
				}
			}
		}
	}

	return 0
}

// Only oversell attempts count as rejections. A missing category or a store
// failure is an error, not a rejected reservation.
func TestInventoryRejectionMetricCountsOnlyOversell(t *testing.T) {
	service, categoryStore, _ := newTestInventory(&models.TicketCategory{
		ID: 1, EventID: 1, Name: "General", Price: 5000, Quota: 2, Sold: 2,
	})

	before := rejectedReservations(t)

	_, err := service.Reserve(context.Background(), 42, 1)
	assert.ErrorIs(t, err, models.ErrCategoryNotFound)
	assert.Equal(t, before, rejectedReservations(t), "missing category must not count as a rejection")

	categoryStore.shouldFailOps["ReserveStock"] = true
	_, err = service.Reserve(context.Background(), 1, 1)
	require.Error(t, err)
	assert.Equal(t, before, rejectedReservations(t), "store failure must not count as a rejection")
	categoryStore.shouldFailOps["ReserveStock"] = false

	_, err = service.Reserve(context.Background(), 1, 1)
	assert.ErrorIs(t, err, models.ErrInsufficientStock)
	assert.Equal(t, before+1, rejectedReservations(t))
}
