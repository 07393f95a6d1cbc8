package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"tickethub/internal/models"
	"tickethub/internal/repositories"
)

// Mock implementations for testing

type mockCategoryStore struct {
	mu            sync.Mutex
	categories    map[int]*models.TicketCategory
	shouldFailOps map[string]bool
}

func newMockCategoryStore() *mockCategoryStore {
	return &mockCategoryStore{
		categories:    make(map[int]*models.TicketCategory),
		shouldFailOps: make(map[string]bool),
	}
}

func (m *mockCategoryStore) addCategory(category *models.TicketCategory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[category.ID] = category
}

func (m *mockCategoryStore) sold(id int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.categories[id].Sold
}

func (m *mockCategoryStore) GetByID(ctx context.Context, id int) (*models.TicketCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailOps["GetByID"] {
		return nil, errors.New("mock error")
	}

	category, exists := m.categories[id]
	if !exists {
		return nil, models.ErrCategoryNotFound
	}

	copied := *category
	return &copied, nil
}

func (m *mockCategoryStore) ReserveStock(ctx context.Context, id, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailOps["ReserveStock"] {
		return errors.New("mock error")
	}

	category, exists := m.categories[id]
	if !exists {
		return models.ErrCategoryNotFound
	}

	if category.Sold+qty > category.Quota {
		return models.ErrInsufficientStock
	}

	category.Sold += qty
	return nil
}

func (m *mockCategoryStore) ReleaseStock(ctx context.Context, id, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailOps["ReleaseStock"] {
		return errors.New("mock error")
	}

	category, exists := m.categories[id]
	if !exists {
		return models.ErrCategoryNotFound
	}

	if category.Sold < qty {
		return fmt.Errorf("release of %d would drive sold counter negative", qty)
	}

	category.Sold -= qty
	return nil
}

type mockReservationStore struct {
	mu            sync.Mutex
	reservations  map[string]*models.Reservation
	shouldFailOps map[string]bool
}

func newMockReservationStore() *mockReservationStore {
	return &mockReservationStore{
		reservations:  make(map[string]*models.Reservation),
		shouldFailOps: make(map[string]bool),
	}
}

func (m *mockReservationStore) Create(ctx context.Context, res *models.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailOps["Create"] {
		return errors.New("mock error")
	}

	copied := *res
	m.reservations[res.ID] = &copied
	return nil
}

func (m *mockReservationStore) MarkReleased(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailOps["MarkReleased"] {
		return false, errors.New("mock error")
	}

	res, exists := m.reservations[id]
	if !exists {
		return false, errors.New("reservation not found")
	}

	if res.Released {
		return false, nil
	}

	res.Released = true
	return true, nil
}

func (m *mockReservationStore) GetOpenByTransaction(ctx context.Context, transactionID int) ([]*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailOps["GetOpenByTransaction"] {
		return nil, errors.New("mock error")
	}

	var open []*models.Reservation
	for _, res := range m.reservations {
		if res.TransactionID != nil && *res.TransactionID == transactionID && !res.Released {
			copied := *res
			open = append(open, &copied)
		}
	}

	sort.Slice(open, func(i, j int) bool {
		return open[i].CategoryID < open[j].CategoryID
	})

	return open, nil
}

func (m *mockReservationStore) linkToTransaction(ids []string, transactionID int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		if res, exists := m.reservations[id]; exists {
			txnID := transactionID
			res.TransactionID = &txnID
		}
	}
}

type mockTransactionStore struct {
	mu            sync.Mutex
	transactions  map[int]*models.Transaction
	ticketsByTxn  map[int][]*models.Ticket
	reservations  *mockReservationStore
	tickets       *mockTicketStore
	nextID        int
	shouldFailOps map[string]bool
}

func newMockTransactionStore(reservations *mockReservationStore, tickets *mockTicketStore) *mockTransactionStore {
	return &mockTransactionStore{
		transactions:  make(map[int]*models.Transaction),
		ticketsByTxn:  make(map[int][]*models.Ticket),
		reservations:  reservations,
		tickets:       tickets,
		nextID:        1,
		shouldFailOps: make(map[string]bool),
	}
}

func (m *mockTransactionStore) CreateWithTickets(ctx context.Context, txn *models.Transaction, tickets []*models.Ticket, reservationIDs []string) error {
	m.mu.Lock()

	if m.shouldFailOps["CreateWithTickets"] {
		m.mu.Unlock()
		return errors.New("mock error")
	}

	txn.ID = m.nextID
	txn.CreatedAt = time.Now()
	txn.UpdatedAt = txn.CreatedAt
	m.nextID++

	copied := *txn
	m.transactions[txn.ID] = &copied

	for _, ticket := range tickets {
		ticket.TransactionID = txn.ID
		t := *ticket
		m.ticketsByTxn[txn.ID] = append(m.ticketsByTxn[txn.ID], &t)
		if m.tickets != nil {
			m.tickets.addTicket(&t, time.Time{}, txn.UserID)
		}
	}
	m.mu.Unlock()

	if m.reservations != nil {
		m.reservations.linkToTransaction(reservationIDs, txn.ID)
	}

	return nil
}

func (m *mockTransactionStore) SetPaymentReference(ctx context.Context, id int, reference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailOps["SetPaymentReference"] {
		return errors.New("mock error")
	}

	txn, exists := m.transactions[id]
	if !exists {
		return models.ErrTransactionNotFound
	}

	txn.PaymentReference = reference
	return nil
}

func (m *mockTransactionStore) FinalizeStatus(ctx context.Context, id int, status models.TransactionStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailOps["FinalizeStatus"] {
		return false, errors.New("mock error")
	}

	txn, exists := m.transactions[id]
	if !exists {
		return false, models.ErrTransactionNotFound
	}

	if txn.Status != models.TransactionPending {
		return false, nil
	}

	txn.Status = status
	txn.UpdatedAt = time.Now()
	return true, nil
}

func (m *mockTransactionStore) GetByID(ctx context.Context, id int) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn, exists := m.transactions[id]
	if !exists {
		return nil, models.ErrTransactionNotFound
	}

	copied := *txn
	return &copied, nil
}

func (m *mockTransactionStore) GetByPaymentReference(ctx context.Context, reference string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, txn := range m.transactions {
		if txn.PaymentReference == reference {
			copied := *txn
			return &copied, nil
		}
	}

	return nil, models.ErrTransactionNotFound
}

func (m *mockTransactionStore) GetExpiredPending(ctx context.Context, cutoff time.Time) ([]*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stale []*models.Transaction
	for _, txn := range m.transactions {
		if txn.Status == models.TransactionPending && txn.CreatedAt.Before(cutoff) {
			copied := *txn
			stale = append(stale, &copied)
		}
	}

	return stale, nil
}

func (m *mockTransactionStore) GetFailedWithOpenReservations(ctx context.Context) ([]*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailOps["GetFailedWithOpenReservations"] {
		return nil, errors.New("mock error")
	}

	var stranded []*models.Transaction
	for _, txn := range m.transactions {
		if txn.Status != models.TransactionFailed && txn.Status != models.TransactionExpired {
			continue
		}

		open, err := m.reservations.GetOpenByTransaction(ctx, txn.ID)
		if err != nil {
			return nil, err
		}
		if len(open) > 0 {
			copied := *txn
			stranded = append(stranded, &copied)
		}
	}

	return stranded, nil
}

func (m *mockTransactionStore) setCreatedAt(id int, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[id].CreatedAt = at
}

type ticketRecord struct {
	ticket     *models.Ticket
	validUntil time.Time
	ownerID    int
}

type mockTicketStore struct {
	mu            sync.Mutex
	tickets       map[string]*ticketRecord
	shouldFailOps map[string]bool
}

func newMockTicketStore() *mockTicketStore {
	return &mockTicketStore{
		tickets:       make(map[string]*ticketRecord),
		shouldFailOps: make(map[string]bool),
	}
}

func (m *mockTicketStore) addTicket(ticket *models.Ticket, validUntil time.Time, ownerID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[ticket.Code] = &ticketRecord{ticket: ticket, validUntil: validUntil, ownerID: ownerID}
}

func (m *mockTicketStore) storedStatus(code string) models.TicketStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tickets[code].ticket.Status
}

func (m *mockTicketStore) GetByCode(ctx context.Context, code string) (*repositories.TicketWithValidity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailOps["GetByCode"] {
		return nil, errors.New("mock error")
	}

	record, exists := m.tickets[code]
	if !exists {
		return nil, models.ErrTicketNotFound
	}

	copied := *record.ticket
	return &repositories.TicketWithValidity{Ticket: &copied, ValidUntil: record.validUntil}, nil
}

func (m *mockTicketStore) MarkUsed(ctx context.Context, code string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailOps["MarkUsed"] {
		return false, errors.New("mock error")
	}

	record, exists := m.tickets[code]
	if !exists {
		return false, nil
	}

	if record.ticket.Status != models.TicketActive {
		return false, nil
	}

	usedAt := at
	record.ticket.Status = models.TicketUsed
	record.ticket.UsedAt = &usedAt
	return true, nil
}

func (m *mockTicketStore) SetTag(ctx context.Context, userID int, code, tag string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailOps["SetTag"] {
		return false, errors.New("mock error")
	}

	record, exists := m.tickets[code]
	if !exists || record.ownerID != userID {
		return false, nil
	}

	record.ticket.Tag = tag
	return true, nil
}

func (m *mockTicketStore) ListByUser(ctx context.Context, userID int) ([]*repositories.TicketWithValidity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailOps["ListByUser"] {
		return nil, errors.New("mock error")
	}

	var result []*repositories.TicketWithValidity
	for _, record := range m.tickets {
		if record.ownerID != userID {
			continue
		}
		copied := *record.ticket
		result = append(result, &repositories.TicketWithValidity{Ticket: &copied, ValidUntil: record.validUntil})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Code < result[j].Code
	})

	return result, nil
}

func (m *mockTicketStore) UpdateStatusByTransaction(ctx context.Context, transactionID int, from, to models.TicketStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailOps["UpdateStatusByTransaction"] {
		return errors.New("mock error")
	}

	for _, record := range m.tickets {
		if record.ticket.TransactionID == transactionID && record.ticket.Status == from {
			record.ticket.Status = to
		}
	}

	return nil
}

type mockCartStore struct {
	mu            sync.Mutex
	carts         map[int]*models.Cart
	cleared       map[int]bool
	shouldFailOps map[string]bool
}

func newMockCartStore() *mockCartStore {
	return &mockCartStore{
		carts:         make(map[int]*models.Cart),
		cleared:       make(map[int]bool),
		shouldFailOps: make(map[string]bool),
	}
}

func (m *mockCartStore) setCart(userID int, lines []models.CartLine) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart := &models.Cart{UserID: userID, Lines: lines}
	for _, line := range lines {
		cart.TotalAmount += line.Subtotal
	}
	m.carts[userID] = cart
}

func (m *mockCartStore) List(ctx context.Context, userID int) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailOps["List"] {
		return nil, errors.New("mock error")
	}

	cart, exists := m.carts[userID]
	if !exists {
		return &models.Cart{UserID: userID}, nil
	}

	return cart, nil
}

func (m *mockCartStore) Clear(ctx context.Context, userID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailOps["Clear"] {
		return errors.New("mock error")
	}

	delete(m.carts, userID)
	m.cleared[userID] = true
	return nil
}

type mockGateway struct {
	mu            sync.Mutex
	sessions      []*SessionRequest
	nextReference int
	shouldFail    bool
}

func newMockPaymentGateway() *mockGateway {
	return &mockGateway{nextReference: 1}
}

func (m *mockGateway) CreateSession(ctx context.Context, req *SessionRequest) (*PaymentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFail {
		return nil, fmt.Errorf("%w: mock gateway down", models.ErrGatewayUnavailable)
	}

	m.sessions = append(m.sessions, req)
	reference := fmt.Sprintf("ref_%d", m.nextReference)
	m.nextReference++

	return &PaymentSession{
		Reference:  reference,
		PaymentURL: "https://pay.example.com/" + reference,
	}, nil
}
