package models

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"time"
)

// TransactionStatus represents the status of a transaction
type TransactionStatus string

const (
	TransactionPending TransactionStatus = "pending"
	TransactionPaid    TransactionStatus = "paid"
	TransactionFailed  TransactionStatus = "failed"
	TransactionExpired TransactionStatus = "expired"
)

// Transaction represents the financial record grouping all tickets purchased
// in one checkout. It transitions out of pending exactly once.
type Transaction struct {
	ID               int               `json:"id" db:"id"`
	UserID           int               `json:"user_id" db:"user_id"`
	Number           string            `json:"number" db:"number"`
	Total            int               `json:"total" db:"total"` // Amount in cents, recomputed server-side
	Status           TransactionStatus `json:"status" db:"status"`
	PaymentReference string            `json:"payment_reference" db:"payment_reference"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at" db:"updated_at"`
}

// Transaction number format: TXN-YYYYMMDD-XXXXXX (e.g., TXN-20240101-123456)
var transactionNumberRegex = regexp.MustCompile(`^TXN-\d{8}-\d{6}$`)

// Validate validates the transaction data
func (t *Transaction) Validate() error {
	if err := t.validateNumber(); err != nil {
		return err
	}

	if err := validateTransactionTotal(t.Total); err != nil {
		return err
	}

	return validateTransactionStatus(t.Status)
}

// validateNumber validates the transaction number
func (t *Transaction) validateNumber() error {
	if t.Number == "" {
		return errors.New("transaction number is required")
	}

	if !transactionNumberRegex.MatchString(t.Number) {
		return errors.New("transaction number format is invalid")
	}

	return nil
}

// validateTransactionTotal validates a transaction total
func validateTransactionTotal(total int) error {
	if total < 0 {
		return errors.New("total cannot be negative")
	}

	return nil
}

// validateTransactionStatus validates a transaction status
func validateTransactionStatus(status TransactionStatus) error {
	switch status {
	case TransactionPending, TransactionPaid, TransactionFailed, TransactionExpired:
		return nil
	default:
		return errors.New("invalid transaction status")
	}
}

// GenerateTransactionNumber generates a unique transaction number
func GenerateTransactionNumber() string {
	now := time.Now()
	dateStr := now.Format("20060102")

	// Generate a 6-digit random number using crypto/rand for better uniqueness
	max := big.NewInt(1000000)
	randomNum, err := rand.Int(rand.Reader, max)
	if err != nil {
		// Fallback to timestamp-based generation if crypto/rand fails
		timestamp := now.UnixNano()
		return fmt.Sprintf("TXN-%s-%06d", dateStr, timestamp%1000000)
	}

	return fmt.Sprintf("TXN-%s-%06d", dateStr, randomNum.Int64())
}

// IsPending returns true if the transaction is awaiting a payment outcome
func (t *Transaction) IsPending() bool {
	return t.Status == TransactionPending
}

// IsTerminal returns true if the transaction has reached a final status
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionPaid || t.Status == TransactionFailed || t.Status == TransactionExpired
}

// IsOverdue returns true if a pending transaction has outlived its allowed
// lifetime and should be swept onto the failure path.
func (t *Transaction) IsOverdue(now time.Time, ttl time.Duration) bool {
	if t.Status != TransactionPending {
		return false
	}

	return now.Sub(t.CreatedAt) > ttl
}

// TotalInCurrency returns the total in the main currency as a float
func (t *Transaction) TotalInCurrency() float64 {
	return float64(t.Total) / 100.0
}
