package models

import "time"

// Reservation records an atomic increment of a category's sold counter. It
// is the sole mechanism preventing oversell: stock reserved here is counted
// immediately and stays counted unless the reservation is released. Release
// is idempotent per reservation id.
type Reservation struct {
	ID            string    `json:"id" db:"id"` // uuid
	CategoryID    int       `json:"category_id" db:"category_id"`
	Quantity      int       `json:"quantity" db:"quantity"`
	TransactionID *int      `json:"transaction_id,omitempty" db:"transaction_id"`
	Released      bool      `json:"released" db:"released"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
