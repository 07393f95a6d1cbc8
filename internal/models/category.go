package models

import (
	"errors"
	"strings"
	"time"
)

// TicketCategory represents a priced admission tier for an event with a
// fixed quota. The invariant 0 <= sold <= quota holds at all times; the
// sold counter only ever moves through the inventory ledger.
type TicketCategory struct {
	ID        int        `json:"id" db:"id"`
	EventID   int        `json:"event_id" db:"event_id"`
	Name      string     `json:"name" db:"name"`
	Price     int        `json:"price" db:"price"` // Price in cents
	Quota     int        `json:"quota" db:"quota"` // Immutable after creation
	Sold      int        `json:"sold" db:"sold"`
	ValidFrom *time.Time `json:"valid_from,omitempty" db:"valid_from"`
	ValidTo   *time.Time `json:"valid_to,omitempty" db:"valid_to"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Validate validates the ticket category data.
func (c *TicketCategory) Validate() error {
	if err := validateCategoryName(c.Name); err != nil {
		return err
	}

	if err := validateCategoryPrice(c.Price); err != nil {
		return err
	}

	if err := validateCategoryQuota(c.Quota); err != nil {
		return err
	}

	if err := c.validateSoldCounter(); err != nil {
		return err
	}

	return c.validateWindow()
}

// validateSoldCounter checks the one invariant the engine exists to protect.
func (c *TicketCategory) validateSoldCounter() error {
	if c.Sold < 0 {
		return errors.New("sold counter cannot be negative")
	}

	if c.Sold > c.Quota {
		return errors.New("sold counter cannot exceed quota")
	}

	return nil
}

// validateWindow validates the optional validity window.
func (c *TicketCategory) validateWindow() error {
	if c.ValidFrom != nil && c.ValidTo != nil && c.ValidFrom.After(*c.ValidTo) {
		return errors.New("valid_from must be before valid_to")
	}

	return nil
}

// validateCategoryName validates a ticket category name.
func validateCategoryName(name string) error {
	if name == "" {
		return errors.New("ticket category name is required")
	}

	if len(name) > 100 {
		return errors.New("ticket category name must be less than 100 characters")
	}

	if strings.TrimSpace(name) == "" {
		return errors.New("ticket category name cannot be only whitespace")
	}

	return nil
}

// validateCategoryPrice validates a ticket category price.
func validateCategoryPrice(price int) error {
	if price < 0 {
		return errors.New("ticket price cannot be negative")
	}

	return nil
}

// validateCategoryQuota validates a ticket category quota.
func validateCategoryQuota(quota int) error {
	if quota <= 0 {
		return errors.New("ticket quota must be greater than 0")
	}

	return nil
}

// Available returns the number of units still reservable.
func (c *TicketCategory) Available() int {
	available := c.Quota - c.Sold
	if available < 0 {
		return 0
	}
	return available
}

// IsSoldOut returns true if no stock remains.
func (c *TicketCategory) IsSoldOut() bool {
	return c.Sold >= c.Quota
}

// ValidUntil returns the end of the validity window for tickets of this
// category, falling back to the event's end when no explicit window is set.
func (c *TicketCategory) ValidUntil(eventEnd time.Time) time.Time {
	if c.ValidTo != nil {
		return *c.ValidTo
	}
	return eventEnd
}

// PriceInCurrency returns the price in the main currency as a float.
func (c *TicketCategory) PriceInCurrency() float64 {
	return float64(c.Price) / 100.0
}
