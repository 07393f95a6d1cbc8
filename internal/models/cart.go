package models

// Cart represents a user's working set of ticket selections. Cart lines are
// advisory: they never hold stock and are re-validated at checkout.
type Cart struct {
	UserID      int        `json:"user_id"`
	Lines       []CartLine `json:"lines"`
	TotalAmount int        `json:"total_amount"` // in cents
}

// CartLine represents one (category, quantity) selection in a cart
type CartLine struct {
	CategoryID   int    `json:"category_id"`
	EventID      int    `json:"event_id"`
	CategoryName string `json:"category_name"`
	UnitPrice    int    `json:"unit_price"` // in cents, read at list time
	Quantity     int    `json:"quantity"`
	Subtotal     int    `json:"subtotal"` // in cents
}

// IsEmpty returns true if the cart holds no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}
