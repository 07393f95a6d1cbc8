package models

import "errors"

// Common errors used throughout the engine. Client errors are expected
// outcomes surfaced to callers; they are never logged as failures.
var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInsufficientStock   = errors.New("insufficient ticket stock")
	ErrInvalidQuantity     = errors.New("quantity must be a positive integer")
	ErrEventNotFound       = errors.New("event not found")
	ErrCategoryNotFound    = errors.New("ticket category not found")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrWrongEvent          = errors.New("ticket is not valid for this event")
	ErrAlreadyUsed         = errors.New("ticket has already been used")
	ErrNotActive           = errors.New("ticket is not active")
	ErrExpired             = errors.New("ticket has expired")
	ErrGatewayUnavailable  = errors.New("payment gateway unavailable")
	ErrCategoryHalted      = errors.New("ticket category halted after invariant violation")
)
