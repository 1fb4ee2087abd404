package models

import "errors"

// Business-rule failures. Every engine detects these before any write and
// the API layer maps them to transport responses with errors.Is.
var (
	// ErrNotFound means a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the caller's identity does not own the target.
	ErrForbidden = errors.New("caller does not own this record")

	// ErrOwnershipMismatch means a farmer touched a batch or offering
	// belonging to another farm.
	ErrOwnershipMismatch = errors.New("batch belongs to another farm")

	// ErrInsufficientStock means a batch holds less than the requested
	// quantity at reservation time.
	ErrInsufficientStock = errors.New("insufficient inventory for the selected batch")

	// ErrInvalidDate means a delivery or expiry date lies in the past.
	ErrInvalidDate = errors.New("date cannot be in the past")

	// ErrAlreadyShipped means an order already left pending state.
	ErrAlreadyShipped = errors.New("order is already marked as shipped")

	// ErrNotActive means a subscription is not eligible for fulfillment.
	ErrNotActive = errors.New("only active subscriptions can be fulfilled")

	// ErrProductMismatch means the chosen batch stocks a different product
	// than the subscription calls for.
	ErrProductMismatch = errors.New("batch does not match the subscription product")

	// ErrMissingQuote means a subscription cannot be quoted without a price.
	ErrMissingQuote = errors.New("provide a price before sending a quote")

	// ErrInvalidTransition means the requested subscription status change is
	// not allowed from the current state.
	ErrInvalidTransition = errors.New("subscription status change not allowed")

	// ErrConflict surfaces unique-key or referential-integrity violations.
	ErrConflict = errors.New("record conflicts with existing rows")

	// ErrInvalidInput covers malformed quantities and payload values the
	// transport layer could not reject up front.
	ErrInvalidInput = errors.New("invalid input")
)
