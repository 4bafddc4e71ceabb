package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound  = errors.New("not_found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	ErrInvalid   = errors.New("invalid")
	// ErrUnprocessable is used for semantic validation failures (HTTP 422)
	ErrUnprocessable = errors.New("unprocessable")
	// ErrInsufficientStock indicates a movement that would drive product stock negative
	ErrInsufficientStock = errors.New("insufficient_stock")
	// ErrUnbalancedLegs indicates a posting whose debit total differs from its credit total
	ErrUnbalancedLegs = errors.New("unbalanced_legs")
	// ErrCancelled indicates an operation against an already cancelled voucher
	ErrCancelled = errors.New("cancelled")
)
