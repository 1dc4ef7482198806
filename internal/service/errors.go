package service

import "errors"

// Error taxonomy for the checkout workflow. Handlers map these onto HTTP
// status codes; anything else is treated as an internal error.
var (
	// ErrInvalidInput is the caller's fault and is never retried here.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingIdentifiers means an item carries no resolvable
	// product/variant identifiers.
	ErrMissingIdentifiers = errors.New("missing item identifiers")

	// ErrUnavailableItem means a line priced as unavailable; the order is
	// rejected rather than placed with zero-priced lines.
	ErrUnavailableItem = errors.New("item unavailable")

	// ErrDuplicate is an idempotency hit within the TTL window.
	ErrDuplicate = errors.New("duplicate order attempt")

	// ErrPaymentNotCompleted means the processor order is in neither
	// COMPLETED nor APPROVED state.
	ErrPaymentNotCompleted = errors.New("payment not completed")

	// ErrAmountMismatch means a COMPLETED payment's amount differs from
	// the computed total by more than the tolerance.
	ErrAmountMismatch = errors.New("payment amount mismatch")

	// ErrUpstream wraps catalog/payment/fulfillment API failures and
	// timeouts. Full detail is logged server-side only.
	ErrUpstream = errors.New("upstream failure")
)

// AmountTolerance is the largest acceptable difference between a captured
// payment and the server-computed total, in dollars.
const AmountTolerance = 0.01
