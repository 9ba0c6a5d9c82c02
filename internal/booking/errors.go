package booking

import (
	"errors"
	"fmt"
)

// Error codes surfaced to clients alongside a human-readable message.
const (
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeNotFound           = "NOT_FOUND"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeFailedPrecondition = "FAILED_PRECONDITION"
	CodeAlreadyExists      = "ALREADY_EXISTS"
	CodeInternal           = "INTERNAL"
)

var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("booking not found")
	ErrNotOwner            = errors.New("actor does not own this booking")
	ErrPaymentRequired     = errors.New("payment required before confirmation")
	ErrDateConflict        = errors.New("supplier already has an active booking on this date")
	ErrSupplierIneligible  = errors.New("supplier cannot accept bookings")
	ErrRateLimited         = errors.New("too many requests")
	ErrIdempotencyMismatch = errors.New("idempotency key reused with a different payload")
)

// TransitionError carries the state-machine rejection reason. It maps to
// FAILED_PRECONDITION and is terminal for the request.
type TransitionError struct {
	From, To Status
	Reason   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition %s -> %s: %s", e.From, e.To, e.Reason)
}

// RateLimitError carries the machine-readable retry hint from the oracle.
type RateLimitError struct {
	Window     string
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited on %s window, retry after %ds", e.Window, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
