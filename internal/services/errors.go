package services

import "errors"

// Service-level error taxonomy. Handlers map these onto HTTP statuses;
// everything else is treated as an internal error.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrCounselorNotFound = errors.New("counselor not found")
	ErrOrderNotFound     = errors.New("transaction not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnauthorized      = errors.New("unauthorized")

	// ErrTransactionAborted is returned when an atomic unit kept losing
	// version races and ran out of retry attempts.
	ErrTransactionAborted = errors.New("transaction aborted after retries")

	// ErrAlreadyApplied means the funds movement for the given
	// idempotency key was committed by an earlier attempt. Callers
	// driving redeliveries treat it as success.
	ErrAlreadyApplied = errors.New("operation already applied")

	// ErrAggregateNotFound is the reconciler's failure when the wallet
	// or counselor aggregate is missing during the funds-movement step.
	// The event stays retryable: the funds-moved marker is not set.
	ErrAggregateNotFound = errors.New("aggregate not found")

	// ErrUpstreamInconsistency flags the partial-failure window where
	// funds moved but the transaction marker could not be written.
	// Redelivering the event re-drives the marker write; the entry
	// idempotency keys keep the movement from repeating.
	ErrUpstreamInconsistency = errors.New("status and ledger state diverged")
)
