package domain

import "errors"

// Domain errors returned by the ledger and the services built on top of it.
// Business-rule failures are ordinary return values; only ErrCorruptState
// signals a defect inside the ledger itself.
var (
	// ErrUnknownAccount means the referenced account id (or account number)
	// does not exist.
	ErrUnknownAccount = errors.New("unknown account")

	// ErrInvalidAmount means the amount is below the operation minimum or
	// not a multiple of the required step.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientFunds means the operation would leave the balance
	// negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSameAccountTransfer means the transfer source equals the
	// destination.
	ErrSameAccountTransfer = errors.New("cannot transfer to the same account")

	// ErrInvalidCredential means credential verification failed during
	// login or rotation.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrWeakSecret means a new credential failed the secret policy.
	ErrWeakSecret = errors.New("weak secret")

	// ErrPersistenceFailure means the durable write failed after an
	// in-memory mutation; the mutation has been reverted.
	ErrPersistenceFailure = errors.New("persistence failure")

	// ErrCorruptState means an invariant was violated inside the ledger
	// primitive. Unreachable when callers validate correctly.
	ErrCorruptState = errors.New("corrupt ledger state")

	// ErrNoSnapshot means the snapshot store holds no persisted state yet.
	ErrNoSnapshot = errors.New("no snapshot")

	// ErrNotAuthenticated means an operation requires an active session.
	ErrNotAuthenticated = errors.New("not authenticated")
)
