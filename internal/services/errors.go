package services

import "errors"

// Service error taxonomy. Handlers map these onto HTTP statuses; everything
// else bubbles up as an internal error.
var (
	// ErrNotFound indicates the referenced entity does not exist or is outside
	// the actor's school scope.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation indicates malformed or business-rule-violating input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates a uniqueness violation (duplicate active structure,
	// duplicate ledger for a student/year).
	ErrConflict = errors.New("resource already exists")

	// ErrImmutableStructure indicates an attempt to modify a fee structure that
	// already has payments recorded against it.
	ErrImmutableStructure = errors.New("fee structure has recorded payments and can no longer be modified")

	// ErrInvalidState indicates the operation is not legal for the entity's
	// current state (waiving a paid month, cancelling a cancelled transaction).
	ErrInvalidState = errors.New("operation not allowed in current state")

	// ErrOverpayment indicates a collection amount exceeding the outstanding
	// balance of the targeted obligation.
	ErrOverpayment = errors.New("amount exceeds outstanding balance")

	// ErrOrdering indicates an out-of-order cancellation: a newer completed
	// payment exists on the same obligation.
	ErrOrdering = errors.New("a more recent payment exists for this obligation")

	// ErrConcurrentModification indicates the ledger kept changing underneath
	// the operation after all retries were exhausted.
	ErrConcurrentModification = errors.New("record was modified concurrently, please retry")

	// ErrUnauthorized indicates missing or failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidPassword indicates a failed credential check on login.
	ErrInvalidPassword = errors.New("invalid email or password")
)

// Actor identifies the authenticated user performing an operation, as decoded
// from the JWT. SchoolID scopes every query and mutation to one tenant.
type Actor struct {
	ID       uint
	Role     string
	SchoolID uint
}

// IsAdmin returns true for admin actors
func (a Actor) IsAdmin() bool {
	return a.Role == "admin"
}
