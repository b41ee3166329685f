package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// Booking errors
	ErrDateUnavailable    = errors.New("requested dates are not available")
	ErrDurationOutOfRange = errors.New("duration must be between 1 and 5 days")
	ErrStartDateTooSoon   = errors.New("start date must be at least tomorrow")
	ErrRequestInProgress  = errors.New("project already has a request in progress")

	// Lifecycle errors
	ErrConflict      = errors.New("state changed, please retry")
	ErrTerminalState = errors.New("request is in a terminal state")

	// Payment errors
	ErrNoPaymentDue            = errors.New("no payment is due for this request")
	ErrSessionLocked           = errors.New("payment session is being created by another caller")
	ErrTxNotFound              = errors.New("no matching transaction found")
	ErrVerificationUnavailable = errors.New("verification temporarily unavailable")

	// Infrastructure errors
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
)
