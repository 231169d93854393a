package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrInvalidExecContext = errors.New("invalid query execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Payment lifecycle errors
	ErrSignatureInvalid     = errors.New("signature verification failed")
	ErrConflictingState     = errors.New("conflicting terminal state on payment")
	ErrAmountMismatch       = errors.New("payment amount does not match plan price")
	ErrAmountPrecision      = errors.New("amount cannot be represented in minor units")
	ErrGatewayUnavailable   = errors.New("payment gateway request failed")
	ErrInvoiceGeneration    = errors.New("invoice generation failed")
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrNotSubscriptionOwner = errors.New("subscription belongs to another user")
)
