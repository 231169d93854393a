package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // checkout created; awaiting gateway outcome
	PaymentStatusSuccess   PaymentStatus = "success"   // gateway confirmed capture
	PaymentStatusFailed    PaymentStatus = "failed"    // gateway reported failure
	PaymentStatusRefunded  PaymentStatus = "refunded"  // captured and later refunded
	PaymentStatusCancelled PaymentStatus = "cancelled" // abandoned before any gateway outcome
)

// IsTerminal reports whether no further outcome event may change the status.
// Success and failed are both terminal with respect to outcome events;
// success may still move to refunded through the explicit refund path.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed ||
		s == PaymentStatusRefunded || s == PaymentStatusCancelled
}

// CanTransition reports whether moving from s to next is a legal payment
// state change. Success and failed must never overwrite each other.
func (s PaymentStatus) CanTransition(next PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return next == PaymentStatusSuccess || next == PaymentStatusFailed || next == PaymentStatusCancelled
	case PaymentStatusSuccess:
		return next == PaymentStatusRefunded
	default:
		return false
	}
}

// Payment records one checkout attempt. Rows are never deleted; they are the
// financial audit trail and the source of truth for "was this already finalized".
type Payment struct {
	ID               string // UUID
	UserID           string // UUID
	PlanID           string // UUID of the plan being purchased
	TransactionID    string // locally generated, human-traceable (TXN-<ulid>)
	GatewayOrderID   *string
	GatewayPaymentID *string
	Amount           float64 // major units; gateway converts to minor units
	Currency         string
	Status           PaymentStatus
	FailureReason    *string
	PaidAt           *time.Time // set when status becomes success
	SubscriptionID   *string    // set once entitlement is granted from this payment
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
