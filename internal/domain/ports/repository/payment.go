package repository

import (
	"context"
	"time"

	"jobboard-billing/internal/domain/model"
)

type PaymentRepository interface {
	Save(ctx context.Context, qx Tx, p *model.Payment) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Payment, error)
	FindByGatewayOrderID(ctx context.Context, qx Tx, orderID string) (*model.Payment, error)
	FindByGatewayPaymentID(ctx context.Context, qx Tx, paymentID string) (*model.Payment, error)

	// UpdateStatusIfPending atomically finalizes a payment only when its current
	// status is still 'pending'. Returns false when another writer got there
	// first; the caller must re-read and take the idempotent path.
	UpdateStatusIfPending(ctx context.Context, qx Tx, id string, status model.PaymentStatus, gatewayPaymentID, failureReason *string, paidAt *time.Time) (bool, error)

	// LinkSubscription records the subscription granted from this payment.
	// Only succeeds while no subscription is linked yet.
	LinkSubscription(ctx context.Context, qx Tx, paymentID, subscriptionID string) (bool, error)

	ListPendingOlderThan(ctx context.Context, qx Tx, olderThan time.Time, limit int) ([]*model.Payment, error)
	SumByPeriod(ctx context.Context, qx Tx, period string) (float64, error)
}
