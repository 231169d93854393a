package repository

import (
	"context"
	"time"

	"jobboard-billing/internal/domain/model"
)

// SubscriptionRepository is the port for user entitlements.
type SubscriptionRepository interface {
	Save(ctx context.Context, qx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Subscription, error)
	FindActiveByUser(ctx context.Context, qx Tx, userID string) (*model.Subscription, error)
	ListByUser(ctx context.Context, qx Tx, userID string) ([]*model.Subscription, error)

	// CancelActiveByUser marks every active subscription for the user as
	// cancelled and returns the ids it touched. Used for supersession before
	// a new grant.
	CancelActiveByUser(ctx context.Context, qx Tx, userID string) ([]string, error)

	// MarkExpired finishes active subscriptions whose end date has passed.
	MarkExpired(ctx context.Context, qx Tx, asOf time.Time) (int, error)

	// CountActiveByPlan returns plan id -> number of active subscriptions.
	CountActiveByPlan(ctx context.Context, qx Tx) (map[string]int, error)
}
