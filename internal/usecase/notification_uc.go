// File: internal/usecase/notification_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"jobboard-billing/internal/domain/ports/adapter"
)

// NotificationUseCase fans billing events out to the notification service.
// Dispatch is asynchronous and best-effort; a delivery failure never fails
// the payment flow that triggered it.
type NotificationUseCase interface {
	Dispatch(ctx context.Context, userID string, kind adapter.NotificationKind, payload map[string]string)
}

type submitter interface {
	Submit(task func(ctx context.Context) error) error
}

type notificationUC struct {
	notifier adapter.Notifier
	pool     submitter
	log      *zerolog.Logger
}

var _ NotificationUseCase = (*notificationUC)(nil)

func NewNotificationUseCase(notifier adapter.Notifier, pool submitter, logger *zerolog.Logger) *notificationUC {
	compLog := logger.With().Str("component", "NotificationUC").Logger()
	return &notificationUC{notifier: notifier, pool: pool, log: &compLog}
}

func (u *notificationUC) Dispatch(ctx context.Context, userID string, kind adapter.NotificationKind, payload map[string]string) {
	if u.notifier == nil {
		return
	}
	task := func(taskCtx context.Context) error {
		return u.notifier.Notify(taskCtx, userID, kind, payload)
	}
	if u.pool == nil {
		// synchronous fallback, still best-effort
		if err := task(ctx); err != nil {
			u.log.Warn().Err(err).Str("kind", string(kind)).Msg("notification delivery failed")
		}
		return
	}
	if err := u.pool.Submit(task); err != nil {
		u.log.Warn().Err(err).Str("kind", string(kind)).Msg("notification enqueue failed")
	}
}
