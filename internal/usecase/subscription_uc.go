// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/adapter"
	"jobboard-billing/internal/domain/ports/repository"
	"jobboard-billing/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

type SubscriptionUseCase interface {
	// GrantForPayment creates the entitlement for a successful payment:
	// cancels any prior active subscription for the user, creates the new one,
	// and links it to the payment. At most one active subscription per user
	// survives.
	GrantForPayment(ctx context.Context, p *model.Payment, plan *model.Plan) (*model.Subscription, error)
	// Current returns the user's active, unexpired subscription.
	Current(ctx context.Context, userID string) (*model.Subscription, error)
	// Cancel cancels the user's own subscription by id.
	Cancel(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Subscription, error)
	// ExpireDue marks active subscriptions past their end date as expired.
	ExpireDue(ctx context.Context) (int, error)
	CountActiveByPlan(ctx context.Context) (map[string]int, error)
}

type subscriptionUC struct {
	subs     repository.SubscriptionRepository
	payments repository.PaymentRepository
	txm      repository.TransactionManager // nil in tests; repos then run non-transactionally
	notify   NotificationUseCase
	log      *zerolog.Logger
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, payments repository.PaymentRepository, txm repository.TransactionManager, notify NotificationUseCase, logger *zerolog.Logger) *subscriptionUC {
	compLog := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{subs: subs, payments: payments, txm: txm, notify: notify, log: &compLog}
}

func hashToInt64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64() & ((1 << 63) - 1))
}

// GrantForPayment serializes concurrent purchases by the same user with a
// per-user advisory xact lock; the partial unique index on active
// subscriptions is the backstop if two grants still interleave.
func (uc *subscriptionUC) GrantForPayment(ctx context.Context, p *model.Payment, plan *model.Plan) (*model.Subscription, error) {
	if p == nil || plan.IsZero() {
		return nil, domain.ErrInvalidArgument
	}

	if uc.txm != nil {
		var sub *model.Subscription
		err := uc.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			if pgtx, ok := tx.(pgx.Tx); ok {
				if _, err := pgtx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", hashToInt64(p.UserID)); err != nil {
					return err
				}
			}
			s, err := uc.grant(ctx, tx, p, plan)
			if err != nil {
				return err
			}
			sub = s
			return nil
		})
		if err != nil {
			return nil, err
		}
		return sub, nil
	}

	// No transaction manager (tests / in-memory repos)
	return uc.grant(ctx, repository.NoTX, p, plan)
}

func (uc *subscriptionUC) grant(ctx context.Context, qx repository.Tx, p *model.Payment, plan *model.Plan) (*model.Subscription, error) {
	cancelled, err := uc.subs.CancelActiveByUser(ctx, qx, p.UserID)
	if err != nil {
		return nil, err
	}
	if len(cancelled) > 0 {
		metrics.AddSubscriptionsSuperseded(len(cancelled))
		uc.log.Info().Str("user_id", p.UserID).Strs("superseded", cancelled).Msg("prior active subscriptions cancelled")
	}

	sub, err := model.NewSubscription(uuid.NewString(), p.UserID, plan, time.Now())
	if err != nil {
		return nil, err
	}
	if err := uc.subs.Save(ctx, qx, sub); err != nil {
		// Lost a race with a concurrent grant despite the lock: cancel the
		// winner? No -- last write wins on the one-active invariant, so
		// re-cancel and retry once.
		if errors.Is(err, domain.ErrAlreadyExists) {
			if _, cerr := uc.subs.CancelActiveByUser(ctx, qx, p.UserID); cerr != nil {
				return nil, cerr
			}
			if err := uc.subs.Save(ctx, qx, sub); err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	linked, err := uc.payments.LinkSubscription(ctx, qx, p.ID, sub.ID)
	if err != nil {
		return nil, err
	}
	if !linked {
		// Another delivery already granted from this payment; keep its grant.
		uc.log.Warn().Str("payment_id", p.ID).Msg("payment already linked to a subscription")
		return nil, domain.ErrAlreadyExists
	}

	metrics.IncSubscriptionGranted(plan.ID)
	return sub, nil
}

func (uc *subscriptionUC) Current(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := uc.subs.FindActiveByUser(ctx, repository.NoTX, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoActiveSubscription
		}
		return nil, err
	}
	return sub, nil
}

func (uc *subscriptionUC) Cancel(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error) {
	sub, err := uc.subs.FindByID(ctx, repository.NoTX, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, domain.ErrNotSubscriptionOwner
	}
	if sub.Status != model.SubscriptionStatusActive {
		// Cancelling a cancelled/expired subscription is a no-op.
		return sub, nil
	}
	sub.Status = model.SubscriptionStatusCancelled
	sub.AutoRenew = false
	sub.UpdatedAt = time.Now()
	if err := uc.subs.Save(ctx, repository.NoTX, sub); err != nil {
		return nil, err
	}
	if uc.notify != nil {
		uc.notify.Dispatch(ctx, sub.UserID, adapter.NotifySubscriptionCancelled, map[string]string{
			"subscription_id": sub.ID,
			"end_date":        sub.EndDate.Format(time.RFC3339),
		})
	}
	return sub, nil
}

func (uc *subscriptionUC) ListByUser(ctx context.Context, userID string) ([]*model.Subscription, error) {
	return uc.subs.ListByUser(ctx, repository.NoTX, userID)
}

func (uc *subscriptionUC) ExpireDue(ctx context.Context) (int, error) {
	n, err := uc.subs.MarkExpired(ctx, repository.NoTX, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.AddSubscriptionsExpired(n)
	}
	return n, nil
}

func (uc *subscriptionUC) CountActiveByPlan(ctx context.Context) (map[string]int, error) {
	return uc.subs.CountActiveByPlan(ctx, repository.NoTX)
}
