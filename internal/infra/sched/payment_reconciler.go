// File: internal/infra/sched/payment_reconciler.go
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"jobboard-billing/internal/domain/ports/adapter"
	"jobboard-billing/internal/domain/ports/repository"
	"jobboard-billing/internal/usecase"
)

// PaymentReconciler periodically scans for stale pending payments and polls
// the gateway for their true outcome. This covers payments whose webhook never
// arrived or whose processing crashed mid-flight.
type PaymentReconciler struct {
	reconcileUC usecase.ReconcileUseCase
	payments    repository.PaymentRepository
	gateway     adapter.PaymentGateway
	interval    time.Duration // how often to scan
	staleAfter  time.Duration // how old a pending payment must be to retry
	log         *zerolog.Logger
}

func NewPaymentReconciler(
	reconcileUC usecase.ReconcileUseCase,
	payments repository.PaymentRepository,
	gateway adapter.PaymentGateway,
	interval, staleAfter time.Duration,
	logger *zerolog.Logger,
) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	compLog := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{
		reconcileUC: reconcileUC,
		payments:    payments,
		gateway:     gateway,
		interval:    interval,
		staleAfter:  staleAfter,
		log:         &compLog,
	}
}

func (w *PaymentReconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting payment reconciler")
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping payment reconciler")
			return ctx.Err()
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.payments.ListPendingOlderThan(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("list pending payments failed")
		return
	}
	for _, p := range pending {
		if p.GatewayOrderID == nil {
			// Never reached the gateway; nothing to poll. Left for an
			// operator or a future abandonment policy.
			continue
		}
		state, err := w.gateway.FetchOrderStatus(ctx, *p.GatewayOrderID)
		if err != nil {
			w.log.Warn().Err(err).Str("payment_id", p.ID).Msg("gateway poll failed")
			continue
		}
		if state == nil {
			// No attempt recorded yet; still genuinely pending.
			continue
		}
		outcome := usecase.Outcome{
			Success:          state.Paid,
			GatewayPaymentID: state.GatewayPaymentID,
			FailureReason:    state.FailureReason,
		}
		if !state.Paid && state.GatewayPaymentID == "" && state.FailureReason == "" {
			continue
		}
		if err := w.reconcileUC.Reconcile(ctx, p, outcome); err != nil {
			w.log.Error().Err(err).Str("payment_id", p.ID).Msg("reconcile failed")
			continue
		}
		w.log.Info().Str("payment_id", p.ID).Bool("paid", state.Paid).Msg("stale payment reconciled")
	}
}
