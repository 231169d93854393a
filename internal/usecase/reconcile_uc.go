// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/adapter"
	"jobboard-billing/internal/domain/ports/repository"
	"jobboard-billing/internal/infra/metrics"
	"jobboard-billing/internal/infra/redis"
)

// Tolerance for comparing a captured amount against the plan price. Both sides
// travel as exact two-decimal values, so anything past half a minor unit is a
// real discrepancy, not float noise.
const amountEpsilon = 0.005

const deliveryLockTTL = 30 * time.Second

// Outcome is the provider-neutral result of a payment attempt, produced by
// the webhook decoder, the client confirmation path, and the polling sweep.
type Outcome struct {
	Success          bool
	GatewayPaymentID string
	FailureReason    string
}

// ReconcileUseCase drives every payment to its terminal state. All entry
// points converge on one state machine, so a webhook, a client confirmation
// and a sweep poll for the same payment produce the same final record no
// matter which lands first or how often each is retried.
type ReconcileUseCase interface {
	// HandleWebhook verifies and applies a raw gateway webhook delivery.
	// domain.ErrSignatureInvalid and domain.ErrInvalidArgument mean the
	// delivery must be rejected; any other return means it was acknowledged.
	HandleWebhook(ctx context.Context, rawPayload []byte, signatureHeader string) error
	// ConfirmClient applies the browser checkout's synchronous confirmation
	// after verifying the client-held payment signature.
	ConfirmClient(ctx context.Context, orderID, paymentID, signature string) (*model.Payment, error)
	// Reconcile applies an outcome to a payment. Used by the stale-payment
	// sweep after polling the gateway.
	Reconcile(ctx context.Context, p *model.Payment, outcome Outcome) error
}

type reconcileUC struct {
	payments repository.PaymentRepository
	plans    repository.PlanRepository
	gateway  adapter.PaymentGateway
	subs     SubscriptionUseCase
	invoices InvoiceUseCase
	notify   NotificationUseCase
	locker   redis.Locker
	log      *zerolog.Logger
}

var _ ReconcileUseCase = (*reconcileUC)(nil)

func NewReconcileUseCase(
	payments repository.PaymentRepository,
	plans repository.PlanRepository,
	gateway adapter.PaymentGateway,
	subs SubscriptionUseCase,
	invoices InvoiceUseCase,
	notify NotificationUseCase,
	locker redis.Locker,
	logger *zerolog.Logger,
) *reconcileUC {
	compLog := logger.With().Str("component", "ReconcileUC").Logger()
	return &reconcileUC{
		payments: payments,
		plans:    plans,
		gateway:  gateway,
		subs:     subs,
		invoices: invoices,
		notify:   notify,
		locker:   locker,
		log:      &compLog,
	}
}

// webhookEnvelope mirrors the gateway's event payload. Only the fields the
// state machine needs are decoded; everything else is ignored.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

func (u *reconcileUC) HandleWebhook(ctx context.Context, rawPayload []byte, signatureHeader string) error {
	start := time.Now()
	result := "applied"
	event := "unknown"
	defer func() {
		metrics.IncWebhookEvent(event, result)
		metrics.WebhookDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}()

	if !u.gateway.VerifyWebhookSignature(rawPayload, signatureHeader) {
		result = "rejected_signature"
		u.log.Warn().Msg("webhook signature verification failed")
		return domain.ErrSignatureInvalid
	}

	var env webhookEnvelope
	if err := json.Unmarshal(rawPayload, &env); err != nil {
		result = "rejected_malformed"
		u.log.Warn().Err(err).Msg("webhook payload not decodable")
		return fmt.Errorf("%w: malformed webhook payload", domain.ErrInvalidArgument)
	}
	if env.Event != "" {
		event = env.Event
	}

	var outcome Outcome
	switch env.Event {
	case "payment.captured", "order.paid":
		outcome = Outcome{Success: true, GatewayPaymentID: env.Payload.Payment.Entity.ID}
	case "payment.failed":
		reason := env.Payload.Payment.Entity.ErrorDescription
		if reason == "" {
			reason = "payment failed at gateway"
		}
		outcome = Outcome{Success: false, GatewayPaymentID: env.Payload.Payment.Entity.ID, FailureReason: reason}
	default:
		// Unsubscribed event type slipped through; acknowledge so the
		// gateway stops retrying it.
		result = "ignored_event"
		u.log.Debug().Str("event", env.Event).Msg("ignoring webhook event")
		return nil
	}

	orderID := env.Payload.Payment.Entity.OrderID
	if orderID == "" {
		orderID = env.Payload.Order.Entity.ID
	}
	if orderID == "" && outcome.GatewayPaymentID == "" {
		result = "ignored_no_reference"
		u.log.Warn().Str("event", env.Event).Msg("webhook carries no order or payment reference")
		return nil
	}

	p, err := u.resolvePayment(ctx, orderID, outcome.GatewayPaymentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Not ours (or not yet persisted). Acknowledge; the sweep will
			// catch a late-persisting row via its own poll.
			result = "unresolved_reference"
			metrics.IncReconcileConflict("unresolved_reference")
			u.log.Warn().Str("event", env.Event).Str("order_id", orderID).
				Str("gateway_payment_id", outcome.GatewayPaymentID).
				Msg("webhook references unknown payment")
			return nil
		}
		result = "error"
		return err
	}

	if err := u.Reconcile(ctx, p, outcome); err != nil {
		result = "error"
		return err
	}
	return nil
}

func (u *reconcileUC) ConfirmClient(ctx context.Context, orderID, paymentID, signature string) (*model.Payment, error) {
	if orderID == "" || paymentID == "" {
		return nil, fmt.Errorf("%w: order and payment ids are required", domain.ErrInvalidArgument)
	}
	if !u.gateway.VerifyPaymentSignature(orderID, paymentID, signature) {
		u.log.Warn().Str("order_id", orderID).Msg("client payment signature verification failed")
		return nil, domain.ErrSignatureInvalid
	}

	p, err := u.payments.FindByGatewayOrderID(ctx, repository.NoTX, orderID)
	if err != nil {
		return nil, err
	}

	outcome := Outcome{Success: true, GatewayPaymentID: paymentID}
	if err := u.Reconcile(ctx, p, outcome); err != nil {
		return nil, err
	}
	return u.payments.FindByID(ctx, repository.NoTX, p.ID)
}

func (u *reconcileUC) resolvePayment(ctx context.Context, orderID, gatewayPaymentID string) (*model.Payment, error) {
	if orderID != "" {
		p, err := u.payments.FindByGatewayOrderID(ctx, repository.NoTX, orderID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	if gatewayPaymentID != "" {
		return u.payments.FindByGatewayPaymentID(ctx, repository.NoTX, gatewayPaymentID)
	}
	return nil, domain.ErrNotFound
}

// Reconcile is the single writer of terminal payment states.
func (u *reconcileUC) Reconcile(ctx context.Context, p *model.Payment, outcome Outcome) error {
	if p == nil {
		return fmt.Errorf("%w: nil payment", domain.ErrInvalidArgument)
	}
	log := u.log.With().Str("payment_id", p.ID).Str("transaction_id", p.TransactionID).Logger()

	// Serialize concurrent deliveries for the same payment. Best-effort: if
	// redis is down we proceed, the conditional update below stays correct.
	if u.locker != nil {
		key := "billing:reconcile:" + p.ID
		token, err := u.locker.TryLock(ctx, key, deliveryLockTTL)
		switch {
		case err == nil:
			defer func() { _ = u.locker.Unlock(context.WithoutCancel(ctx), key, token) }()
		case errors.Is(err, redis.ErrLockHeld):
			log.Debug().Msg("concurrent delivery holds the reconcile lock; proceeding on conditional update")
		default:
			log.Warn().Err(err).Msg("reconcile lock unavailable; proceeding on conditional update")
		}
	}

	if p.Status.IsTerminal() {
		return u.handleTerminal(ctx, &log, p, outcome)
	}

	if outcome.Success {
		return u.applySuccess(ctx, &log, p, outcome)
	}
	return u.applyFailure(ctx, &log, p, outcome)
}

// handleTerminal classifies a delivery that arrives after the payment already
// reached a terminal state: a matching outcome is a replay, a contradicting
// one is a conflict. Either way the stored state wins and the delivery is
// acknowledged.
func (u *reconcileUC) handleTerminal(ctx context.Context, log *zerolog.Logger, p *model.Payment, outcome Outcome) error {
	sameDirection := (outcome.Success && p.Status == model.PaymentStatusSuccess) ||
		(!outcome.Success && p.Status == model.PaymentStatusFailed)
	if sameDirection {
		log.Debug().Str("status", string(p.Status)).Msg("duplicate delivery for settled payment")
		// A replayed success may still owe follow-up work from a crashed
		// first run.
		if outcome.Success {
			u.completeSuccess(ctx, log, p)
		}
		return nil
	}
	metrics.IncReconcileConflict("conflicting_state")
	log.Error().Err(domain.ErrConflictingState).
		Str("status", string(p.Status)).Bool("delivery_success", outcome.Success).
		Msg("delivery contradicts settled payment state; keeping stored state")
	return nil
}

func (u *reconcileUC) applySuccess(ctx context.Context, log *zerolog.Logger, p *model.Payment, outcome Outcome) error {
	now := time.Now()
	var gpID *string
	if outcome.GatewayPaymentID != "" {
		gpID = &outcome.GatewayPaymentID
	}
	applied, err := u.payments.UpdateStatusIfPending(ctx, repository.NoTX, p.ID, model.PaymentStatusSuccess, gpID, nil, &now)
	if err != nil {
		return fmt.Errorf("finalize payment %s: %w", p.ID, err)
	}
	if !applied {
		// Another delivery finalized the row between our read and this
		// write. Re-read and classify against what actually stuck.
		fresh, err := u.payments.FindByID(ctx, repository.NoTX, p.ID)
		if err != nil {
			return err
		}
		return u.handleTerminal(ctx, log, fresh, Outcome{Success: true, GatewayPaymentID: outcome.GatewayPaymentID})
	}

	p.Status = model.PaymentStatusSuccess
	p.PaidAt = &now
	if gpID != nil {
		p.GatewayPaymentID = gpID
	}
	metrics.IncPayment(string(model.PaymentStatusSuccess))
	metrics.AddPaymentRevenue(p.Currency, p.Amount)
	log.Info().Float64("amount", p.Amount).Msg("payment settled")

	u.completeSuccess(ctx, log, p)
	return nil
}

// completeSuccess performs the post-settlement work for a successful payment:
// amount verification, entitlement grant and invoice generation. Idempotent,
// so a replayed delivery can safely re-run it to repair a partial first pass.
func (u *reconcileUC) completeSuccess(ctx context.Context, log *zerolog.Logger, p *model.Payment) {
	plan, err := u.plans.FindByID(ctx, repository.NoTX, p.PlanID)
	if err != nil {
		log.Error().Err(err).Str("plan_id", p.PlanID).Msg("plan lookup failed after settlement; entitlement deferred to sweep")
		return
	}

	if math.Abs(p.Amount-plan.FinalPrice) > amountEpsilon {
		metrics.IncReconcileConflict("amount_mismatch")
		log.Error().Err(domain.ErrAmountMismatch).
			Float64("amount", p.Amount).Float64("plan_price", plan.FinalPrice).
			Str("plan_id", plan.ID).Msg("settled amount does not match plan price; withholding entitlement")
		return
	}

	if p.SubscriptionID == nil {
		sub, err := u.subs.GrantForPayment(ctx, p, plan)
		if err != nil {
			log.Error().Err(err).Msg("entitlement grant failed; will retry on next delivery or sweep")
			return
		}
		p.SubscriptionID = &sub.ID
		u.notify.Dispatch(ctx, p.UserID, adapter.NotifySubscriptionActivated, map[string]string{
			"plan":       plan.Name,
			"valid_till": sub.EndDate.Format(time.RFC3339),
		})
		u.notify.Dispatch(ctx, p.UserID, adapter.NotifyAdminPurchase, map[string]string{
			"plan":   plan.Name,
			"amount": fmt.Sprintf("%.2f", p.Amount),
		})
	}

	if _, err := u.invoices.CreateForPayment(ctx, p); err != nil {
		// The payment and subscription stand regardless; the invoice can be
		// produced later from the settled row.
		log.Warn().Err(err).Msg("invoice generation failed for settled payment")
	}
}

func (u *reconcileUC) applyFailure(ctx context.Context, log *zerolog.Logger, p *model.Payment, outcome Outcome) error {
	reason := outcome.FailureReason
	if reason == "" {
		reason = "payment failed at gateway"
	}
	var gpID *string
	if outcome.GatewayPaymentID != "" {
		gpID = &outcome.GatewayPaymentID
	}
	applied, err := u.payments.UpdateStatusIfPending(ctx, repository.NoTX, p.ID, model.PaymentStatusFailed, gpID, &reason, nil)
	if err != nil {
		return fmt.Errorf("mark payment %s failed: %w", p.ID, err)
	}
	if !applied {
		fresh, err := u.payments.FindByID(ctx, repository.NoTX, p.ID)
		if err != nil {
			return err
		}
		return u.handleTerminal(ctx, log, fresh, outcome)
	}

	metrics.IncPayment(string(model.PaymentStatusFailed))
	log.Info().Str("reason", reason).Msg("payment marked failed")
	u.notify.Dispatch(ctx, p.UserID, adapter.NotifyPaymentFailed, map[string]string{
		"transaction_id": p.TransactionID,
		"reason":         reason,
	})
	return nil
}
