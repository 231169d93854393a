// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/adapter"
	"jobboard-billing/internal/domain/ports/repository"
	"jobboard-billing/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type PaymentUseCase interface {
	// Initiate creates a pending payment for a plan purchase and registers the
	// order with the gateway. A gateway failure leaves the payment pending and
	// surfaces domain.ErrGatewayUnavailable to the caller as retryable.
	Initiate(ctx context.Context, userID, planID string) (*model.Payment, error)
	GetByID(ctx context.Context, id string) (*model.Payment, error)
	// SumByPeriod totals successful payment amounts for "week"|"month"|"year".
	SumByPeriod(ctx context.Context, period string) (float64, error)
	// CheckoutKeyID is the gateway's public key id for the browser widget.
	CheckoutKeyID() string
}

type paymentUC struct {
	payments repository.PaymentRepository
	plans    repository.PlanRepository
	users    repository.UserRepository
	gateway  adapter.PaymentGateway
	currency string
	log      *zerolog.Logger
}

func NewPaymentUseCase(payments repository.PaymentRepository, plans repository.PlanRepository, users repository.UserRepository, gateway adapter.PaymentGateway, currency string, logger *zerolog.Logger) *paymentUC {
	compLog := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{payments: payments, plans: plans, users: users, gateway: gateway, currency: currency, log: &compLog}
}

// newTransactionID mints the human-traceable checkout reference. ULIDs are
// time-prefixed, so support can sort references chronologically.
func newTransactionID() string {
	return "TXN-" + ulid.Make().String()
}

func (u *paymentUC) Initiate(ctx context.Context, userID, planID string) (*model.Payment, error) {
	if userID == "" || planID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if _, err := u.users.FindByID(ctx, repository.NoTX, userID); err != nil {
		return nil, err
	}
	plan, err := u.plans.FindByID(ctx, repository.NoTX, planID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	p := &model.Payment{
		ID:            uuid.NewString(),
		UserID:        userID,
		PlanID:        planID,
		TransactionID: newTransactionID(),
		Amount:        plan.FinalPrice,
		Currency:      u.currency,
		Status:        model.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	// Persist before calling out: the pending row is what the reconciliation
	// sweep uses to pick up checkouts whose order creation crashed mid-flight.
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}

	order, err := u.gateway.CreateOrder(ctx, p.Amount, p.Currency, p.TransactionID)
	if err != nil {
		u.log.Warn().Err(err).Str("payment_id", p.ID).Msg("gateway order creation failed; payment left pending")
		return nil, fmt.Errorf("create order for payment %s: %w", p.ID, err)
	}

	p.GatewayOrderID = &order.ID
	p.UpdatedAt = time.Now()
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}

	metrics.IncPayment(string(model.PaymentStatusPending))
	u.log.Info().Str("payment_id", p.ID).Str("gateway_order_id", order.ID).Str("transaction_id", p.TransactionID).Msg("checkout initiated")
	return p, nil
}

func (u *paymentUC) GetByID(ctx context.Context, id string) (*model.Payment, error) {
	return u.payments.FindByID(ctx, repository.NoTX, id)
}

func (u *paymentUC) SumByPeriod(ctx context.Context, period string) (float64, error) {
	return u.payments.SumByPeriod(ctx, repository.NoTX, period)
}

func (u *paymentUC) CheckoutKeyID() string {
	return u.gateway.KeyID()
}
