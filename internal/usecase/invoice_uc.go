// File: internal/usecase/invoice_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/adapter"
	"jobboard-billing/internal/domain/ports/repository"
	"jobboard-billing/internal/infra/invoice"
	"jobboard-billing/internal/infra/metrics"
)

// Compile-time check
var _ InvoiceUseCase = (*invoiceUC)(nil)

type InvoiceUseCase interface {
	// CreateForPayment generates the invoice for a successful payment.
	// Idempotent: an existing invoice for the payment is returned unchanged.
	CreateForPayment(ctx context.Context, p *model.Payment) (*model.Invoice, error)
	// FindForPayment returns the invoice for a payment, if any.
	FindForPayment(ctx context.Context, paymentID string) (*model.Invoice, error)
}

type invoiceUC struct {
	invoices repository.InvoiceRepository
	plans    repository.PlanRepository
	users    repository.UserRepository
	store    adapter.FileStore
	log      *zerolog.Logger
}

func NewInvoiceUseCase(invoices repository.InvoiceRepository, plans repository.PlanRepository, users repository.UserRepository, store adapter.FileStore, logger *zerolog.Logger) *invoiceUC {
	compLog := logger.With().Str("component", "InvoiceUC").Logger()
	return &invoiceUC{invoices: invoices, plans: plans, users: users, store: store, log: &compLog}
}

func (uc *invoiceUC) CreateForPayment(ctx context.Context, p *model.Payment) (*model.Invoice, error) {
	if p == nil || p.Status != model.PaymentStatusSuccess {
		return nil, domain.ErrInvalidArgument
	}

	// Lookup-before-create makes replays cheap; the unique constraint on
	// payment_id closes the remaining race window.
	existing, err := uc.invoices.FindByPaymentID(ctx, repository.NoTX, p.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	issuedAt := time.Now()
	if p.PaidAt != nil {
		issuedAt = *p.PaidAt
	}
	number := model.InvoiceNumber(p.ID, issuedAt)

	doc := invoice.Document{
		InvoiceNumber: number,
		IssuedAt:      issuedAt,
		TransactionID: p.TransactionID,
		Amount:        p.Amount,
		Currency:      p.Currency,
	}
	if user, err := uc.users.FindByID(ctx, repository.NoTX, p.UserID); err == nil {
		doc.CustomerName = user.FullName
		doc.CustomerEmail = user.Email
	}
	if plan, err := uc.plans.FindByID(ctx, repository.NoTX, p.PlanID); err == nil {
		doc.PlanName = plan.Name
		doc.PlanDuration = plan.Duration
	}

	data, err := invoice.Render(doc)
	if err != nil {
		metrics.IncInvoiceFailure("render")
		return nil, fmt.Errorf("%w: %v", domain.ErrInvoiceGeneration, err)
	}

	fileURL, err := uc.store.Store(ctx, data, number+".html")
	if err != nil {
		metrics.IncInvoiceFailure("store")
		return nil, fmt.Errorf("%w: store document: %v", domain.ErrInvoiceGeneration, err)
	}

	inv := &model.Invoice{
		ID:            uuid.NewString(),
		PaymentID:     p.ID,
		InvoiceNumber: number,
		Amount:        p.Amount,
		Currency:      p.Currency,
		FileURL:       fileURL,
		Status:        model.InvoiceStatusGenerated,
		CreatedAt:     time.Now(),
	}
	if err := uc.invoices.Save(ctx, repository.NoTX, inv); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Concurrent delivery generated it first; theirs is the invoice.
			return uc.invoices.FindByPaymentID(ctx, repository.NoTX, p.ID)
		}
		metrics.IncInvoiceFailure("persist")
		return nil, fmt.Errorf("%w: persist invoice: %v", domain.ErrInvoiceGeneration, err)
	}

	metrics.IncInvoiceGenerated()
	uc.log.Info().Str("payment_id", p.ID).Str("invoice_number", number).Msg("invoice generated")
	return inv, nil
}

func (uc *invoiceUC) FindForPayment(ctx context.Context, paymentID string) (*model.Invoice, error) {
	return uc.invoices.FindByPaymentID(ctx, repository.NoTX, paymentID)
}
