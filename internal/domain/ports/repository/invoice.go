package repository

import (
	"context"

	"jobboard-billing/internal/domain/model"
)

// InvoiceRepository is the port for billing artifacts. payment_id is unique;
// Save surfaces domain.ErrAlreadyExists when a concurrent writer won the race.
type InvoiceRepository interface {
	Save(ctx context.Context, qx Tx, inv *model.Invoice) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Invoice, error)
	FindByPaymentID(ctx context.Context, qx Tx, paymentID string) (*model.Invoice, error)
	UpdateStatus(ctx context.Context, qx Tx, id string, status model.InvoiceStatus) error
}
