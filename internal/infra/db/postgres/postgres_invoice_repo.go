package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/repository"
)

var _ repository.InvoiceRepository = (*invoiceRepo)(nil)

const invoiceColumns = `id, payment_id, invoice_number, amount, currency, file_url, status, created_at`

type invoiceRepo struct{ pool *pgxpool.Pool }

func NewInvoiceRepo(pool *pgxpool.Pool) *invoiceRepo {
	return &invoiceRepo{pool: pool}
}

func (r *invoiceRepo) Save(ctx context.Context, qx repository.Tx, inv *model.Invoice) error {
	const q = `
INSERT INTO invoices (id, payment_id, invoice_number, amount, currency, file_url, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`

	_, err := execSQL(ctx, r.pool, qx, q, inv.ID, inv.PaymentID, inv.InvoiceNumber, inv.Amount, inv.Currency, inv.FileURL, inv.Status, inv.CreatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			var pgErr *pgconn.PgError
			// 23505 on payment_id: someone else generated this invoice first.
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return domain.ErrAlreadyExists
			}
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *invoiceRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Invoice, error) {
	const q = `SELECT ` + invoiceColumns + ` FROM invoices WHERE id=$1;`
	return r.queryOne(ctx, qx, q, id)
}

func (r *invoiceRepo) FindByPaymentID(ctx context.Context, qx repository.Tx, paymentID string) (*model.Invoice, error) {
	const q = `SELECT ` + invoiceColumns + ` FROM invoices WHERE payment_id=$1 LIMIT 1;`
	return r.queryOne(ctx, qx, q, paymentID)
}

func (r *invoiceRepo) UpdateStatus(ctx context.Context, qx repository.Tx, id string, status model.InvoiceStatus) error {
	const q = `UPDATE invoices SET status=$2 WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, qx, q, id, status)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *invoiceRepo) queryOne(ctx context.Context, qx repository.Tx, q string, args ...interface{}) (*model.Invoice, error) {
	row, err := pickRow(ctx, r.pool, qx, q, args...)
	if err != nil {
		return nil, err
	}
	inv := &model.Invoice{}
	if err := row.Scan(&inv.ID, &inv.PaymentID, &inv.InvoiceNumber, &inv.Amount, &inv.Currency, &inv.FileURL, &inv.Status, &inv.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return inv, nil
}
