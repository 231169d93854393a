package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

const paymentColumns = `id, user_id, plan_id, transaction_id, gateway_order_id, gateway_payment_id, amount, currency, status, failure_reason, paid_at, subscription_id, created_at, updated_at`

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

func (r *paymentRepo) Save(ctx context.Context, qx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, user_id, plan_id, transaction_id, gateway_order_id, gateway_payment_id, amount, currency, status, failure_reason, paid_at, subscription_id, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
) ON CONFLICT (id) DO UPDATE SET
  gateway_order_id=$5, gateway_payment_id=$6, status=$9, failure_reason=$10, paid_at=$11, subscription_id=$12, updated_at=$14;`

	_, err := execSQL(ctx, r.pool, qx, q, p.ID, p.UserID, p.PlanID, p.TransactionID, p.GatewayOrderID, p.GatewayPaymentID, p.Amount, p.Currency, p.Status, p.FailureReason, p.PaidAt, p.SubscriptionID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	if _, ok := qx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	return r.queryOne(ctx, qx, q, id)
}

func (r *paymentRepo) FindByGatewayOrderID(ctx context.Context, qx repository.Tx, orderID string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_order_id=$1 LIMIT 1`
	if _, ok := qx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	return r.queryOne(ctx, qx, q, orderID)
}

func (r *paymentRepo) FindByGatewayPaymentID(ctx context.Context, qx repository.Tx, paymentID string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_payment_id=$1 LIMIT 1;`
	return r.queryOne(ctx, qx, q, paymentID)
}

// UpdateStatusIfPending atomically finalizes a payment only while it is still
// pending. Two racing writers both observing 'pending' resolve here: the
// second sees RowsAffected()==0, re-reads, and hits the idempotent path.
func (r *paymentRepo) UpdateStatusIfPending(
	ctx context.Context, qx repository.Tx, id string, status model.PaymentStatus, gatewayPaymentID, failureReason *string, paidAt *time.Time,
) (bool, error) {
	const q = `
    UPDATE payments
       SET status = $2,
           gateway_payment_id = COALESCE($3, gateway_payment_id),
           failure_reason = $4,
           paid_at = COALESCE($5, paid_at),
           updated_at = NOW()
     WHERE id = $1
       AND status = 'pending';`

	cmd, err := execSQL(ctx, r.pool, qx, q, id, string(status), gatewayPaymentID, failureReason, paidAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) LinkSubscription(ctx context.Context, qx repository.Tx, paymentID, subscriptionID string) (bool, error) {
	const q = `UPDATE payments SET subscription_id=$2, updated_at=NOW() WHERE id=$1 AND subscription_id IS NULL;`
	cmd, err := execSQL(ctx, r.pool, qx, q, paymentID, subscriptionID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, qx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, qx, q, olderThan, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p := new(model.Payment)
		if err := scanPayment(rows, p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *paymentRepo) SumByPeriod(ctx context.Context, qx repository.Tx, period string) (float64, error) {
	const q = `SELECT COALESCE(SUM(amount),0) FROM payments WHERE status='success' AND paid_at >= DATE_TRUNC($1, NOW());`
	row, err := pickRow(ctx, r.pool, qx, q, period)
	if err != nil {
		return 0, err
	}
	var sum float64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

func (r *paymentRepo) queryOne(ctx context.Context, qx repository.Tx, q string, args ...interface{}) (*model.Payment, error) {
	row, err := pickRow(ctx, r.pool, qx, q, args...)
	if err != nil {
		return nil, err
	}
	p := &model.Payment{}
	if err := scanPayment(row, p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row rowScanner, p *model.Payment) error {
	err := row.Scan(&p.ID, &p.UserID, &p.PlanID, &p.TransactionID, &p.GatewayOrderID, &p.GatewayPaymentID, &p.Amount, &p.Currency, &p.Status, &p.FailureReason, &p.PaidAt, &p.SubscriptionID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		return domain.ErrReadDatabaseRow
	}
	return nil
}
