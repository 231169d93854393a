package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

const subscriptionColumns = `id, user_id, plan_id, start_date, end_date, status, auto_renew, job_posts_used, created_at, updated_at`

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

func (r *subscriptionRepo) Save(ctx context.Context, qx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (
  id, user_id, plan_id, start_date, end_date, status, auto_renew, job_posts_used, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  end_date=$5, status=$6, auto_renew=$7, job_posts_used=$8, updated_at=$10;`

	_, err := execSQL(ctx, r.pool, qx, q, s.ID, s.UserID, s.PlanID, s.StartDate, s.EndDate, s.Status, s.AutoRenew, s.JobPostsUsed, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			var pgErr *pgconn.PgError
			// 23505: the partial unique index on (user_id) WHERE status='active'
			// caught a concurrent grant for the same user.
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return domain.ErrAlreadyExists
			}
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id=$1`
	if _, ok := qx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	return r.queryOne(ctx, qx, q, id)
}

func (r *subscriptionRepo) FindActiveByUser(ctx context.Context, qx repository.Tx, userID string) (*model.Subscription, error) {
	const q = `
SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE user_id=$1 AND status='active' AND end_date >= NOW()
 ORDER BY created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, qx, q, userID)
}

func (r *subscriptionRepo) ListByUser(ctx context.Context, qx repository.Tx, userID string) ([]*model.Subscription, error) {
	const q = `
SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE user_id=$1
 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, qx, q, userID)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *subscriptionRepo) CancelActiveByUser(ctx context.Context, qx repository.Tx, userID string) ([]string, error) {
	const q = `
UPDATE subscriptions
   SET status='cancelled', updated_at=NOW()
 WHERE user_id=$1 AND status='active'
RETURNING id;`
	rows, err := queryRows(ctx, r.pool, qx, q, userID)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return ids, nil
}

func (r *subscriptionRepo) MarkExpired(ctx context.Context, qx repository.Tx, asOf time.Time) (int, error) {
	const q = `UPDATE subscriptions SET status='expired', updated_at=NOW() WHERE status='active' AND end_date < $1;`
	cmd, err := execSQL(ctx, r.pool, qx, q, asOf)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return int(cmd.RowsAffected()), nil
}

func (r *subscriptionRepo) CountActiveByPlan(ctx context.Context, qx repository.Tx) (map[string]int, error) {
	const q = `SELECT plan_id, COUNT(*) FROM subscriptions WHERE status='active' AND end_date >= NOW() GROUP BY plan_id;`
	rows, err := queryRows(ctx, r.pool, qx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var planID string
		var n int
		if err := rows.Scan(&planID, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[planID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *subscriptionRepo) queryOne(ctx context.Context, qx repository.Tx, q string, args ...interface{}) (*model.Subscription, error) {
	row, err := pickRow(ctx, r.pool, qx, q, args...)
	if err != nil {
		return nil, err
	}
	s := &model.Subscription{}
	if err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.StartDate, &s.EndDate, &s.Status, &s.AutoRenew, &s.JobPostsUsed, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

func scanSubscription(rows pgx.Rows) (*model.Subscription, error) {
	s := &model.Subscription{}
	if err := rows.Scan(&s.ID, &s.UserID, &s.PlanID, &s.StartDate, &s.EndDate, &s.Status, &s.AutoRenew, &s.JobPostsUsed, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}
