package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/repository"
)

var _ repository.PlanRepository = (*planRepo)(nil)

const planColumns = `id, name, price, final_price, duration, job_posts_allowed, created_at`

type planRepo struct{ pool *pgxpool.Pool }

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

func (r *planRepo) Save(ctx context.Context, qx repository.Tx, plan *model.Plan) error {
	const q = `
INSERT INTO plans (id, name, price, final_price, duration, job_posts_allowed, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  name=$2, price=$3, final_price=$4, duration=$5, job_posts_allowed=$6;`

	_, err := execSQL(ctx, r.pool, qx, q, plan.ID, plan.Name, plan.Price, plan.FinalPrice, plan.Duration, plan.JobPostsAllowed, plan.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *planRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Plan, error) {
	const q = `SELECT ` + planColumns + ` FROM plans WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, qx, q, id)
	if err != nil {
		return nil, err
	}
	p := &model.Plan{}
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.FinalPrice, &p.Duration, &p.JobPostsAllowed, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *planRepo) ListAll(ctx context.Context, qx repository.Tx) ([]*model.Plan, error) {
	const q = `SELECT ` + planColumns + ` FROM plans ORDER BY price ASC;`
	rows, err := queryRows(ctx, r.pool, qx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Plan
	for rows.Next() {
		p := &model.Plan{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.FinalPrice, &p.Duration, &p.JobPostsAllowed, &p.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
