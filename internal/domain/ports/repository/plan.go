package repository

import (
	"context"

	"jobboard-billing/internal/domain/model"
)

// PlanRepository is the port for plan lookup. Plans are administered by the
// job-board admin service; this service reads them.
type PlanRepository interface {
	Save(ctx context.Context, qx Tx, plan *model.Plan) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Plan, error)
	ListAll(ctx context.Context, qx Tx) ([]*model.Plan, error)
}
