package repository

import (
	"context"

	"jobboard-billing/internal/domain/model"
)

// UserRepository is the read-only port onto the job board's account store.
type UserRepository interface {
	FindByID(ctx context.Context, qx Tx, id string) (*model.User, error)
}
