package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/repository"
	"jobboard-billing/internal/infra/metrics"
	red "jobboard-billing/internal/infra/redis"
)

var _ repository.PlanRepository = (*planRepoCacheDecorator)(nil)

// planRepoCacheDecorator caches plan reads in Redis. The reconciliation engine
// fetches the plan on every success event to check the amount, so plans are by
// far the hottest read in the service.
type planRepoCacheDecorator struct {
	inner repository.PlanRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewPlanRepoCacheDecorator(inner repository.PlanRepository, cache red.RedisClient, ttl time.Duration) repository.PlanRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &planRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func (d *planRepoCacheDecorator) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Plan, error) {
	key := fmt.Sprintf("plan:%s", id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		metrics.IncCacheRequest("plan", "hit")
		var plan model.Plan
		if json.Unmarshal([]byte(val), &plan) == nil {
			return &plan, nil
		}
	} else if err != redis.Nil {
		// Redis being down degrades to DB reads, nothing more.
	}

	metrics.IncCacheRequest("plan", "miss")
	plan, err := d.inner.FindByID(ctx, qx, id)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		if bytes, err := json.Marshal(plan); err == nil {
			_ = d.cache.Set(ctx, key, bytes, d.ttl)
		}
	}
	return plan, nil
}

// Writes invalidate the cache for the touched plan.
func (d *planRepoCacheDecorator) Save(ctx context.Context, qx repository.Tx, plan *model.Plan) error {
	if err := d.inner.Save(ctx, qx, plan); err != nil {
		return err
	}
	_ = d.cache.Del(ctx, fmt.Sprintf("plan:%s", plan.ID))
	return nil
}

func (d *planRepoCacheDecorator) ListAll(ctx context.Context, qx repository.Tx) ([]*model.Plan, error) {
	return d.inner.ListAll(ctx, qx)
}
