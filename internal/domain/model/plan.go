package model

import (
	"time"

	"jobboard-billing/internal/domain"
)

// Plan is a purchasable subscription plan. Price is the list price;
// FinalPrice is the effective (discounted) price the user is charged and
// the value every incoming payment amount is checked against.
type Plan struct {
	ID              string
	Name            string
	Price           float64
	FinalPrice      float64
	Duration        string // "monthly" | "yearly" | "per post"
	JobPostsAllowed int
	CreatedAt       time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// NewPlan validates and constructs a plan.
func NewPlan(id, name string, price, finalPrice float64, duration string, jobPostsAllowed int) (*Plan, error) {
	if id == "" || name == "" || price <= 0 || finalPrice <= 0 || finalPrice > price || jobPostsAllowed < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		ID:              id,
		Name:            name,
		Price:           price,
		FinalPrice:      finalPrice,
		Duration:        duration,
		JobPostsAllowed: jobPostsAllowed,
		CreatedAt:       time.Now(),
	}, nil
}
