package model

import (
	"strings"
	"time"

	"jobboard-billing/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

// Subscription is one grant of plan entitlement to a user. Renewals create a
// new row; the superseded row is cancelled, never deleted.
type Subscription struct {
	ID           string // UUID
	UserID       string // UUID
	PlanID       string // UUID
	StartDate    time.Time
	EndDate      time.Time
	Status       SubscriptionStatus
	AutoRenew    bool
	JobPostsUsed int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PlanPeriod returns the entitlement window granted by a plan duration label
// starting at from. "monthly" and "per post" grant one month, "yearly" one
// year; anything unrecognized falls back to one month.
func PlanPeriod(duration string, from time.Time) time.Time {
	switch strings.ToLower(strings.TrimSpace(duration)) {
	case "yearly":
		return from.AddDate(1, 0, 0)
	case "monthly", "per post":
		return from.AddDate(0, 1, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// NewSubscription creates an active subscription for a user from a plan,
// starting now.
func NewSubscription(id, userID string, plan *Plan, now time.Time) (*Subscription, error) {
	if id == "" || userID == "" || plan == nil || plan.ID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		ID:        id,
		UserID:    userID,
		PlanID:    plan.ID,
		StartDate: now,
		EndDate:   PlanPeriod(plan.Duration, now),
		Status:    SubscriptionStatusActive,
		AutoRenew: true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsCurrent reports whether the subscription grants entitlement at t.
func (s *Subscription) IsCurrent(t time.Time) bool {
	return s.Status == SubscriptionStatusActive && !s.EndDate.Before(t)
}
