// File: internal/usecase/subscription_uc_test.go
package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/adapter"
)

func newSubFixture() (*subscriptionUC, *memSubRepo, *memPaymentRepo, *model.Plan) {
	subs := newMemSubRepo()
	payments := newMemPaymentRepo()
	plan, _ := model.NewPlan("plan-1", "Monthly", 2999, 2499, "monthly", 10)
	return NewSubscriptionUseCase(subs, payments, nil, nil, newTestLogger()), subs, payments, plan
}

func settledPayment(id, userID string) *model.Payment {
	now := time.Now()
	return &model.Payment{
		ID:            id,
		UserID:        userID,
		PlanID:        "plan-1",
		TransactionID: "TXN-" + id,
		Amount:        2499,
		Currency:      "INR",
		Status:        model.PaymentStatusSuccess,
		PaidAt:        &now,
	}
}

func TestGrantForPayment_CreatesActiveSubscription(t *testing.T) {
	uc, _, payments, plan := newSubFixture()
	ctx := context.Background()
	p := settledPayment("pay-1", "user-1")
	_ = payments.Save(ctx, nil, p)

	sub, err := uc.GrantForPayment(ctx, p, plan)
	if err != nil {
		t.Fatalf("GrantForPayment: %v", err)
	}
	if sub.Status != model.SubscriptionStatusActive {
		t.Fatalf("status = %s, want active", sub.Status)
	}
	wantEnd := sub.StartDate.AddDate(0, 1, 0)
	if !sub.EndDate.Equal(wantEnd) {
		t.Fatalf("end date = %v, want one month after start", sub.EndDate)
	}
	stored := payments.get("pay-1")
	if stored.SubscriptionID == nil || *stored.SubscriptionID != sub.ID {
		t.Fatal("payment not linked to subscription")
	}
}

func TestGrantForPayment_SupersedesPriorActive(t *testing.T) {
	uc, subs, payments, plan := newSubFixture()
	ctx := context.Background()

	p1 := settledPayment("pay-1", "user-1")
	_ = payments.Save(ctx, nil, p1)
	first, err := uc.GrantForPayment(ctx, p1, plan)
	if err != nil {
		t.Fatalf("first grant: %v", err)
	}

	p2 := settledPayment("pay-2", "user-1")
	_ = payments.Save(ctx, nil, p2)
	second, err := uc.GrantForPayment(ctx, p2, plan)
	if err != nil {
		t.Fatalf("second grant: %v", err)
	}

	old, _ := subs.FindByID(ctx, nil, first.ID)
	if old.Status != model.SubscriptionStatusCancelled {
		t.Fatalf("first subscription = %s, want cancelled", old.Status)
	}
	current, err := subs.FindActiveByUser(ctx, nil, "user-1")
	if err != nil || current.ID != second.ID {
		t.Fatalf("active subscription = %v, want the renewal", current)
	}
}

func TestGrantForPayment_SecondGrantFromSamePayment(t *testing.T) {
	uc, _, payments, plan := newSubFixture()
	ctx := context.Background()
	p := settledPayment("pay-1", "user-1")
	_ = payments.Save(ctx, nil, p)

	if _, err := uc.GrantForPayment(ctx, p, plan); err != nil {
		t.Fatalf("first grant: %v", err)
	}
	// Same payment again, as a replayed delivery would do with a stale read.
	stale := settledPayment("pay-1", "user-1")
	if _, err := uc.GrantForPayment(ctx, stale, plan); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestGrantForPayment_RunsInTransaction(t *testing.T) {
	subs := newMemSubRepo()
	payments := newMemPaymentRepo()
	txm := &memTxManager{}
	uc := NewSubscriptionUseCase(subs, payments, txm, nil, newTestLogger())
	plan, _ := model.NewPlan("plan-1", "Monthly", 2999, 2499, "monthly", 10)
	ctx := context.Background()

	p := settledPayment("pay-1", "user-1")
	_ = payments.Save(ctx, nil, p)
	sub, err := uc.GrantForPayment(ctx, p, plan)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if txm.commits != 1 || txm.rollbacks != 0 {
		t.Fatalf("commits=%d rollbacks=%d, want 1/0", txm.commits, txm.rollbacks)
	}
	if got, _ := subs.FindActiveByUser(ctx, nil, "user-1"); got == nil || got.ID != sub.ID {
		t.Fatal("grant not visible after commit")
	}

	// A payment that is already linked loses the grant and rolls back.
	p2 := settledPayment("pay-2", "user-2")
	other := "sub-elsewhere"
	p2.SubscriptionID = &other
	_ = payments.Save(ctx, nil, p2)
	if _, err := uc.GrantForPayment(ctx, p2, plan); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("linked payment: err = %v, want ErrAlreadyExists", err)
	}
	if txm.rollbacks != 1 {
		t.Fatalf("rollbacks = %d, want 1", txm.rollbacks)
	}
}

func TestCancel_OwnershipAndLifecycle(t *testing.T) {
	uc, subs, payments, plan := newSubFixture()
	ctx := context.Background()
	p := settledPayment("pay-1", "user-1")
	_ = payments.Save(ctx, nil, p)
	sub, err := uc.GrantForPayment(ctx, p, plan)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}

	if _, err := uc.Cancel(ctx, "intruder", sub.ID); !errors.Is(err, domain.ErrNotSubscriptionOwner) {
		t.Fatalf("foreign cancel: err = %v, want ErrNotSubscriptionOwner", err)
	}

	got, err := uc.Cancel(ctx, "user-1", sub.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got.Status != model.SubscriptionStatusCancelled || got.AutoRenew {
		t.Fatalf("cancelled = %s autoRenew=%v", got.Status, got.AutoRenew)
	}

	// Cancelling again is a no-op, not an error.
	again, err := uc.Cancel(ctx, "user-1", sub.ID)
	if err != nil {
		t.Fatalf("repeat cancel: %v", err)
	}
	if again.Status != model.SubscriptionStatusCancelled {
		t.Fatalf("repeat cancel status = %s", again.Status)
	}

	stored, _ := subs.FindByID(ctx, nil, sub.ID)
	if stored.Status != model.SubscriptionStatusCancelled {
		t.Fatal("cancellation not persisted")
	}
}

func TestCancel_NotifiesUserOnce(t *testing.T) {
	subs := newMemSubRepo()
	payments := newMemPaymentRepo()
	notifier := &recordingNotifier{}
	uc := NewSubscriptionUseCase(subs, payments, nil, newSyncNotifUC(notifier), newTestLogger())
	plan, _ := model.NewPlan("plan-1", "Monthly", 2999, 2499, "monthly", 10)
	ctx := context.Background()

	p := settledPayment("pay-1", "user-1")
	_ = payments.Save(ctx, nil, p)
	sub, err := uc.GrantForPayment(ctx, p, plan)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}

	if _, err := uc.Cancel(ctx, "user-1", sub.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	// Repeat cancel is a no-op and must not notify again.
	if _, err := uc.Cancel(ctx, "user-1", sub.ID); err != nil {
		t.Fatalf("repeat cancel: %v", err)
	}

	var cancelled int
	for _, k := range notifier.kinds() {
		if k == adapter.NotifySubscriptionCancelled {
			cancelled++
		}
	}
	if cancelled != 1 {
		t.Fatalf("cancellation notifications = %d, want 1", cancelled)
	}
}

func TestCurrent_NoActiveSubscription(t *testing.T) {
	uc, _, _, _ := newSubFixture()

	if _, err := uc.Current(context.Background(), "user-1"); !errors.Is(err, domain.ErrNoActiveSubscription) {
		t.Fatalf("err = %v, want ErrNoActiveSubscription", err)
	}
}

func TestExpireDue(t *testing.T) {
	uc, subs, _, plan := newSubFixture()
	ctx := context.Background()

	expired, _ := model.NewSubscription("sub-old", "user-1", plan, time.Now().AddDate(0, -2, 0))
	_ = subs.Save(ctx, nil, expired)
	fresh, _ := model.NewSubscription("sub-new", "user-2", plan, time.Now())
	_ = subs.Save(ctx, nil, fresh)

	n, err := uc.ExpireDue(ctx)
	if err != nil {
		t.Fatalf("ExpireDue: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired = %d, want 1", n)
	}
	old, _ := subs.FindByID(ctx, nil, "sub-old")
	if old.Status != model.SubscriptionStatusExpired {
		t.Fatalf("old status = %s, want expired", old.Status)
	}
	still, _ := subs.FindByID(ctx, nil, "sub-new")
	if still.Status != model.SubscriptionStatusActive {
		t.Fatalf("fresh status = %s, want active", still.Status)
	}
}
