// File: internal/usecase/payment_uc_test.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/adapter"
)

func newPaymentFixture() (*paymentUC, *memPaymentRepo, *fakeGateway) {
	payments := newMemPaymentRepo()
	plans := newMemPlanRepo()
	users := newMemUserRepo()
	gw := &fakeGateway{}
	plan, _ := model.NewPlan("plan-1", "Monthly", 2999, 2499, "monthly", 10)
	_ = plans.Save(context.Background(), nil, plan)
	users.add(&model.User{ID: "user-1", Email: "pat@example.com"})
	return NewPaymentUseCase(payments, plans, users, gw, "INR", newTestLogger()), payments, gw
}

func TestInitiate_CreatesPendingPaymentWithOrder(t *testing.T) {
	uc, payments, gw := newPaymentFixture()
	gw.createOrderFn = func(ctx context.Context, amount float64, currency, receipt string) (*adapter.GatewayOrder, error) {
		if amount != 2499 {
			t.Fatalf("amount = %v, want plan final price 2499", amount)
		}
		if currency != "INR" {
			t.Fatalf("currency = %s, want INR", currency)
		}
		return &adapter.GatewayOrder{ID: "order_xyz", Amount: 249900, Currency: currency, Status: "created"}, nil
	}

	p, err := uc.Initiate(context.Background(), "user-1", "plan-1")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if p.Status != model.PaymentStatusPending {
		t.Fatalf("status = %s, want pending", p.Status)
	}
	if !strings.HasPrefix(p.TransactionID, "TXN-") {
		t.Fatalf("transaction id = %s, want TXN- prefix", p.TransactionID)
	}
	if p.GatewayOrderID == nil || *p.GatewayOrderID != "order_xyz" {
		t.Fatal("gateway order id not recorded")
	}
	stored := payments.get(p.ID)
	if stored == nil || stored.Amount != 2499 {
		t.Fatal("payment not persisted with plan price")
	}
}

func TestInitiate_GatewayFailureLeavesPendingRow(t *testing.T) {
	uc, payments, gw := newPaymentFixture()
	gw.createOrderFn = func(ctx context.Context, amount float64, currency, receipt string) (*adapter.GatewayOrder, error) {
		return nil, fmt.Errorf("%w: connection refused", domain.ErrGatewayUnavailable)
	}

	_, err := uc.Initiate(context.Background(), "user-1", "plan-1")
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
	}

	// The pending row survives so the sweep can pick it up.
	pending := 0
	for _, p := range payments.store {
		if p.Status == model.PaymentStatusPending && p.GatewayOrderID == nil {
			pending++
		}
	}
	if pending != 1 {
		t.Fatalf("pending rows without order = %d, want 1", pending)
	}
}

func TestInitiate_UnknownUserOrPlan(t *testing.T) {
	uc, _, _ := newPaymentFixture()
	ctx := context.Background()

	if _, err := uc.Initiate(ctx, "ghost", "plan-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown user: err = %v, want ErrNotFound", err)
	}
	if _, err := uc.Initiate(ctx, "user-1", "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown plan: err = %v, want ErrNotFound", err)
	}
	if _, err := uc.Initiate(ctx, "", ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("empty args: err = %v, want ErrInvalidArgument", err)
	}
}

func TestNewTransactionID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newTransactionID()
		if seen[id] {
			t.Fatalf("duplicate transaction id %s", id)
		}
		seen[id] = true
	}
}
