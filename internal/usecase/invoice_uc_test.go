// File: internal/usecase/invoice_uc_test.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
)

func successfulPayment() *model.Payment {
	paidAt := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	return &model.Payment{
		ID:            "7f3c2a10-9b4d-4e6f-8a21-5c0d9e8f7a61",
		UserID:        "user-1",
		PlanID:        "plan-1",
		TransactionID: "TXN-TEST1",
		Amount:        2499,
		Currency:      "INR",
		Status:        model.PaymentStatusSuccess,
		PaidAt:        &paidAt,
	}
}

func newInvoiceFixture() (*invoiceUC, *memInvoiceRepo, *memFileStore) {
	invoices := newMemInvoiceRepo()
	plans := newMemPlanRepo()
	users := newMemUserRepo()
	store := newMemFileStore()
	plan, _ := model.NewPlan("plan-1", "Monthly", 2999, 2499, "monthly", 10)
	_ = plans.Save(context.Background(), nil, plan)
	users.add(&model.User{ID: "user-1", Email: "pat@example.com", FullName: "Pat Example"})
	return NewInvoiceUseCase(invoices, plans, users, store, newTestLogger()), invoices, store
}

func TestCreateForPayment_GeneratesDeterministicNumber(t *testing.T) {
	uc, _, store := newInvoiceFixture()
	p := successfulPayment()

	inv, err := uc.CreateForPayment(context.Background(), p)
	if err != nil {
		t.Fatalf("CreateForPayment: %v", err)
	}
	want := "INV-20260315-7F3C2A10"
	if inv.InvoiceNumber != want {
		t.Fatalf("invoice number = %s, want %s", inv.InvoiceNumber, want)
	}
	if inv.FileURL == "" {
		t.Fatal("file url not set")
	}
	data, ok := store.files[want+".html"]
	if !ok {
		t.Fatal("document not stored")
	}
	if !strings.Contains(string(data), want) || !strings.Contains(string(data), "TXN-TEST1") {
		t.Fatal("rendered document missing invoice number or transaction reference")
	}
}

func TestCreateForPayment_SecondCallReturnsExisting(t *testing.T) {
	uc, invoices, _ := newInvoiceFixture()
	p := successfulPayment()
	ctx := context.Background()

	first, err := uc.CreateForPayment(ctx, p)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := uc.CreateForPayment(ctx, p)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("replay created a new invoice: %s vs %s", first.ID, second.ID)
	}
	if len(invoices.store) != 1 {
		t.Fatalf("invoices = %d, want 1", len(invoices.store))
	}
}

func TestCreateForPayment_RejectsNonSuccessfulPayment(t *testing.T) {
	uc, _, _ := newInvoiceFixture()
	p := successfulPayment()
	p.Status = model.PaymentStatusPending

	if _, err := uc.CreateForPayment(context.Background(), p); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestCreateForPayment_StorageFailure(t *testing.T) {
	uc, invoices, store := newInvoiceFixture()
	store.storeErr = errors.New("volume offline")

	_, err := uc.CreateForPayment(context.Background(), successfulPayment())
	if !errors.Is(err, domain.ErrInvoiceGeneration) {
		t.Fatalf("err = %v, want ErrInvoiceGeneration", err)
	}
	if len(invoices.store) != 0 {
		t.Fatal("invoice row persisted despite storage failure")
	}
}

func TestCreateForPayment_LosesSaveRaceGracefully(t *testing.T) {
	uc, invoices, _ := newInvoiceFixture()
	p := successfulPayment()
	ctx := context.Background()

	// A concurrent delivery wins the insert between lookup and save.
	invoices.findMissOnce = true
	rival := &model.Invoice{
		ID:            "rival",
		PaymentID:     p.ID,
		InvoiceNumber: model.InvoiceNumber(p.ID, *p.PaidAt),
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        model.InvoiceStatusGenerated,
	}
	_ = invoices.Save(ctx, nil, rival)

	inv, err := uc.CreateForPayment(ctx, p)
	if err != nil {
		t.Fatalf("CreateForPayment: %v", err)
	}
	if inv.ID != "rival" {
		t.Fatalf("invoice id = %s, want the rival's row", inv.ID)
	}
}
