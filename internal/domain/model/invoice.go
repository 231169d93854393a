package model

import (
	"fmt"
	"strings"
	"time"
)

type InvoiceStatus string

const (
	InvoiceStatusGenerated InvoiceStatus = "generated"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Invoice is the billing artifact for exactly one payment. The payment_id
// column carries a unique constraint; generation is idempotent.
type Invoice struct {
	ID            string // UUID
	PaymentID     string // UUID, unique
	InvoiceNumber string
	Amount        float64
	Currency      string
	FileURL       string
	Status        InvoiceStatus
	CreatedAt     time.Time
}

// InvoiceNumber derives the deterministic invoice number for a payment:
// a date stamp plus a payment-id fragment. Reproducible, so a replayed
// generation attempt computes the same number it would have the first time.
func InvoiceNumber(paymentID string, paidAt time.Time) string {
	frag := strings.ToUpper(strings.ReplaceAll(paymentID, "-", ""))
	if len(frag) > 8 {
		frag = frag[:8]
	}
	return fmt.Sprintf("INV-%s-%s", paidAt.Format("20060102"), frag)
}
