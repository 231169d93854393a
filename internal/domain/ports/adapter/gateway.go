package adapter

import "context"

// GatewayOrder is the provider-side order registered for a checkout.
type GatewayOrder struct {
	ID       string
	Amount   int64 // minor units
	Currency string
	Status   string
}

// OrderState is what the gateway reports for an order when polled during
// reconciliation.
type OrderState struct {
	Paid             bool
	GatewayPaymentID string
	FailureReason    string
}

// PaymentGateway is the hex port for the external payment processor. The
// implementation holds only immutable credentials and is safe for concurrent
// use.
type PaymentGateway interface {
	Name() string
	// KeyID is the public key identifier the browser checkout widget needs.
	KeyID() string

	// CreateOrder registers an order for amount (major units). The conversion
	// to the provider's minor-unit integer representation must be exact or the
	// call fails with domain.ErrAmountPrecision. Network or provider errors
	// surface as domain.ErrGatewayUnavailable.
	CreateOrder(ctx context.Context, amount float64, currency, receipt string) (*GatewayOrder, error)

	// FetchOrderStatus polls the provider for the current state of an order.
	// Used by the reconciliation sweep for payments whose webhook never landed.
	FetchOrderStatus(ctx context.Context, orderID string) (*OrderState, error)

	// VerifyPaymentSignature checks the signature the client presents on the
	// synchronous confirmation path.
	VerifyPaymentSignature(orderID, paymentID, signature string) bool

	// VerifyWebhookSignature checks the webhook signature over the raw,
	// unparsed request body. Fails closed: missing secret or header means false.
	VerifyWebhookSignature(rawPayload []byte, signatureHeader string) bool
}
