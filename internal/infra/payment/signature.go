package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// VerifyPaymentSignature checks the signature the client presents after
// completing checkout: HMAC-SHA256 over "orderID|paymentID" keyed with the
// API key secret, hex-encoded.
func (g *RazorpayGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if g.keySecret == "" || orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	h := hmac.New(sha256.New, []byte(g.keySecret))
	h.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the webhook signature header: base64 of the
// HMAC-SHA256 over the raw, unparsed request body keyed with the webhook
// secret. The raw bytes must be used verbatim; re-serialized JSON differs in
// whitespace and key order and would silently fail. Missing secret or header
// fails closed.
func (g *RazorpayGateway) VerifyWebhookSignature(rawPayload []byte, signatureHeader string) bool {
	if g.webhookSecret == "" || signatureHeader == "" {
		return false
	}
	h := hmac.New(sha256.New, []byte(g.webhookSecret))
	h.Write(rawPayload)
	expected := base64.StdEncoding.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signatureHeader))
}
