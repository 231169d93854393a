// File: internal/infra/web/handlers.go
package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/infra/logging"
)

// Webhook bodies are small JSON events; cap reads defensively.
const maxWebhookBody = 1 << 20

type checkoutRequest struct {
	PlanID string `json:"plan_id"`
}

type checkoutResponse struct {
	PaymentID      string  `json:"payment_id"`
	TransactionID  string  `json:"transaction_id"`
	GatewayOrderID string  `json:"gateway_order_id"`
	KeyID          string  `json:"key_id"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := UserID(ctx)

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p, err := s.paymentUC.Initiate(logging.WithUserID(ctx, userID), userID, req.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			http.Error(w, "Invalid plan", http.StatusBadRequest)
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "Plan not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrGatewayUnavailable):
			http.Error(w, "Payment gateway unavailable, try again", http.StatusBadGateway)
		default:
			http.Error(w, "Failed to initiate payment", http.StatusInternalServerError)
		}
		return
	}

	resp := checkoutResponse{
		PaymentID:     p.ID,
		TransactionID: p.TransactionID,
		KeyID:         s.paymentUC.CheckoutKeyID(),
		Amount:        p.Amount,
		Currency:      p.Currency,
	}
	if p.GatewayOrderID != nil {
		resp.GatewayOrderID = *p.GatewayOrderID
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleWebhook receives gateway event deliveries. The signature is checked
// over the raw body before any decoding. Policy: 400 only when the delivery
// itself is bad (signature, undecodable body); every other condition is
// acknowledged with 200 so the gateway stops retrying, and anomalies surface
// through logs and metrics instead.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "Unreadable body", http.StatusBadRequest)
		return
	}
	signature := r.Header.Get("X-Signature")
	if signature == "" {
		signature = r.Header.Get("X-Razorpay-Signature")
	}

	if err := s.reconcileUC.HandleWebhook(ctx, raw, signature); err != nil {
		switch {
		case errors.Is(err, domain.ErrSignatureInvalid):
			http.Error(w, "Invalid signature", http.StatusBadRequest)
		case errors.Is(err, domain.ErrInvalidArgument):
			http.Error(w, "Malformed payload", http.StatusBadRequest)
		default:
			// Transient processing error. Acknowledge anyway; the
			// reconciliation sweep owns recovery from here.
			logging.With(ctx, s.log).Error().Err(err).Msg("webhook processing failed after acknowledgement")
			writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type verifyRequest struct {
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := UserID(ctx)

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p, err := s.reconcileUC.ConfirmClient(ctx, req.GatewayOrderID, req.GatewayPaymentID, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSignatureInvalid):
			http.Error(w, "Signature verification failed", http.StatusBadRequest)
		case errors.Is(err, domain.ErrInvalidArgument):
			http.Error(w, "Missing order or payment id", http.StatusBadRequest)
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "Payment not found", http.StatusNotFound)
		default:
			http.Error(w, "Verification failed", http.StatusInternalServerError)
		}
		return
	}
	if p.UserID != userID {
		http.Error(w, "Payment not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, paymentView(p))
}

func (s *Server) handleCurrentSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := UserID(ctx)

	sub, err := s.subUC.Current(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveSubscription) {
			http.Error(w, "No active subscription", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load subscription", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, subscriptionView(sub))
}

func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := UserID(ctx)
	subID := chi.URLParam(r, "id")

	sub, err := s.subUC.Cancel(ctx, userID, subID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "Subscription not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrNotSubscriptionOwner):
			// Do not reveal that the id exists.
			http.Error(w, "Subscription not found", http.StatusNotFound)
		default:
			http.Error(w, "Failed to cancel subscription", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, subscriptionView(sub))
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := UserID(ctx)

	subs, err := s.subUC.ListByUser(ctx, userID)
	if err != nil {
		http.Error(w, "Failed to load subscriptions", http.StatusInternalServerError)
		return
	}
	views := make([]map[string]any, 0, len(subs))
	for _, sub := range subs {
		views = append(views, subscriptionView(sub))
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscriptions": views})
}

// handleAdminStats reports revenue totals and active subscription counts per
// plan for the operator dashboard.
func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	revenue := map[string]float64{}
	for _, period := range []string{"week", "month", "year"} {
		sum, err := s.paymentUC.SumByPeriod(ctx, period)
		if err != nil {
			http.Error(w, "Failed to compute revenue", http.StatusInternalServerError)
			return
		}
		revenue[period] = sum
	}

	active, err := s.subUC.CountActiveByPlan(ctx)
	if err != nil {
		http.Error(w, "Failed to count subscriptions", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"revenue":              revenue,
		"active_subscriptions": active,
	})
}

func (s *Server) handleInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := UserID(ctx)
	paymentID := chi.URLParam(r, "id")

	p, err := s.paymentUC.GetByID(ctx, paymentID)
	if err != nil || p.UserID != userID {
		http.Error(w, "Payment not found", http.StatusNotFound)
		return
	}

	inv, err := s.invoiceUC.FindForPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Invoice not available", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load invoice", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"invoice_number": inv.InvoiceNumber,
		"amount":         inv.Amount,
		"currency":       inv.Currency,
		"file_url":       inv.FileURL,
		"status":         inv.Status,
		"created_at":     inv.CreatedAt.Format(time.RFC3339),
	})
}

//
// ---------------- response shaping ----------------
//

func paymentView(p *model.Payment) map[string]any {
	v := map[string]any{
		"payment_id":     p.ID,
		"transaction_id": p.TransactionID,
		"status":         p.Status,
		"amount":         p.Amount,
		"currency":       p.Currency,
	}
	if p.SubscriptionID != nil {
		v["subscription_id"] = *p.SubscriptionID
	}
	if p.PaidAt != nil {
		v["paid_at"] = p.PaidAt.Format(time.RFC3339)
	}
	if p.FailureReason != nil {
		v["failure_reason"] = *p.FailureReason
	}
	return v
}

func subscriptionView(sub *model.Subscription) map[string]any {
	return map[string]any{
		"subscription_id": sub.ID,
		"plan_id":         sub.PlanID,
		"status":          sub.Status,
		"start_date":      sub.StartDate.Format(time.RFC3339),
		"end_date":        sub.EndDate.Format(time.RFC3339),
		"auto_renew":      sub.AutoRenew,
		"job_posts_used":  sub.JobPostsUsed,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
