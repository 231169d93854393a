package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.PaymentGateway = (*RazorpayGateway)(nil)

// RazorpayGateway implements the gateway port using direct HTTP calls.
// It holds only immutable credentials and is safe for concurrent use.
type RazorpayGateway struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	client        *http.Client
}

// NewRazorpayGateway creates a gateway client. baseURL defaults to the
// production API when empty.
func NewRazorpayGateway(keyID, keySecret, webhookSecret, baseURL string) (*RazorpayGateway, error) {
	if keyID == "" || keySecret == "" {
		return nil, domain.ErrInvalidArgument
	}
	if baseURL == "" {
		baseURL = "https://api.razorpay.com/v1"
	}
	return &RazorpayGateway{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		baseURL:       baseURL,
		client:        &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *RazorpayGateway) Name() string  { return "razorpay" }
func (g *RazorpayGateway) KeyID() string { return g.keyID }

// orderResponse represents the response from the order creation API.
type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Error    struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// orderPaymentsResponse represents the response from the order payments API.
type orderPaymentsResponse struct {
	Count int `json:"count"`
	Items []struct {
		ID               string `json:"id"`
		Status           string `json:"status"` // created|authorized|captured|refunded|failed
		ErrorDescription string `json:"error_description"`
	} `json:"items"`
}

// MinorUnits converts a major-unit amount to the gateway's integer minor-unit
// representation. The conversion must be exact for the supported currency.
func MinorUnits(amount float64) (int64, error) {
	scaled := amount * 100
	rounded := math.Round(scaled)
	if math.Abs(scaled-rounded) > 1e-6 || rounded < 0 {
		return 0, domain.ErrAmountPrecision
	}
	return int64(rounded), nil
}

// CreateOrder registers an order with the gateway.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount float64, currency, receipt string) (*adapter.GatewayOrder, error) {
	minor, err := MinorUnits(amount)
	if err != nil {
		return nil, err
	}

	requestData := map[string]interface{}{
		"amount":   minor,
		"currency": currency,
		"receipt":  receipt,
	}
	jsonData, err := json.Marshal(requestData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrGatewayUnavailable, err)
	}

	var response orderResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %v, body: %s", domain.ErrGatewayUnavailable, err, string(body))
	}
	if resp.StatusCode != http.StatusOK || response.ID == "" {
		return nil, fmt.Errorf("%w: status %d code=%s description=%s", domain.ErrGatewayUnavailable, resp.StatusCode, response.Error.Code, response.Error.Description)
	}

	return &adapter.GatewayOrder{
		ID:       response.ID,
		Amount:   response.Amount,
		Currency: response.Currency,
		Status:   response.Status,
	}, nil
}

// FetchOrderStatus polls the payments recorded against an order.
func (g *RazorpayGateway) FetchOrderStatus(ctx context.Context, orderID string) (*adapter.OrderState, error) {
	if orderID == "" {
		return nil, domain.ErrInvalidArgument
	}

	url := fmt.Sprintf("%s/orders/%s/payments", g.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrGatewayUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d, body: %s", domain.ErrGatewayUnavailable, resp.StatusCode, string(body))
	}

	var response orderPaymentsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %v", domain.ErrGatewayUnavailable, err)
	}

	state := &adapter.OrderState{}
	for _, item := range response.Items {
		switch item.Status {
		case "captured":
			state.Paid = true
			state.GatewayPaymentID = item.ID
			return state, nil
		case "failed":
			state.GatewayPaymentID = item.ID
			state.FailureReason = item.ErrorDescription
		}
	}
	return state, nil
}
