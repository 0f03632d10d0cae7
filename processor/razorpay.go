package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yashrajoria/storefront-service/config"
)

// Razorpay talks to the Razorpay orders API.
type Razorpay struct {
	baseURL    string
	keyID      string
	keySecret  config.Secret
	httpClient *http.Client
}

func NewRazorpay(baseURL, keyID string, keySecret config.Secret, timeout time.Duration) *Razorpay {
	return &Razorpay{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		keyID:     keyID,
		keySecret: keySecret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (r *Razorpay) Name() string  { return config.ProcessorRazorpay }
func (r *Razorpay) KeyID() string { return r.keyID }

type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder handles POST /v1/orders
func (r *Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	body, err := json.Marshal(razorpayOrderRequest{
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(r.keyID, string(r.keySecret.Reveal()))

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: read body: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr razorpayError
		_ = json.Unmarshal(respBody, &apiErr)
		if apiErr.Error.Code != "" {
			return nil, fmt.Errorf("razorpay create order: status %d: %s: %s", resp.StatusCode, apiErr.Error.Code, apiErr.Error.Description)
		}
		return nil, fmt.Errorf("razorpay create order: status %d", resp.StatusCode)
	}

	var out razorpayOrder
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("razorpay create order: decode: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("razorpay create order: empty order id")
	}
	return &Order{ID: out.ID, Amount: out.Amount, Currency: out.Currency, Status: out.Status}, nil
}
