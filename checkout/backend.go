// Package checkout drives a storefront checkout from the shopper's side: it
// opens a session with the order backend, hands the processor order to the
// payment widget and reports how the attempt ended.
package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yashrajoria/storefront-service/models"
)

// BackendClient is the order backend as seen from the storefront.
type BackendClient interface {
	OpenSession(ctx context.Context, tenantID string, req models.CheckoutRequest) (*models.CheckoutResponse, error)
	VerifyPayment(ctx context.Context, tenantID string, req models.VerifyPaymentRequest) (*models.VerifyPaymentResponse, error)
}

// BackendError is a non-2xx answer from the order backend.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("order backend returned %d: %s", e.Status, e.Message)
}

// HTTPBackend talks to the storefront API over HTTP.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

func NewHTTPBackend(baseURL string, timeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (b *HTTPBackend) OpenSession(ctx context.Context, tenantID string, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	var out models.CheckoutResponse
	if err := b.post(ctx, tenantID, "checkout", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *HTTPBackend) VerifyPayment(ctx context.Context, tenantID string, req models.VerifyPaymentRequest) (*models.VerifyPaymentResponse, error) {
	var out models.VerifyPaymentResponse
	if err := b.post(ctx, tenantID, "verify-payment", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *HTTPBackend) post(ctx context.Context, tenantID, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/api/%s/%s", b.baseURL, url.PathEscape(tenantID), path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("order backend %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &BackendError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}
