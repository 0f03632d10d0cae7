package processor_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/storefront-service/config"
	"github.com/yashrajoria/storefront-service/processor"
)

func TestRazorpayCreateOrder_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_key", user)
		assert.Equal(t, "shh", pass)

		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, float64(1500), body["amount"])
		assert.Equal(t, "INR", body["currency"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_1","amount":1500,"currency":"INR","status":"created"}`))
	}))
	defer srv.Close()

	rp := processor.NewRazorpay(srv.URL+"/", "rzp_key", config.Secret("shh"), time.Second)
	order, err := rp.CreateOrder(context.Background(), processor.OrderRequest{Amount: 1500, Currency: "INR", Receipt: "r1"})
	require.NoError(t, err)
	assert.Equal(t, "order_1", order.ID)
	assert.Equal(t, int64(1500), order.Amount)
	assert.Equal(t, "rzp_key", rp.KeyID())
	assert.Equal(t, "razorpay", rp.Name())
}

func TestRazorpayCreateOrder_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	}))
	defer srv.Close()

	rp := processor.NewRazorpay(srv.URL, "rzp_key", config.Secret("shh"), time.Second)
	_, err := rp.CreateOrder(context.Background(), processor.OrderRequest{Amount: 1, Currency: "INR"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BAD_REQUEST_ERROR")
	assert.NotContains(t, err.Error(), "shh")
}

func TestRazorpayCreateOrder_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	rp := processor.NewRazorpay(srv.URL, "rzp_key", config.Secret("shh"), 50*time.Millisecond)
	_, err := rp.CreateOrder(context.Background(), processor.OrderRequest{Amount: 100, Currency: "INR"})
	assert.Error(t, err)
}

func TestRazorpayCreateOrder_EmptyID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"amount":100}`))
	}))
	defer srv.Close()

	rp := processor.NewRazorpay(srv.URL, "rzp_key", config.Secret("shh"), time.Second)
	_, err := rp.CreateOrder(context.Background(), processor.OrderRequest{Amount: 100, Currency: "INR"})
	assert.Error(t, err)
}
