package processor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/stripe/stripe-go/v80/webhook"
	"github.com/yashrajoria/storefront-service/config"
)

// Stripe opens PaymentIntents and authenticates Stripe webhooks.
type Stripe struct {
	publishableKey string
	webhookKey     config.Secret
}

func NewStripe(secretKey config.Secret, webhookKey config.Secret, publishableKey string) *Stripe {
	stripe.Key = string(secretKey.Reveal())
	return &Stripe{publishableKey: publishableKey, webhookKey: webhookKey}
}

func (s *Stripe) Name() string  { return config.ProcessorStripe }
func (s *Stripe) KeyID() string { return s.publishableKey }

func (s *Stripe) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(strings.ToLower(req.Currency)),
	}
	params.Context = ctx
	for k, v := range req.Notes {
		params.AddMetadata(k, v)
	}
	if req.Receipt != "" {
		params.AddMetadata("receipt", req.Receipt)
	}
	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}
	return &Order{
		ID:       pi.ID,
		Amount:   pi.Amount,
		Currency: strings.ToUpper(string(pi.Currency)),
		Status:   string(pi.Status),
	}, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
// The request body is restored so later handlers can read it again.
func (s *Stripe) ParseWebhook(r *http.Request) (stripe.Event, error) {
	var event stripe.Event
	payload, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		return event, err
	}
	r.Body = io.NopCloser(bytes.NewBuffer(payload))
	sigHeader := r.Header.Get("Stripe-Signature")
	return webhook.ConstructEvent(payload, sigHeader, string(s.webhookKey.Reveal()))
}
