package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yashrajoria/storefront-service/models"
)

var ErrEmptyProductList = errors.New("checkout requires at least one product")

// Initiator opens checkout sessions. It only ever sends product ids; the
// backend prices them.
type Initiator struct {
	backend BackendClient
	timeout time.Duration
}

func NewInitiator(backend BackendClient, timeout time.Duration) *Initiator {
	return &Initiator{backend: backend, timeout: timeout}
}

func (i *Initiator) InitiateCheckout(ctx context.Context, tenantID string, productIDs []string) (*models.CheckoutSession, error) {
	if len(productIDs) == 0 {
		return nil, ErrEmptyProductList
	}

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	ids := append([]string(nil), productIDs...)
	resp, err := i.backend.OpenSession(ctx, tenantID, models.CheckoutRequest{ProductIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("open checkout session: %w", err)
	}

	return &models.CheckoutSession{
		SessionID:        resp.OrderID,
		TenantID:         tenantID,
		ProductIDs:       ids,
		Amount:           resp.Amount,
		Currency:         resp.Currency,
		ProcessorOrderID: resp.OrderID,
		KeyID:            resp.KeyID,
	}, nil
}
