// Package events publishes payment lifecycle events to downstream consumers.
package events

import (
	"context"
	"errors"

	"github.com/yashrajoria/storefront-service/models"
)

type Publisher interface {
	PublishPaymentEvent(ctx context.Context, event models.PaymentEvent) error
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) PublishPaymentEvent(ctx context.Context, event models.PaymentEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.PublishPaymentEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
