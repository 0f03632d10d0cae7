package services

import (
	"context"
	"errors"
	"time"

	"github.com/yashrajoria/storefront-service/apperrors"
	"github.com/yashrajoria/storefront-service/events"
	"github.com/yashrajoria/storefront-service/metrics"
	"github.com/yashrajoria/storefront-service/models"
	"github.com/yashrajoria/storefront-service/orderstate"
	"github.com/yashrajoria/storefront-service/repository"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

var eventTypes = map[orderstate.Event]string{
	orderstate.EventConfirmPayment: models.EventPaymentSucceeded,
	orderstate.EventFailPayment:    models.EventPaymentFailed,
	orderstate.EventCancel:         models.EventOrderCanceled,
}

// transitionEffects runs the side effects of a transition that actually
// changed an order. Callers skip it for idempotent replays.
type transitionEffects struct {
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func (t transitionEffects) applied(ctx context.Context, order *models.Order, ev orderstate.Event) {
	t.metrics.Transition(string(ev))
	if t.publisher == nil {
		return
	}

	event := models.PaymentEvent{
		Type:             eventTypes[ev],
		OrderID:          order.ID.String(),
		StoreID:          order.StoreID,
		ProcessorOrderID: order.ProcessorOrderID,
		Amount:           order.Amount,
		Currency:         order.Currency,
		Timestamp:        time.Now().UTC(),
	}
	if order.PaymentID != nil {
		event.PaymentID = *order.PaymentID
	}

	// The order row is already committed; a lost event is logged, not retried
	// through the caller.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := t.publisher.PublishPaymentEvent(pubCtx, event); err != nil {
		t.logger.Error("Failed to publish payment event",
			zap.String("type", event.Type),
			zap.String("store_id", event.StoreID),
			zap.String("order_id", event.OrderID),
			zap.Error(err),
		)
	}
}

// transitionError maps repository and lifecycle failures onto the
// application taxonomy.
func transitionError(err error) error {
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		return apperrors.NotFound("Order not found")
	case errors.Is(err, orderstate.ErrInvalidTransition):
		return apperrors.InvalidTransition(err)
	default:
		return apperrors.Internal(err)
	}
}
