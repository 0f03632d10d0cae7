// Package consumer feeds queued processor callbacks into the payment verifier.
package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/yashrajoria/storefront-service/apperrors"
	"github.com/yashrajoria/storefront-service/metrics"
	"github.com/yashrajoria/storefront-service/models"
	awspkg "github.com/yashrajoria/storefront-service/pkg/aws"
	"github.com/yashrajoria/storefront-service/services"
	"go.uber.org/zap"
)

const (
	resultApplied  = "applied"
	resultRejected = "rejected"
	resultRetry    = "retry"
)

type Verifier interface {
	Verify(ctx context.Context, req services.VerifyRequest) (*services.VerificationResult, error)
}

// Poller is the queue side; *awspkg.SQSConsumer implements it.
type Poller interface {
	StartPolling(ctx context.Context, handler awspkg.MessageHandler) error
}

type CallbackConsumer struct {
	poller   Poller
	verifier Verifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewCallbackConsumer(poller Poller, verifier Verifier, m *metrics.Metrics, logger *zap.Logger) *CallbackConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CallbackConsumer{poller: poller, verifier: verifier, metrics: m, logger: logger}
}

// Start polls until ctx is canceled.
func (c *CallbackConsumer) Start(ctx context.Context) {
	c.logger.Info("Starting payment callback consumer")
	if err := c.poller.StartPolling(ctx, c.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("Payment callback polling stopped", zap.Error(err))
	}
}

// HandleMessage verifies one queued callback. Only internal failures are
// returned, which leaves the message for redelivery; everything else is
// acknowledged because a retry would end the same way.
func (c *CallbackConsumer) HandleMessage(ctx context.Context, body string) error {
	var envelope struct {
		Message string `json:"Message"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && envelope.Message != "" {
		body = envelope.Message
	}

	var cb models.PaymentCallback
	if err := json.Unmarshal([]byte(body), &cb); err != nil {
		c.logger.Warn("Dropping unparseable payment callback", zap.Error(err))
		c.metrics.Callback(resultRejected)
		return nil
	}

	res, err := c.verifier.Verify(ctx, services.VerifyRequest{
		StoreID:          cb.StoreID,
		ProcessorOrderID: cb.ProcessorOrderID,
		PaymentID:        cb.PaymentID,
		Signature:        cb.Signature,
		Source:           "sqs",
	})
	if err == nil {
		c.metrics.Callback(resultApplied)
		c.logger.Info("Payment callback applied",
			zap.String("store_id", cb.StoreID),
			zap.String("processor_order_id", cb.ProcessorOrderID),
			zap.Bool("already_processed", res.AlreadyProcessed),
		)
		return nil
	}

	kind := apperrors.KindOf(err)
	if kind == apperrors.KindInternal {
		c.metrics.Callback(resultRetry)
		return err
	}

	c.metrics.Callback(resultRejected)
	c.logger.Warn("Payment callback rejected",
		zap.String("store_id", cb.StoreID),
		zap.String("processor_order_id", cb.ProcessorOrderID),
		zap.String("payment_id", cb.PaymentID),
		zap.String("reason", kind.String()),
	)
	return nil
}
