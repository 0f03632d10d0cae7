package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yashrajoria/storefront-service/apperrors"
	"github.com/yashrajoria/storefront-service/audit"
	"github.com/yashrajoria/storefront-service/config"
	"github.com/yashrajoria/storefront-service/events"
	"github.com/yashrajoria/storefront-service/metrics"
	"github.com/yashrajoria/storefront-service/models"
	"github.com/yashrajoria/storefront-service/orderstate"
	"github.com/yashrajoria/storefront-service/payment"
	"github.com/yashrajoria/storefront-service/repository"
	"go.uber.org/zap"
)

var errSigningSecretUnset = errors.New("payment signing secret is not configured")

// VerifyRequest is a processor confirmation as received from the storefront
// or the callback queue.
type VerifyRequest struct {
	StoreID          string
	ProcessorOrderID string
	PaymentID        string
	Signature        string
	// Source names the entry point for the audit trail ("http", "sqs").
	Source string
}

// SettleRequest is a processor outcome that was authenticated by other means,
// such as a Stripe webhook signature.
type SettleRequest struct {
	StoreID          string
	ProcessorOrderID string
	PaymentID        string
	Succeeded        bool
	Source           string
}

type VerificationResult struct {
	Order *models.Order
	// AlreadyProcessed is set when the order was confirmed by an earlier
	// delivery of the same callback.
	AlreadyProcessed bool
}

// PaymentVerifier authenticates processor callbacks and confirms the matching
// order exactly once.
type PaymentVerifier struct {
	orders   repository.OrderRepository
	secret   config.Secret
	recorder audit.Recorder
	metrics  *metrics.Metrics
	logger   *zap.Logger
	effects  transitionEffects
}

func NewPaymentVerifier(
	orders repository.OrderRepository,
	secret config.Secret,
	publisher events.Publisher,
	m *metrics.Metrics,
	recorder audit.Recorder,
	logger *zap.Logger,
) *PaymentVerifier {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentVerifier{
		orders:   orders,
		secret:   secret,
		recorder: recorder,
		metrics:  m,
		logger:   logger,
		effects:  transitionEffects{publisher: publisher, metrics: m, logger: logger},
	}
}

// Verify checks the callback signature and confirms the order. A replay of an
// already applied callback succeeds with AlreadyProcessed set and no side
// effects.
func (v *PaymentVerifier) Verify(ctx context.Context, req VerifyRequest) (*VerificationResult, error) {
	res, err := v.verify(ctx, req)
	outcome := outcomeOf(res, err)
	v.metrics.Verification(outcome)
	v.audit(ctx, req.Source, req.StoreID, req.ProcessorOrderID, req.PaymentID, res, outcome)
	return res, err
}

func (v *PaymentVerifier) verify(ctx context.Context, req VerifyRequest) (*VerificationResult, error) {
	if strings.TrimSpace(req.Signature) == "" {
		return nil, apperrors.MalformedRequest("Webhook signature missing")
	}
	if req.ProcessorOrderID == "" || req.PaymentID == "" {
		return nil, apperrors.MalformedRequest("processorOrderId and paymentId are required")
	}
	if req.StoreID == "" {
		return nil, apperrors.MalformedRequest("storeId is required")
	}
	if !v.secret.IsSet() {
		v.logger.Error("Payment verification unavailable", zap.Error(errSigningSecretUnset))
		return nil, apperrors.Internal(errSigningSecretUnset)
	}

	if !payment.VerifySignature(v.secret.Reveal(), req.ProcessorOrderID, req.PaymentID, req.Signature) {
		v.logger.Warn("Payment signature mismatch",
			zap.String("store_id", req.StoreID),
			zap.String("processor_order_id", req.ProcessorOrderID),
			zap.String("payment_id", req.PaymentID),
		)
		return nil, apperrors.SignatureInvalid()
	}

	match := repository.OrderMatch{
		StoreID:          req.StoreID,
		ProcessorOrderID: req.ProcessorOrderID,
		PaymentID:        req.PaymentID,
	}
	return v.transition(ctx, match, orderstate.EventConfirmPayment)
}

// Settle applies a processor outcome that has already been authenticated.
// Success confirms the order; failure cancels it with a failed payment.
func (v *PaymentVerifier) Settle(ctx context.Context, req SettleRequest) (*VerificationResult, error) {
	var (
		res *VerificationResult
		err error
	)
	if req.StoreID == "" || req.ProcessorOrderID == "" {
		err = apperrors.MalformedRequest("storeId and processorOrderId are required")
	} else {
		ev := orderstate.EventFailPayment
		match := repository.OrderMatch{StoreID: req.StoreID, ProcessorOrderID: req.ProcessorOrderID}
		if req.Succeeded {
			ev = orderstate.EventConfirmPayment
			match.PaymentID = req.PaymentID
		}
		res, err = v.transition(ctx, match, ev)
	}

	outcome := outcomeOf(res, err)
	if outcome == metrics.OutcomeConfirmed && !req.Succeeded {
		outcome = metrics.OutcomePaymentFailed
	}
	v.metrics.Verification(outcome)
	v.audit(ctx, req.Source, req.StoreID, req.ProcessorOrderID, req.PaymentID, res, outcome)
	return res, err
}

func (v *PaymentVerifier) transition(ctx context.Context, match repository.OrderMatch, ev orderstate.Event) (*VerificationResult, error) {
	order, changed, err := v.orders.ApplyTransition(ctx, match, ev)
	if err != nil {
		appErr := transitionError(err)
		if apperrors.KindOf(appErr) != apperrors.KindNotFound {
			v.logger.Error("Order transition failed",
				zap.String("event", string(ev)),
				zap.String("store_id", match.StoreID),
				zap.String("processor_order_id", match.ProcessorOrderID),
				zap.String("payment_id", match.PaymentID),
				zap.Error(err),
			)
		}
		return nil, appErr
	}

	if changed {
		v.effects.applied(ctx, order, ev)
		v.logger.Info("Order transitioned",
			zap.String("event", string(ev)),
			zap.String("store_id", order.StoreID),
			zap.String("order_id", order.ID.String()),
			zap.String("order_status", string(order.OrderStatus)),
		)
	}
	return &VerificationResult{Order: order, AlreadyProcessed: !changed}, nil
}

func (v *PaymentVerifier) audit(ctx context.Context, source, storeID, processorOrderID, paymentID string, res *VerificationResult, outcome string) {
	if source == "" {
		source = "http"
	}
	a := audit.Attempt{
		StoreID:          storeID,
		Source:           source,
		ProcessorOrderID: processorOrderID,
		PaymentID:        paymentID,
		Outcome:          outcome,
		At:               time.Now().UTC(),
	}
	if res != nil && res.Order != nil {
		a.OrderID = res.Order.ID.String()
	}

	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := v.recorder.Record(auditCtx, a); err != nil {
		v.logger.Warn("Failed to record verification attempt", zap.String("store_id", storeID), zap.Error(err))
	}
}

func outcomeOf(res *VerificationResult, err error) string {
	if err == nil {
		if res != nil && res.AlreadyProcessed {
			return metrics.OutcomeAlreadyProcessed
		}
		return metrics.OutcomeConfirmed
	}
	switch apperrors.KindOf(err) {
	case apperrors.KindMalformedRequest:
		return metrics.OutcomeMalformed
	case apperrors.KindSignatureInvalid:
		return metrics.OutcomeSignatureInvalid
	case apperrors.KindNotFound:
		return metrics.OutcomeNotFound
	case apperrors.KindInvalidTransition:
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}
