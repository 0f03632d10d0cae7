package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v80"
	"github.com/yashrajoria/storefront-service/apperrors"
	"github.com/yashrajoria/storefront-service/models"
	"github.com/yashrajoria/storefront-service/services"
	"go.uber.org/zap"
)

const (
	msgPaymentVerified  = "Payment verified successfully"
	msgAlreadyProcessed = "Payment already verified"
)

type PaymentVerifier interface {
	Verify(ctx context.Context, req services.VerifyRequest) (*services.VerificationResult, error)
	Settle(ctx context.Context, req services.SettleRequest) (*services.VerificationResult, error)
}

// WebhookParser authenticates and decodes a Stripe webhook request.
type WebhookParser interface {
	ParseWebhook(r *http.Request) (stripe.Event, error)
}

type PaymentController struct {
	verifier PaymentVerifier
	webhooks WebhookParser
	logger   *zap.Logger
}

// NewPaymentController wires the verify endpoint. webhooks may be nil when
// the store does not use Stripe.
func NewPaymentController(verifier PaymentVerifier, webhooks WebhookParser, logger *zap.Logger) *PaymentController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentController{verifier: verifier, webhooks: webhooks, logger: logger}
}

func (pc *PaymentController) VerifyPayment(c *gin.Context) {
	var req models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	res, err := pc.verifier.Verify(c.Request.Context(), services.VerifyRequest{
		StoreID:          c.Param("storeId"),
		ProcessorOrderID: req.ProcessorOrderID,
		PaymentID:        req.PaymentID,
		Signature:        req.Signature,
		Source:           "http",
	})
	if err != nil {
		writeError(c, err)
		return
	}

	msg := msgPaymentVerified
	if res.AlreadyProcessed {
		msg = msgAlreadyProcessed
	}
	items := res.Order.OrderItems
	if items == nil {
		items = []models.OrderItem{}
	}
	c.JSON(http.StatusOK, models.VerifyPaymentResponse{
		Message:    msg,
		OrderID:    res.Order.ID.String(),
		OrderItems: items,
	})
}

// VerifyPaymentPreflight answers OPTIONS requests that arrive without an
// Origin header; browser preflights are answered by the CORS middleware.
func (pc *PaymentController) VerifyPaymentPreflight(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
	c.JSON(http.StatusOK, gin.H{})
}

// StripeWebhook settles orders paid through Stripe.
func (pc *PaymentController) StripeWebhook(c *gin.Context) {
	if pc.webhooks == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Stripe is not enabled"})
		return
	}

	event, err := pc.webhooks.ParseWebhook(c.Request)
	if err != nil {
		pc.logger.Warn("Stripe webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	pc.logger.Info("Processing Stripe webhook",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
	)

	var succeeded bool
	switch event.Type {
	case "payment_intent.succeeded":
		succeeded = true
	case "payment_intent.payment_failed":
		succeeded = false
	default:
		pc.logger.Info("Unhandled webhook event type", zap.String("event_type", string(event.Type)))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		pc.logger.Error("Failed to unmarshal payment intent", zap.String("event_id", event.ID), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment intent"})
		return
	}

	_, err = pc.verifier.Settle(c.Request.Context(), services.SettleRequest{
		StoreID:          pi.Metadata["store_id"],
		ProcessorOrderID: pi.ID,
		PaymentID:        pi.ID,
		Succeeded:        succeeded,
		Source:           "stripe",
	})
	// Only internal failures are worth a Stripe redelivery.
	if err != nil && apperrors.KindOf(err) == apperrors.KindInternal {
		writeError(c, err)
		return
	}
	if err != nil {
		pc.logger.Warn("Stripe webhook not applied",
			zap.String("event_id", event.ID),
			zap.String("payment_intent", pi.ID),
			zap.String("reason", apperrors.KindOf(err).String()),
		)
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
