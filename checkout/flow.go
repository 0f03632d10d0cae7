package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yashrajoria/storefront-service/cart"
	"github.com/yashrajoria/storefront-service/models"
	"go.uber.org/zap"
)

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeCanceled means the shopper closed the widget. It is not an error.
	OutcomeCanceled Outcome = "canceled"
	OutcomeFailed   Outcome = "failed"
)

type Result struct {
	Outcome      Outcome
	Session      *models.CheckoutSession
	Verification *models.VerifyPaymentResponse
	Err          error
}

// Display describes the storefront in the widget.
type Display struct {
	Name         string
	Description  string
	PrefillEmail string
	ThemeColor   string
}

// Flow runs one checkout attempt for a tenant's cart. The cart is cleared
// only after the backend has verified the payment.
type Flow struct {
	carts         *cart.Factory
	initiator     *Initiator
	widget        PaymentWidget
	backend       BackendClient
	display       Display
	verifyTimeout time.Duration
	logger        *zap.Logger
}

func NewFlow(carts *cart.Factory, backend BackendClient, widget PaymentWidget, display Display, timeout time.Duration, logger *zap.Logger) *Flow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flow{
		carts:         carts,
		initiator:     NewInitiator(backend, timeout),
		widget:        widget,
		backend:       backend,
		display:       display,
		verifyTimeout: timeout,
		logger:        logger,
	}
}

type widgetEvent struct {
	result    WidgetResult
	dismissed bool
}

func (f *Flow) Run(ctx context.Context, tenantID string) Result {
	store, err := f.carts.For(tenantID)
	if err != nil {
		return f.failed(nil, err)
	}

	session, err := f.initiator.InitiateCheckout(ctx, tenantID, store.ProductIDs())
	if err != nil {
		return f.failed(nil, err)
	}

	events := make(chan widgetEvent, 1)
	var once sync.Once
	deliver := func(ev widgetEvent) {
		once.Do(func() { events <- ev })
	}

	err = f.widget.Open(WidgetOptions{
		KeyID:            session.KeyID,
		Amount:           session.Amount,
		Currency:         session.Currency,
		Name:             f.display.Name,
		Description:      f.display.Description,
		ProcessorOrderID: session.ProcessorOrderID,
		PrefillEmail:     f.display.PrefillEmail,
		ThemeColor:       f.display.ThemeColor,
	}, WidgetCallbacks{
		OnSuccess: func(r WidgetResult) { deliver(widgetEvent{result: r}) },
		OnDismiss: func() { deliver(widgetEvent{dismissed: true}) },
	})
	if err != nil {
		return f.failed(session, fmt.Errorf("open payment widget: %w", err))
	}

	var ev widgetEvent
	select {
	case <-ctx.Done():
		return f.failed(session, ctx.Err())
	case ev = <-events:
	}

	if ev.dismissed {
		f.logger.Info("Checkout canceled by shopper", zap.String("tenant_id", tenantID), zap.String("processor_order_id", session.ProcessorOrderID))
		return Result{Outcome: OutcomeCanceled, Session: session}
	}

	verifyCtx := ctx
	if f.verifyTimeout > 0 {
		var cancel context.CancelFunc
		verifyCtx, cancel = context.WithTimeout(ctx, f.verifyTimeout)
		defer cancel()
	}
	verification, err := f.backend.VerifyPayment(verifyCtx, tenantID, models.VerifyPaymentRequest{
		ProcessorOrderID: ev.result.ProcessorOrderID,
		PaymentID:        ev.result.PaymentID,
		Signature:        ev.result.Signature,
	})
	if err != nil {
		return f.failed(session, fmt.Errorf("verify payment: %w", err))
	}

	store.RemoveAll()
	return Result{Outcome: OutcomeSucceeded, Session: session, Verification: verification}
}

func (f *Flow) failed(session *models.CheckoutSession, err error) Result {
	f.logger.Warn("Checkout failed", zap.Error(err))
	return Result{Outcome: OutcomeFailed, Session: session, Err: err}
}
