// Package orderstate holds the order lifecycle. Orders start pending and end
// confirmed or canceled; nothing moves an order back to pending.
package orderstate

import (
	"errors"
	"fmt"

	"github.com/yashrajoria/storefront-service/models"
)

type Event string

const (
	EventConfirmPayment Event = "confirm_payment"
	EventFailPayment    Event = "fail_payment"
	EventCancel         Event = "cancel"
)

var ErrInvalidTransition = errors.New("invalid order transition")

// TransitionError reports an event that is not allowed from the current state.
type TransitionError struct {
	From  models.OrderStatus
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot apply %s to %s order", e.Event, e.From)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// State is the slice of an order the lifecycle cares about.
type State struct {
	OrderStatus   models.OrderStatus
	PaymentStatus models.PaymentStatus
	IsPaid        bool
}

// StateOf extracts the lifecycle state of an order.
func StateOf(o *models.Order) State {
	return State{OrderStatus: o.OrderStatus, PaymentStatus: o.PaymentStatus, IsPaid: o.IsPaid}
}

// Apply returns the state after ev. changed is false when the order is already
// where ev would put it.
func Apply(cur State, ev Event) (next State, changed bool, err error) {
	switch ev {
	case EventConfirmPayment:
		switch cur.OrderStatus {
		case models.OrderStatusPending:
			return State{
				OrderStatus:   models.OrderStatusConfirmed,
				PaymentStatus: models.PaymentStatusPaid,
				IsPaid:        true,
			}, true, nil
		case models.OrderStatusConfirmed:
			return cur, false, nil
		}
	case EventFailPayment:
		switch cur.OrderStatus {
		case models.OrderStatusPending:
			return State{
				OrderStatus:   models.OrderStatusCanceled,
				PaymentStatus: models.PaymentStatusFailed,
			}, true, nil
		case models.OrderStatusCanceled:
			return cur, false, nil
		}
	case EventCancel:
		switch cur.OrderStatus {
		case models.OrderStatusPending:
			next = cur
			next.OrderStatus = models.OrderStatusCanceled
			return next, true, nil
		case models.OrderStatusCanceled:
			return cur, false, nil
		}
	default:
		return cur, false, fmt.Errorf("unknown order event %q: %w", ev, ErrInvalidTransition)
	}
	return cur, false, &TransitionError{From: cur.OrderStatus, Event: ev}
}

// Confirm records a verified payment.
func Confirm(cur State) (State, bool, error) { return Apply(cur, EventConfirmPayment) }

// FailPayment records a payment the processor declined.
func FailPayment(cur State) (State, bool, error) { return Apply(cur, EventFailPayment) }

// Cancel is the merchant-initiated cancellation.
func Cancel(cur State) (State, bool, error) { return Apply(cur, EventCancel) }

// Sources lists the order statuses from which ev performs a real transition.
// Stores use it as the precondition of their conditional update.
func Sources(ev Event) []models.OrderStatus {
	switch ev {
	case EventConfirmPayment, EventFailPayment, EventCancel:
		return []models.OrderStatus{models.OrderStatusPending}
	}
	return nil
}
