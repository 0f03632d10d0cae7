package models

import "time"

const (
	EventPaymentSucceeded = "payment_succeeded"
	EventPaymentFailed    = "payment_failed"
	EventOrderCanceled    = "order_canceled"
)

type PaymentEvent struct {
	Type             string    `json:"type"`
	OrderID          string    `json:"order_id"`
	StoreID          string    `json:"store_id"`
	PaymentID        string    `json:"payment_id,omitempty"`
	ProcessorOrderID string    `json:"processor_order_id"`
	Amount           int64     `json:"amount"`   // smallest currency unit
	Currency         string    `json:"currency"` // "inr", "usd"
	Timestamp        time.Time `json:"timestamp"`
}
