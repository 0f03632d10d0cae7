package models

// CheckoutSession is one checkout attempt against the payment processor.
type CheckoutSession struct {
	SessionID        string   `json:"sessionId"`
	TenantID         string   `json:"tenantId"`
	ProductIDs       []string `json:"productIds"`
	Amount           int64    `json:"amount"`
	Currency         string   `json:"currency"`
	ProcessorOrderID string   `json:"processorOrderId"`
	KeyID            string   `json:"keyId"`
}

// CheckoutRequest carries product identifiers only; prices are resolved on
// the server.
type CheckoutRequest struct {
	ProductIDs []string `json:"productIds"`
}

type CheckoutResponse struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}

type VerifyPaymentRequest struct {
	ProcessorOrderID string `json:"processorOrderId"`
	PaymentID        string `json:"paymentId"`
	Signature        string `json:"signature"`
}

type VerifyPaymentResponse struct {
	Message    string      `json:"message"`
	OrderID    string      `json:"orderId,omitempty"`
	OrderItems []OrderItem `json:"orderItems"`
}

// PaymentCallback is the queued form of a processor confirmation.
type PaymentCallback struct {
	StoreID          string `json:"storeId"`
	ProcessorOrderID string `json:"processorOrderId"`
	PaymentID        string `json:"paymentId"`
	Signature        string `json:"signature"`
}
