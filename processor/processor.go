// Package processor opens payment orders with an external payment processor.
package processor

import "context"

type OrderRequest struct {
	Amount   int64 // smallest currency unit
	Currency string
	Receipt  string
	Notes    map[string]string
}

type Order struct {
	ID       string
	Amount   int64
	Currency string
	Status   string
}

// Processor creates the processor-side order a checkout widget pays against.
type Processor interface {
	Name() string
	// KeyID is the public key the storefront widget is initialised with.
	KeyID() string
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
}
