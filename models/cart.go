package models

import "time"

// CartItem is one line of a shopper's cart. UnitPrice is for display only and
// is never sent to the order backend.
type CartItem struct {
	ProductID string `json:"productId" dynamodbav:"product_id" binding:"required" validate:"required,max=64"`
	UnitPrice int64  `json:"unitPrice" dynamodbav:"unit_price" validate:"gte=0"`
}

type Cart struct {
	TenantID  string     `json:"tenantId"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updatedAt,omitempty"`
}
