package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderStatus string

type PaymentStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCanceled  OrderStatus = "canceled"

	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Order is a storefront order. Amount is in the currency's smallest unit and
// is always computed server-side at checkout.
type Order struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StoreID          string         `gorm:"type:varchar(64);not null;index" json:"storeId"`
	ProcessorOrderID string         `gorm:"type:varchar(128);not null;uniqueIndex" json:"processorOrderId"`
	PaymentID        *string        `gorm:"type:varchar(128);uniqueIndex" json:"paymentId,omitempty"`
	Amount           int64          `gorm:"not null" json:"amount"`
	Currency         string         `gorm:"type:varchar(8);not null" json:"currency"`
	IsPaid           bool           `gorm:"not null;default:false" json:"isPaid"`
	PaymentStatus    PaymentStatus  `gorm:"type:varchar(16);not null;default:'pending'" json:"paymentStatus"`
	OrderStatus      OrderStatus    `gorm:"type:varchar(16);not null;default:'pending';index" json:"orderStatus"`
	PaidAt           *time.Time     `json:"paidAt,omitempty"`
	CanceledAt       *time.Time     `json:"canceledAt,omitempty"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
	OrderItems       []OrderItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"orderItems"`
}

// OrderItem snapshots the catalog price of a product at checkout time.
type OrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"orderId"`
	ProductID string    `gorm:"type:varchar(64);not null" json:"productId"`
	Price     int64     `gorm:"not null" json:"price"`
}
