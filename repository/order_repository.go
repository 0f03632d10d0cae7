package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-service/models"
	"github.com/yashrajoria/storefront-service/orderstate"
	"gorm.io/gorm"
)

var ErrOrderNotFound = errors.New("order not found")

// boundFirst orders an order bound to the callback's payment ahead of an
// unbound one.
const boundFirst = "payment_id IS NULL"

// ErrConcurrentUpdate is returned when an order left the precondition state
// between the conditional update and the read-back.
var ErrConcurrentUpdate = errors.New("order changed concurrently")

// OrderMatch selects the order a transition applies to, always within one
// store. OrderID wins when set. Otherwise PaymentID matches the order bound to
// that payment, or the still unbound order created for ProcessorOrderID.
type OrderMatch struct {
	StoreID          string
	OrderID          uuid.UUID
	ProcessorOrderID string
	PaymentID        string
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, storeID string, id uuid.UUID) (*models.Order, error)
	FindAll(ctx context.Context, storeID string, page, limit int) ([]models.Order, int64, error)
	Delete(ctx context.Context, storeID string, id uuid.UUID) error
	// ApplyTransition moves the matched order with one conditional UPDATE.
	// changed is false when the order was already in the target state.
	ApplyTransition(ctx context.Context, match OrderMatch, ev orderstate.Event) (order *models.Order, changed bool, err error)
}

type gormOrderRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormOrderRepository(db *gorm.DB) OrderRepository {
	return &gormOrderRepository{db: db, now: time.Now}
}

func (r *gormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *gormOrderRepository) FindByID(ctx context.Context, storeID string, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("OrderItems").
		Where("store_id = ? AND id = ?", storeID, id).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *gormOrderRepository) FindAll(ctx context.Context, storeID string, page, limit int) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("store_id = ?", storeID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Preload("OrderItems").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *gormOrderRepository) Delete(ctx context.Context, storeID string, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("store_id = ? AND id = ?", storeID, id).
		Delete(&models.Order{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *gormOrderRepository) ApplyTransition(ctx context.Context, match OrderMatch, ev orderstate.Event) (*models.Order, bool, error) {
	sources := orderstate.Sources(ev)
	if len(sources) == 0 {
		return nil, false, fmt.Errorf("event %q: %w", ev, orderstate.ErrInvalidTransition)
	}

	res := r.target(ctx, match).
		Where("order_status IN ?", sources).
		Updates(transitionColumns(ev, match, r.now()))
	if res.Error != nil {
		return nil, false, res.Error
	}

	order, err := r.load(ctx, match)
	if err != nil {
		return nil, false, err
	}
	if res.RowsAffected > 0 {
		return order, true, nil
	}

	// Nothing matched the precondition: either the order is already where ev
	// leads, or ev is not allowed from its current state.
	_, changed, err := orderstate.Apply(orderstate.StateOf(order), ev)
	if err != nil {
		return order, false, err
	}
	if changed {
		return order, false, ErrConcurrentUpdate
	}
	return order, false, nil
}

func (r *gormOrderRepository) scope(ctx context.Context, match OrderMatch) *gorm.DB {
	q := r.db.WithContext(ctx).Where("store_id = ?", match.StoreID)
	switch {
	case match.OrderID != uuid.Nil:
		q = q.Where("id = ?", match.OrderID)
	case match.PaymentID != "":
		q = q.Where("(payment_id = ? OR (payment_id IS NULL AND processor_order_id = ?))", match.PaymentID, match.ProcessorOrderID)
	default:
		q = q.Where("processor_order_id = ?", match.ProcessorOrderID)
	}
	return q
}

// target narrows an update to the single order load would return. A payment
// already bound to one order must not also match an unbound order named by
// the same callback's processor order id.
func (r *gormOrderRepository) target(ctx context.Context, match OrderMatch) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if match.OrderID != uuid.Nil {
		return q.Where("store_id = ? AND id = ?", match.StoreID, match.OrderID)
	}
	one := r.scope(ctx, match).
		Model(&models.Order{}).
		Select("id").
		Order(boundFirst).
		Limit(1)
	return q.Where("id = (?)", one)
}

func (r *gormOrderRepository) load(ctx context.Context, match OrderMatch) (*models.Order, error) {
	var order models.Order
	err := r.scope(ctx, match).Preload("OrderItems").Order(boundFirst).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func transitionColumns(ev orderstate.Event, match OrderMatch, now time.Time) map[string]interface{} {
	cols := map[string]interface{}{"updated_at": now}
	switch ev {
	case orderstate.EventConfirmPayment:
		cols["order_status"] = models.OrderStatusConfirmed
		cols["payment_status"] = models.PaymentStatusPaid
		cols["is_paid"] = true
		cols["paid_at"] = now
		if match.PaymentID != "" {
			cols["payment_id"] = match.PaymentID
		}
	case orderstate.EventFailPayment:
		cols["order_status"] = models.OrderStatusCanceled
		cols["payment_status"] = models.PaymentStatusFailed
		cols["canceled_at"] = now
	case orderstate.EventCancel:
		cols["order_status"] = models.OrderStatusCanceled
		cols["canceled_at"] = now
	}
	return cols
}
