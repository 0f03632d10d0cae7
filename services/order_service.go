package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-service/apperrors"
	"github.com/yashrajoria/storefront-service/events"
	"github.com/yashrajoria/storefront-service/metrics"
	"github.com/yashrajoria/storefront-service/models"
	"github.com/yashrajoria/storefront-service/orderstate"
	"github.com/yashrajoria/storefront-service/repository"
	"go.uber.org/zap"
)

type OrderResponse struct {
	Orders []models.Order `json:"orders"`
	Meta   MetaData       `json:"meta"`
}

type MetaData struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalOrders int64 `json:"total_orders"`
	TotalPages  int64 `json:"total_pages"`
	HasMore     bool  `json:"has_more"`
}

// OrderService backs the admin order routes.
type OrderService struct {
	orders  repository.OrderRepository
	logger  *zap.Logger
	effects transitionEffects
}

func NewOrderService(orders repository.OrderRepository, publisher events.Publisher, m *metrics.Metrics, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		orders:  orders,
		logger:  logger,
		effects: transitionEffects{publisher: publisher, metrics: m, logger: logger},
	}
}

// ListOrders returns one page of the store's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, storeID string, page, limit int) (*OrderResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	orders, total, err := s.orders.FindAll(ctx, storeID, page, limit)
	if err != nil {
		s.logger.Error("Failed to fetch orders", zap.String("store_id", storeID), zap.Error(err))
		return nil, apperrors.Internal(err)
	}

	return &OrderResponse{
		Orders: orders,
		Meta: MetaData{
			Page:        page,
			Limit:       limit,
			TotalOrders: total,
			TotalPages:  calculateTotalPages(total, limit),
			HasMore:     total > int64(page*limit),
		},
	}, nil
}

func (s *OrderService) GetOrder(ctx context.Context, storeID, orderID string) (*models.Order, error) {
	id, err := parseOrderID(orderID)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, storeID, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, apperrors.NotFound("Order not found")
	}
	if err != nil {
		s.logger.Error("Failed to fetch order", zap.String("store_id", storeID), zap.String("order_id", orderID), zap.Error(err))
		return nil, apperrors.Internal(err)
	}
	return order, nil
}

// CancelOrder cancels a pending order. Canceling a canceled order is a no-op;
// canceling a confirmed one fails.
func (s *OrderService) CancelOrder(ctx context.Context, storeID, orderID string) (*models.Order, error) {
	id, err := parseOrderID(orderID)
	if err != nil {
		return nil, err
	}

	order, changed, err := s.orders.ApplyTransition(ctx, repository.OrderMatch{StoreID: storeID, OrderID: id}, orderstate.EventCancel)
	if err != nil {
		appErr := transitionError(err)
		if apperrors.KindOf(appErr) != apperrors.KindNotFound {
			s.logger.Error("Failed to cancel order", zap.String("store_id", storeID), zap.String("order_id", orderID), zap.Error(err))
		}
		return nil, appErr
	}
	if changed {
		s.effects.applied(ctx, order, orderstate.EventCancel)
		s.logger.Info("Order canceled", zap.String("store_id", storeID), zap.String("order_id", orderID))
	}
	return order, nil
}

// DeleteOrder soft-deletes an order.
func (s *OrderService) DeleteOrder(ctx context.Context, storeID, orderID string) error {
	id, err := parseOrderID(orderID)
	if err != nil {
		return err
	}
	err = s.orders.Delete(ctx, storeID, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return apperrors.NotFound("Order not found")
	}
	if err != nil {
		s.logger.Error("Failed to delete order", zap.String("store_id", storeID), zap.String("order_id", orderID), zap.Error(err))
		return apperrors.Internal(err)
	}
	return nil
}

func parseOrderID(orderID string) (uuid.UUID, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return uuid.Nil, apperrors.MalformedRequest("Invalid order ID format")
	}
	return id, nil
}

func calculateTotalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}
