package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-service/apperrors"
	"github.com/yashrajoria/storefront-service/metrics"
	"github.com/yashrajoria/storefront-service/models"
	"github.com/yashrajoria/storefront-service/processor"
	"github.com/yashrajoria/storefront-service/repository"
	"go.uber.org/zap"
)

// CheckoutService prices a cart from the catalog, opens a processor order for
// the total and records a pending order against it.
type CheckoutService struct {
	products  repository.ProductRepository
	orders    repository.OrderRepository
	processor processor.Processor
	currency  string
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewCheckoutService(
	products repository.ProductRepository,
	orders repository.OrderRepository,
	proc processor.Processor,
	currency string,
	timeout time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{
		products:  products,
		orders:    orders,
		processor: proc,
		currency:  strings.ToUpper(currency),
		timeout:   timeout,
		metrics:   m,
		logger:    logger,
	}
}

// CreateSession opens a checkout session for productIDs. Repeated ids are
// charged once.
func (s *CheckoutService) CreateSession(ctx context.Context, storeID string, productIDs []string) (*models.CheckoutSession, error) {
	session, err := s.createSession(ctx, storeID, productIDs)
	switch {
	case err == nil:
		s.metrics.CheckoutSession("opened")
	case apperrors.KindOf(err) == apperrors.KindMalformedRequest:
		s.metrics.CheckoutSession("rejected")
	default:
		s.metrics.CheckoutSession("error")
	}
	return session, err
}

func (s *CheckoutService) createSession(ctx context.Context, storeID string, productIDs []string) (*models.CheckoutSession, error) {
	if storeID == "" {
		return nil, apperrors.MalformedRequest("Store id is required")
	}
	ids, err := uniqueIDs(productIDs)
	if err != nil {
		return nil, err
	}

	products, err := s.products.FindByIDs(ctx, storeID, ids)
	if err != nil {
		s.logger.Error("Failed to load products", zap.String("store_id", storeID), zap.Error(err))
		return nil, apperrors.Internal(err)
	}
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	orderID := uuid.New()
	items := make([]models.OrderItem, 0, len(ids))
	var amount int64
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, apperrors.MalformedRequest(fmt.Sprintf("Product %s is not available", id))
		}
		amount += p.Price
		items = append(items, models.OrderItem{OrderID: orderID, ProductID: p.ID, Price: p.Price})
	}
	if amount <= 0 {
		return nil, apperrors.MalformedRequest("Order total must be positive")
	}

	procCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	procOrder, err := s.processor.CreateOrder(procCtx, processor.OrderRequest{
		Amount:   amount,
		Currency: s.currency,
		Receipt:  orderID.String(),
		Notes:    map[string]string{"store_id": storeID, "order_id": orderID.String()},
	})
	if err != nil {
		s.logger.Error("Failed to open processor order",
			zap.String("processor", s.processor.Name()),
			zap.String("store_id", storeID),
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		return nil, apperrors.Internal(err)
	}

	order := &models.Order{
		ID:               orderID,
		StoreID:          storeID,
		ProcessorOrderID: procOrder.ID,
		Amount:           amount,
		Currency:         s.currency,
		PaymentStatus:    models.PaymentStatusPending,
		OrderStatus:      models.OrderStatusPending,
		OrderItems:       items,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		s.logger.Error("Failed to persist pending order",
			zap.String("store_id", storeID),
			zap.String("processor_order_id", procOrder.ID),
			zap.Error(err),
		)
		return nil, apperrors.Internal(err)
	}

	s.logger.Info("Checkout session opened",
		zap.String("store_id", storeID),
		zap.String("order_id", orderID.String()),
		zap.String("processor_order_id", procOrder.ID),
		zap.Int64("amount", amount),
	)
	return &models.CheckoutSession{
		SessionID:        orderID.String(),
		TenantID:         storeID,
		ProductIDs:       ids,
		Amount:           amount,
		Currency:         s.currency,
		ProcessorOrderID: procOrder.ID,
		KeyID:            s.processor.KeyID(),
	}, nil
}

func uniqueIDs(productIDs []string) ([]string, error) {
	if len(productIDs) == 0 {
		return nil, apperrors.MalformedRequest("Product ids are required")
	}
	seen := make(map[string]struct{}, len(productIDs))
	ids := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, apperrors.MalformedRequest("Product ids must not be empty")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
