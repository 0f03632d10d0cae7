// Package cart keeps a shopper's cart per storefront. Carts for different
// tenants on the same device never share state: each tenant gets its own
// Store, persisted under its own key.
package cart

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/yashrajoria/storefront-service/models"
	"go.uber.org/zap"
)

const defaultPersistTimeout = 3 * time.Second

var ErrTenantRequired = errors.New("tenant id is required")

// Key is the storage key of one tenant's cart on one device. Both parts are
// escaped so a ':' inside an id cannot collide with another pair.
func Key(deviceID, tenantID string) string {
	return "cart:" + url.QueryEscape(deviceID) + ":" + url.QueryEscape(tenantID)
}

// Factory hands out cart stores for a single device or session.
type Factory struct {
	deviceID string
	storage  Storage
	logger   *zap.Logger
	validate *validator.Validate
	timeout  time.Duration

	mu     sync.Mutex
	stores map[string]*Store
}

func NewFactory(deviceID string, storage Storage, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		deviceID: deviceID,
		storage:  storage,
		logger:   logger,
		validate: validator.New(),
		timeout:  defaultPersistTimeout,
		stores:   make(map[string]*Store),
	}
}

// For returns the cart of tenantID, loading it from storage the first time.
// Repeated calls with the same tenant return the same Store.
func (f *Factory) For(tenantID string) (*Store, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if s, ok := f.stores[tenantID]; ok {
		return s, nil
	}

	s := &Store{
		tenantID: tenantID,
		key:      Key(f.deviceID, tenantID),
		storage:  f.storage,
		logger:   f.logger.With(zap.String("tenant_id", tenantID)),
		validate: f.validate,
		timeout:  f.timeout,
	}
	s.rehydrate()
	f.stores[tenantID] = s
	return s, nil
}

// Store is one tenant's cart. It is safe for concurrent use.
type Store struct {
	tenantID string
	key      string
	storage  Storage
	logger   *zap.Logger
	validate *validator.Validate
	timeout  time.Duration

	mu    sync.Mutex
	items []models.CartItem
}

func (s *Store) TenantID() string { return s.tenantID }

// AddItem appends item unless a line with the same product is already in the
// cart, in which case the cart is unchanged and added is false.
func (s *Store) AddItem(item models.CartItem) (added bool, err error) {
	if err := s.validate.Struct(item); err != nil {
		return false, fmt.Errorf("invalid cart item: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range s.items {
		if it.ProductID == item.ProductID {
			return false, nil
		}
	}
	s.items = append(s.items, item)
	s.persist()
	return true, nil
}

// RemoveItem drops the line for productID. It reports whether a line was
// removed.
func (s *Store) RemoveItem(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, it := range s.items {
		if it.ProductID == productID {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			s.persist()
			return true
		}
	}
	return false
}

func (s *Store) RemoveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.storage.Delete(ctx, s.key); err != nil {
		s.logger.Warn("Failed to clear persisted cart", zap.String("key", s.key), zap.Error(err))
	}
}

// Items returns a copy of the cart lines in insertion order.
func (s *Store) Items() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

// ProductIDs returns the product identifiers in insertion order.
func (s *Store) ProductIDs() []string {
	items := s.Items()
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	return ids
}

// persist writes the current items. Failures leave the in-memory cart as is.
// Callers hold s.mu.
func (s *Store) persist() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.storage.Save(ctx, s.key, s.items); err != nil {
		s.logger.Warn("Failed to persist cart", zap.String("key", s.key), zap.Error(err))
	}
}

func (s *Store) rehydrate() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	items, err := s.storage.Load(ctx, s.key)
	if err != nil {
		s.logger.Warn("Failed to load persisted cart, starting empty", zap.String("key", s.key), zap.Error(err))
		return
	}
	s.items = items
}
