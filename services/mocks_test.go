package services_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-service/audit"
	"github.com/yashrajoria/storefront-service/models"
	"github.com/yashrajoria/storefront-service/orderstate"
	"github.com/yashrajoria/storefront-service/processor"
	"github.com/yashrajoria/storefront-service/repository"
)

// fakeOrderRepo applies transitions in memory with the same matching rules
// and precondition as the gorm repository.
type fakeOrderRepo struct {
	mu         sync.Mutex
	orders     []*models.Order
	applyCalls int
	applyErr   error
	createErr  error
	findErr    error
}

func (f *fakeOrderRepo) Create(_ context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.orders = append(f.orders, order)
	return nil
}

func (f *fakeOrderRepo) FindByID(_ context.Context, storeID string, id uuid.UUID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, o := range f.orders {
		if o.StoreID == storeID && o.ID == id {
			c := *o
			return &c, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (f *fakeOrderRepo) FindAll(_ context.Context, storeID string, page, limit int) ([]models.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.Order
	for _, o := range f.orders {
		if o.StoreID == storeID {
			all = append(all, *o)
		}
	}
	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (f *fakeOrderRepo) Delete(_ context.Context, storeID string, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, o := range f.orders {
		if o.StoreID == storeID && o.ID == id {
			f.orders = append(f.orders[:i], f.orders[i+1:]...)
			return nil
		}
	}
	return repository.ErrOrderNotFound
}

func (f *fakeOrderRepo) ApplyTransition(_ context.Context, match repository.OrderMatch, ev orderstate.Event) (*models.Order, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyCalls++
	if f.applyErr != nil {
		return nil, false, f.applyErr
	}

	o := f.match(match)
	if o == nil {
		return nil, false, repository.ErrOrderNotFound
	}
	next, changed, err := orderstate.Apply(orderstate.StateOf(o), ev)
	if err != nil {
		c := *o
		return &c, false, err
	}
	if changed {
		now := time.Now()
		o.OrderStatus, o.PaymentStatus, o.IsPaid = next.OrderStatus, next.PaymentStatus, next.IsPaid
		if ev == orderstate.EventConfirmPayment {
			o.PaidAt = &now
			if match.PaymentID != "" {
				pid := match.PaymentID
				o.PaymentID = &pid
			}
		} else {
			o.CanceledAt = &now
		}
	}
	c := *o
	return &c, changed, nil
}

func (f *fakeOrderRepo) match(m repository.OrderMatch) *models.Order {
	for _, o := range f.orders {
		if o.StoreID != m.StoreID {
			continue
		}
		switch {
		case m.OrderID != uuid.Nil:
			if o.ID == m.OrderID {
				return o
			}
		case m.PaymentID != "":
			if (o.PaymentID != nil && *o.PaymentID == m.PaymentID) ||
				(o.PaymentID == nil && o.ProcessorOrderID == m.ProcessorOrderID) {
				return o
			}
		default:
			if o.ProcessorOrderID == m.ProcessorOrderID {
				return o
			}
		}
	}
	return nil
}

func (f *fakeOrderRepo) get(id uuid.UUID) models.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == id {
			return *o
		}
	}
	return models.Order{}
}

type fakeProductRepo struct {
	products []models.Product
	err      error
}

func (f *fakeProductRepo) FindByIDs(_ context.Context, storeID string, ids []string) ([]models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Product
	for _, p := range f.products {
		if p.StoreID == storeID && want[p.ID] && !p.IsArchived {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeProcessor struct {
	mu    sync.Mutex
	reqs  []processor.OrderRequest
	err   error
	block bool
}

func (f *fakeProcessor) Name() string  { return "fake" }
func (f *fakeProcessor) KeyID() string { return "rzp_test_key" }

func (f *fakeProcessor) CreateOrder(ctx context.Context, req processor.OrderRequest) (*processor.Order, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &processor.Order{ID: "order_" + req.Receipt[:8], Amount: req.Amount, Currency: req.Currency, Status: "created"}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.PaymentEvent
	err    error
}

func (p *recordingPublisher) PublishPaymentEvent(_ context.Context, event models.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type fakeRecorder struct {
	mu       sync.Mutex
	attempts []audit.Attempt
	err      error
}

func (r *fakeRecorder) Record(_ context.Context, a audit.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
	return r.err
}

func (r *fakeRecorder) last() audit.Attempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.attempts) == 0 {
		return audit.Attempt{}
	}
	return r.attempts[len(r.attempts)-1]
}

var errDB = errors.New("connection reset by peer")

func strPtr(s string) *string { return &s }
