package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/sachio/sachio-orders-service/internal/errors"
	"github.com/sachio/sachio-orders-service/internal/models"
)

// Ensure MemoryOrderRepository implements OrderRepository
var _ OrderRepository = (*MemoryOrderRepository)(nil)

// MemoryOrderRepository keeps orders in process memory. Used for local
// development without Postgres and in handler tests.
type MemoryOrderRepository struct {
	mu        sync.RWMutex
	orders    map[string]*models.Order
	byRef     map[string]string
	checkouts map[string]*models.Checkout
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders:    make(map[string]*models.Order),
		byRef:     make(map[string]string),
		checkouts: make(map[string]*models.Checkout),
	}
}

func (r *MemoryOrderRepository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := *order
	if created.ID == "" {
		created.ID = generateOrderID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = models.Now()
	}
	if created.Type == "" {
		created.Type = models.OrderTypeBuy
	}
	if _, ok := r.orders[created.ID]; ok {
		return nil, errors.ErrConflict
	}
	if created.PaymentReference != "" {
		if _, ok := r.byRef[created.PaymentReference]; ok {
			return nil, errors.ErrConflict
		}
		r.byRef[created.PaymentReference] = created.ID
	}

	r.orders[created.ID] = &created
	return copyOrder(&created), nil
}

func (r *MemoryOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return copyOrder(o), nil
}

func (r *MemoryOrderRepository) GetByPaymentReference(ctx context.Context, reference string) (*models.Order, error) {
	r.mu.RLock()
	id, ok := r.byRef[reference]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryOrderRepository) ListByOwner(ctx context.Context, userID string) ([]*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Order, 0)
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, copyOrder(o))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *MemoryOrderRepository) List(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*models.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if filter.UserID == "" || o.UserID == filter.UserID {
			all = append(all, copyOrder(o))
		}
	}
	sortNewestFirst(all)

	total := len(all)
	if filter.Offset >= total {
		return []*models.Order{}, total, nil
	}
	all = all[filter.Offset:]
	if filter.Limit > 0 && len(all) > filter.Limit {
		all = all[:filter.Limit]
	}
	return all, total, nil
}

func (r *MemoryOrderRepository) UpdateStatus(ctx context.Context, id string, status string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	o.Status = status
	return copyOrder(o), nil
}

func copyOrder(o *models.Order) *models.Order {
	cp := *o
	if o.Items != nil {
		cp.Items = append([]models.OrderItem(nil), o.Items...)
	}
	return &cp
}

// Orders created in the same instant keep a stable order by id.
func sortNewestFirst(orders []*models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		ti, tj := orders[i].CreatedAt.Time, orders[j].CreatedAt.Time
		if ti.Equal(tj) {
			return orders[i].ID > orders[j].ID
		}
		return ti.After(tj)
	})
}
