package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/sachio/sachio-orders-service/internal/clients"
	"github.com/sachio/sachio-orders-service/internal/config"
	"github.com/sachio/sachio-orders-service/internal/errors"
	"github.com/sachio/sachio-orders-service/internal/models"
	"github.com/sachio/sachio-orders-service/internal/money"
)

type memoryRepo struct {
	mu     sync.Mutex
	orders []*models.Order
	seq    int
	err    error
}

func (r *memoryRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if order.PaymentReference != "" {
		for _, o := range r.orders {
			if o.PaymentReference == order.PaymentReference {
				return nil, errors.ErrConflict
			}
		}
	}
	r.seq++
	created := *order
	if created.ID == "" {
		created.ID = fmt.Sprintf("ord_%d", r.seq)
	}
	created.CreatedAt = models.Now()
	r.orders = append(r.orders, &created)
	out := created
	return &out, nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ID == id {
			out := *o
			return &out, nil
		}
	}
	return nil, errors.ErrNotFound
}

func (r *memoryRepo) GetByPaymentReference(_ context.Context, reference string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.PaymentReference == reference {
			out := *o
			return &out, nil
		}
	}
	return nil, errors.ErrNotFound
}

func (r *memoryRepo) ListByOwner(_ context.Context, userID string) ([]*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]*models.Order, 0)
	for i := len(r.orders) - 1; i >= 0; i-- {
		if r.orders[i].UserID == userID {
			o := *r.orders[i]
			out = append(out, &o)
		}
	}
	return out, nil
}

func (r *memoryRepo) List(_ context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Order, 0)
	for _, o := range r.orders {
		if filter.UserID == "" || o.UserID == filter.UserID {
			cp := *o
			out = append(out, &cp)
		}
	}
	total := len(out)
	if filter.Offset < len(out) {
		out = out[filter.Offset:]
	} else {
		out = out[:0]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (r *memoryRepo) UpdateStatus(_ context.Context, id string, status string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ID == id {
			o.Status = status
			out := *o
			return &out, nil
		}
	}
	return nil, errors.ErrNotFound
}

// gatedRepo holds the first GetByID after arm until release is closed,
// returning what it read before blocking.
type gatedRepo struct {
	*memoryRepo
	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func newGatedRepo(repo *memoryRepo) *gatedRepo {
	return &gatedRepo{
		memoryRepo: repo,
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
}

func (r *gatedRepo) arm() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed = true
}

func (r *gatedRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	order, err := r.memoryRepo.GetByID(ctx, id)

	r.mu.Lock()
	hold := r.armed
	r.armed = false
	r.mu.Unlock()

	if hold {
		close(r.entered)
		<-r.release
	}
	return order, err
}

func (r *memoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

type memoryCache struct {
	mu      sync.Mutex
	orders  map[string]*models.Order
	deletes []string
	setErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{orders: make(map[string]*models.Order)}
}

func (c *memoryCache) Get(_ context.Context, id string) (*models.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orders[id], nil
}

func (c *memoryCache) Set(_ context.Context, order *models.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.orders[order.ID] = order
	return nil
}

func (c *memoryCache) Add(_ context.Context, order *models.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.orders[order.ID]; !ok {
		c.orders[order.ID] = order
	}
	return nil
}

func (c *memoryCache) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.orders, id)
	c.deletes = append(c.deletes, id)
	return nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	created []string
	changed []string
}

func (p *recordingPublisher) PublishOrderCreated(_ context.Context, order *models.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, order.ID)
	return nil
}

func (p *recordingPublisher) PublishOrderStatusChanged(_ context.Context, order *models.Order, previous string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, previous+"->"+order.Status)
	return nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	users []string
}

func (n *recordingNotifier) Notify(_ context.Context, userID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, userID)
}

type fakeGateway struct {
	mu          sync.Mutex
	paid        map[string]money.Amount
	email       string
	verifyCalls int
	initialized []*clients.InitializeRequest
	err         error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{paid: make(map[string]money.Amount), email: "ada@example.com"}
}

func (g *fakeGateway) Provider() string { return "fake" }

func (g *fakeGateway) Initialize(_ context.Context, req *clients.InitializeRequest) (*clients.InitializeResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.initialized = append(g.initialized, req)
	return &clients.InitializeResponse{
		AuthorizationURL: "https://pay.example/" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func (g *fakeGateway) Verify(_ context.Context, reference string) (*clients.Verification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	if g.err != nil {
		return nil, g.err
	}
	amount, ok := g.paid[reference]
	return &clients.Verification{
		Reference: reference,
		Paid:      ok,
		Amount:    amount,
		Email:     g.email,
		Provider:  "fake",
	}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Payment: config.PaymentConfig{
			Currency:    "NGN",
			CallbackURL: "https://api.sachio.ng/api/v1/checkout/callback",
		},
		Features: config.FeatureFlags{
			EnableOrderEvents:  true,
			EnableOrderCaching: true,
		},
	}
}
