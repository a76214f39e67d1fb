package repository

import (
	"context"

	"github.com/sachio/sachio-orders-service/internal/models"
)

// Ensure PostgresOrderRepository implements OrderRepository
var _ OrderRepository = (*PostgresOrderRepository)(nil)

// OrderRepository is the document store behind orders. Status writes are
// plain overwrites; no transition rules are enforced here.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByPaymentReference(ctx context.Context, reference string) (*models.Order, error)
	ListByOwner(ctx context.Context, userID string) ([]*models.Order, error)
	List(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error)
	UpdateStatus(ctx context.Context, id string, status string) (*models.Order, error)
}

// CheckoutRepository stores pending hosted checkouts by payment reference.
// Creating a second checkout for a reference returns ErrConflict.
type CheckoutRepository interface {
	CreateCheckout(ctx context.Context, checkout *models.Checkout) error
	GetCheckout(ctx context.Context, reference string) (*models.Checkout, error)
}

// OrderCache defines caching operations for orders.
type OrderCache interface {
	Get(ctx context.Context, id string) (*models.Order, error)
	Set(ctx context.Context, order *models.Order) error
	// Add stores order only when no entry exists for its id, so a read
	// that raced a write never replaces the newer entry.
	Add(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id string) error
}
