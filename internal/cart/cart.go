// Package cart keeps a device-local list of cart lines and the totals used
// at checkout. Every mutation is persisted before it becomes visible.
package cart

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/sachio/sachio-orders-service/internal/errors"
	"github.com/sachio/sachio-orders-service/internal/logging"
	"github.com/sachio/sachio-orders-service/internal/models"
	"github.com/sachio/sachio-orders-service/internal/money"
)

// ShippingFee is added once to any non-empty cart.
var ShippingFee = money.FromInt(4000)

// DefaultKey is the storage key of a single-device cart.
const DefaultKey = "sachio_cart"

const (
	saveAttempts = 3
	saveBackoff  = 50 * time.Millisecond
)

// ErrPersist is returned when the line list could not be saved. The cart is
// left exactly as it was before the failed operation.
var ErrPersist = stderrors.New("cart: failed to persist")

// Store is the durable home of a cart's line list.
type Store interface {
	Load(ctx context.Context, key string) ([]models.CartItem, error)
	Save(ctx context.Context, key string, items []models.CartItem) error
}

// Cart is a single-session cart. Concurrent mutation of the same key from
// two processes is last-write-wins in the Store.
type Cart struct {
	store  Store
	key    string
	logger *logging.Logger

	mu    sync.Mutex
	items []models.CartItem
}

// Open loads the cart persisted under key.
func Open(ctx context.Context, store Store, key string) (*Cart, error) {
	if key == "" {
		key = DefaultKey
	}
	items, err := store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("cart: load %s: %w", key, err)
	}
	return &Cart{
		store:  store,
		key:    key,
		logger: logging.NewLogger("cart").With(logging.Fields{"cart_key": key}),
		items:  normalizeLoaded(items),
	}, nil
}

// Key is the storage key of the cart.
func (c *Cart) Key() string { return c.key }

// Items returns a copy of the current lines.
func (c *Cart) Items() []models.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clone(c.items)
}

// Len is the number of lines.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Add appends item with qty, or increases the quantity of the existing line
// with the same id.
func (c *Cart) Add(ctx context.Context, item models.CartItem, qty int) error {
	if item.ID == "" {
		return errors.NewValidationError("id", "item id is required")
	}
	if qty < 1 {
		qty = 1
	}
	return c.mutate(ctx, func(items []models.CartItem) ([]models.CartItem, error) {
		for i := range items {
			if items[i].ID == item.ID {
				items[i].Qty += qty
				return items, nil
			}
		}
		item.Qty = qty
		return append(items, item), nil
	})
}

// Increment raises the line quantity by one.
func (c *Cart) Increment(ctx context.Context, id string) error {
	return c.adjust(ctx, id, 1)
}

// Decrement lowers the line quantity by one, never below one. Use Remove to
// delete a line.
func (c *Cart) Decrement(ctx context.Context, id string) error {
	return c.adjust(ctx, id, -1)
}

// Remove deletes the line regardless of quantity.
func (c *Cart) Remove(ctx context.Context, id string) error {
	return c.mutate(ctx, func(items []models.CartItem) ([]models.CartItem, error) {
		out := items[:0]
		found := false
		for _, it := range items {
			if it.ID == id {
				found = true
				continue
			}
			out = append(out, it)
		}
		if !found {
			return nil, errors.ErrNotFound
		}
		return out, nil
	})
}

// Clear replaces the cart with an empty list.
func (c *Cart) Clear(ctx context.Context) error {
	return c.mutate(ctx, func([]models.CartItem) ([]models.CartItem, error) {
		return []models.CartItem{}, nil
	})
}

func (c *Cart) adjust(ctx context.Context, id string, delta int) error {
	return c.mutate(ctx, func(items []models.CartItem) ([]models.CartItem, error) {
		for i := range items {
			if items[i].ID == id {
				items[i].Qty += delta
				if items[i].Qty < 1 {
					items[i].Qty = 1
				}
				return items, nil
			}
		}
		return nil, errors.ErrNotFound
	})
}

// mutate applies fn to a copy of the lines, saves the result and only then
// swaps it in.
func (c *Cart) mutate(ctx context.Context, fn func([]models.CartItem) ([]models.CartItem, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fn(clone(c.items))
	if err != nil {
		return err
	}

	if err := c.save(ctx, next); err != nil {
		c.logger.Error("Failed to persist cart", logging.Fields{
			"lines": len(next),
			"error": err.Error(),
		})
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}

	c.items = next
	return nil
}

func (c *Cart) save(ctx context.Context, items []models.CartItem) error {
	var err error
	for attempt := 0; attempt < saveAttempts; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying cart save", logging.Fields{"attempt": attempt + 1})
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * saveBackoff):
			}
		}
		if err = c.store.Save(ctx, c.key, items); err == nil {
			return nil
		}
	}
	return err
}

func clone(items []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, len(items))
	copy(out, items)
	return out
}

func normalizeLoaded(items []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		if it.Qty < 1 {
			it.Qty = 1
		}
		out = append(out, it)
	}
	return out
}
