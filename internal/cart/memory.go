package cart

import (
	"context"
	"sync"

	"github.com/sachio/sachio-orders-service/internal/models"
)

// MemoryStore keeps carts in process memory. Used when no durable store is
// configured and in tests.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string][]models.CartItem
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string][]models.CartItem)}
}

func (s *MemoryStore) Load(ctx context.Context, key string) ([]models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.carts[key]), nil
}

func (s *MemoryStore) Save(ctx context.Context, key string, items []models.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[key] = clone(items)
	return nil
}
