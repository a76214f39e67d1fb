package cart

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sachio/sachio-orders-service/internal/errors"
	"github.com/sachio/sachio-orders-service/internal/models"
	"github.com/sachio/sachio-orders-service/internal/money"
)

type flakyStore struct {
	*MemoryStore
	failures int
	saves    int
}

func (s *flakyStore) Save(ctx context.Context, key string, items []models.CartItem) error {
	s.saves++
	if s.failures > 0 {
		s.failures--
		return stderrors.New("disk full")
	}
	return s.MemoryStore.Save(ctx, key, items)
}

func openCart(t *testing.T, store Store) *Cart {
	t.Helper()
	c, err := Open(context.Background(), store, "")
	require.NoError(t, err)
	return c
}

func item(id string, price any) models.CartItem {
	return models.CartItem{ID: id, Title: "Item " + id, Price: money.NewRawAmount(price)}
}

func TestCart_Totals(t *testing.T) {
	ctx := context.Background()
	c := openCart(t, NewMemoryStore())

	require.NoError(t, c.Add(ctx, item("a", "1,500"), 2))
	require.NoError(t, c.Add(ctx, item("b", 2000), 1))

	assert.True(t, c.Total().Equal(money.FromInt(5000)), "total %s", c.Total())
	assert.True(t, c.TotalWithShipping().Equal(money.FromInt(9000)), "with shipping %s", c.TotalWithShipping())
}

func TestCart_EmptyHasNoShipping(t *testing.T) {
	c := openCart(t, NewMemoryStore())

	assert.True(t, c.Total().IsZero())
	assert.True(t, c.TotalWithShipping().IsZero())
}

func TestCart_AddMergesSameID(t *testing.T) {
	ctx := context.Background()
	c := openCart(t, NewMemoryStore())

	require.NoError(t, c.Add(ctx, item("a", 100), 1))
	require.NoError(t, c.Add(ctx, item("a", 100), 3))
	require.NoError(t, c.Add(ctx, item("b", 100), 0))

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 4, items[0].Qty)
	assert.Equal(t, 1, items[1].Qty)

	assert.Error(t, c.Add(ctx, models.CartItem{}, 1))
}

func TestCart_DecrementFloorsAtOne(t *testing.T) {
	ctx := context.Background()
	c := openCart(t, NewMemoryStore())

	require.NoError(t, c.Add(ctx, item("a", 100), 1))
	require.NoError(t, c.Decrement(ctx, "a"))
	require.NoError(t, c.Decrement(ctx, "a"))

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Qty)

	require.NoError(t, c.Increment(ctx, "a"))
	assert.Equal(t, 2, c.Items()[0].Qty)

	assert.ErrorIs(t, c.Decrement(ctx, "missing"), errors.ErrNotFound)
}

func TestCart_Remove(t *testing.T) {
	ctx := context.Background()
	c := openCart(t, NewMemoryStore())

	require.NoError(t, c.Add(ctx, item("a", 100), 5))
	require.NoError(t, c.Add(ctx, item("b", 100), 1))
	require.NoError(t, c.Remove(ctx, "a"))

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ID)
	assert.ErrorIs(t, c.Remove(ctx, "a"), errors.ErrNotFound)
}

func TestCart_PersistsEveryMutation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c := openCart(t, store)

	require.NoError(t, c.Add(ctx, item("a", "1,500"), 2))
	require.NoError(t, c.Increment(ctx, "a"))

	persisted, err := store.Load(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, c.Items(), persisted)

	reopened := openCart(t, store)
	assert.Equal(t, c.Items(), reopened.Items())

	require.NoError(t, c.Clear(ctx))
	persisted, err = store.Load(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Empty(t, persisted)
	assert.Zero(t, c.Len())
}

func TestCart_SaveFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: NewMemoryStore()}
	c := openCart(t, store)

	require.NoError(t, c.Add(ctx, item("a", 100), 1))

	store.failures = saveAttempts
	err := c.Add(ctx, item("b", 100), 1)
	assert.ErrorIs(t, err, ErrPersist)

	assert.Len(t, c.Items(), 1)
	persisted, _ := store.Load(ctx, DefaultKey)
	assert.Equal(t, c.Items(), persisted)
}

func TestCart_SaveRetries(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: NewMemoryStore(), failures: saveAttempts - 1}
	c := openCart(t, store)

	require.NoError(t, c.Add(ctx, item("a", 100), 1))
	assert.Equal(t, saveAttempts, store.saves)
	assert.Len(t, c.Items(), 1)
}

func TestCart_SummaryUsesSentinelForUnknownPrice(t *testing.T) {
	ctx := context.Background()
	c := openCart(t, NewMemoryStore())

	require.NoError(t, c.Add(ctx, item("a", "1,500"), 2))
	require.NoError(t, c.Add(ctx, item("b", "call us"), 1))

	s := c.Summary()
	require.Len(t, s.Lines, 2)
	assert.Equal(t, "NGN 1,500", s.Lines[0].UnitPrice)
	assert.Equal(t, "NGN 3,000", s.Lines[0].Subtotal)
	assert.Equal(t, money.UnknownSentinel, s.Lines[1].UnitPrice)
	assert.False(t, s.Lines[1].Priced)
	assert.True(t, s.HasUnpricedLines)
	assert.Equal(t, "NGN 3,000", s.Total)
	assert.Equal(t, "NGN 7,000", s.TotalWithShipping)
}
