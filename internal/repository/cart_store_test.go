package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sachio/sachio-orders-service/internal/cart"
	"github.com/sachio/sachio-orders-service/internal/models"
	"github.com/sachio/sachio-orders-service/internal/money"
)

func TestSQLiteCartStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteCartStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	items, err := store.Load(ctx, "cart:U1")
	require.NoError(t, err)
	assert.Empty(t, items)

	want := []models.CartItem{
		{ID: "a", Title: "Standard", Price: money.NewRawAmount("1,500"), Qty: 2},
	}
	require.NoError(t, store.Save(ctx, "cart:U1", want))

	got, err := store.Load(ctx, "cart:U1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "1,500", got[0].Price.Raw())
	assert.Equal(t, 2, got[0].Qty)

	require.NoError(t, store.Save(ctx, "cart:U1", []models.CartItem{}))
	got, err = store.Load(ctx, "cart:U1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteCartStore_BacksCart(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteCartStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	c, err := cart.Open(ctx, store, "device-1")
	require.NoError(t, err)
	require.NoError(t, c.Add(ctx, models.CartItem{ID: "a", Price: money.NewRawAmount("1,500")}, 2))
	require.NoError(t, c.Add(ctx, models.CartItem{ID: "b", Price: money.NewRawAmount(2000)}, 1))

	reopened, err := cart.Open(ctx, store, "device-1")
	require.NoError(t, err)
	assert.True(t, reopened.TotalWithShipping().Equal(money.FromInt(9000)))
}
