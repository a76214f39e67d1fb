package repository

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/sachio/sachio-orders-service/internal/errors"
	"github.com/sachio/sachio-orders-service/internal/models"
)

func TestPostgresOrderRepository_Create(t *testing.T) {
	t.Skip("Integration test - requires database")
}

func TestPostgresOrderRepository_ListByOwner(t *testing.T) {
	t.Skip("Integration test - requires database")
}

func TestPostgresOrderRepository_UpdateStatus(t *testing.T) {
	t.Skip("Integration test - requires database")
}

func TestGenerateOrderID(t *testing.T) {
	id := generateOrderID()

	assert.True(t, strings.HasPrefix(id, "ord_"), "got %s", id)
	assert.Len(t, id, len("ord_")+36)
	assert.NotEqual(t, id, generateOrderID())
}

func TestBuildListFilter(t *testing.T) {
	where, args := buildListFilter(&models.OrderListFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = buildListFilter(&models.OrderListFilter{UserID: "U1"})
	assert.Equal(t, " WHERE user_id = $1", where)
	assert.Equal(t, []any{"U1"}, args)
}

func TestNullString(t *testing.T) {
	assert.False(t, nullString("").Valid)
	assert.True(t, nullString("ref_1").Valid)
}

func BenchmarkGenerateOrderID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		generateOrderID()
	}
}

func TestWriteError(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: "orders_payment_reference_key"}
	plain := stderrors.New("connection reset")

	tests := []struct {
		name     string
		err      error
		conflict bool
		same     bool
	}{
		{name: "unique violation", err: dup, conflict: true},
		{name: "wrapped unique violation", err: fmt.Errorf("insert: %w", dup), conflict: true},
		{name: "other pq error", err: &pq.Error{Code: "23502"}, same: true},
		{name: "plain error", err: plain, same: true},
		{name: "nil", err: nil, same: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := writeError(tt.err)
			assert.Equal(t, tt.conflict, errors.Is(got, errors.ErrConflict))
			if tt.same {
				assert.Equal(t, tt.err, got)
			}
			if tt.conflict {
				assert.Contains(t, got.Error(), "orders_payment_reference_key")
			}
		})
	}
}

func TestPostgresOrderRepository_Checkouts(t *testing.T) {
	t.Skip("Integration test - requires database")
}
