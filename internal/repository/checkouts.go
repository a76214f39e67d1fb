package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/sachio/sachio-orders-service/internal/errors"
	"github.com/sachio/sachio-orders-service/internal/logging"
	"github.com/sachio/sachio-orders-service/internal/models"
	"github.com/sachio/sachio-orders-service/internal/money"
)

// Ensure both order stores also keep checkouts
var (
	_ CheckoutRepository = (*PostgresOrderRepository)(nil)
	_ CheckoutRepository = (*MemoryOrderRepository)(nil)
)

// CreateCheckout records a pending checkout. A reused reference returns
// ErrConflict.
func (r *PostgresOrderRepository) CreateCheckout(ctx context.Context, checkout *models.Checkout) error {
	itemsJSON, err := json.Marshal(nonNilItems(checkout.Items))
	if err != nil {
		return err
	}
	createdAt := checkout.CreatedAt
	if createdAt.IsZero() {
		createdAt = models.Now()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO checkouts (reference, user_id, email, total, currency, items, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		checkout.Reference,
		checkout.UserID,
		checkout.Email,
		checkout.Total.String(),
		checkout.Currency,
		itemsJSON,
		createdAt,
	)
	if err != nil {
		err = writeError(err)
		r.logger.Error("Failed to record checkout", logging.Fields{
			"reference": checkout.Reference,
			"user_id":   checkout.UserID,
			"error":     err.Error(),
		})
		return err
	}
	return nil
}

// GetCheckout returns the pending checkout for reference.
func (r *PostgresOrderRepository) GetCheckout(ctx context.Context, reference string) (*models.Checkout, error) {
	var (
		c         models.Checkout
		total     string
		itemsJSON []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT reference, user_id, email, total, currency, items, created_at
		FROM checkouts WHERE reference = $1`, reference,
	).Scan(&c.Reference, &c.UserID, &c.Email, &total, &c.Currency, &itemsJSON, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if c.Total, err = money.Parse(total); err != nil {
		return nil, err
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &c.Items); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func (r *MemoryOrderRepository) CreateCheckout(ctx context.Context, checkout *models.Checkout) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.checkouts[checkout.Reference]; ok {
		return errors.ErrConflict
	}
	cp := *checkout
	cp.Items = append([]models.OrderItem(nil), checkout.Items...)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = models.Now()
	}
	r.checkouts[cp.Reference] = &cp
	return nil
}

func (r *MemoryOrderRepository) GetCheckout(ctx context.Context, reference string) (*models.Checkout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.checkouts[reference]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *c
	cp.Items = append([]models.OrderItem(nil), c.Items...)
	return &cp, nil
}
