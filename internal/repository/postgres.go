package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sachio/sachio-orders-service/internal/errors"
	"github.com/sachio/sachio-orders-service/internal/logging"
	"github.com/sachio/sachio-orders-service/internal/models"
)

const uniqueViolation = "23505"

const orderColumns = `
	id, user_id, status, type, price, amount, total, currency,
	product_title, items, rental_start_date, rental_end_date,
	payment_reference, customer_email, delivery_address, created_at`

// PostgresOrderRepository implements OrderRepository using PostgreSQL.
type PostgresOrderRepository struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewPostgresOrderRepository creates a new PostgreSQL order repository.
func NewPostgresOrderRepository(db *sql.DB, logger *logging.Logger) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates the orders and checkouts tables when they do not exist.
func (r *PostgresOrderRepository) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS orders (
			id                TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL,
			status            TEXT NOT NULL DEFAULT '',
			type              TEXT NOT NULL DEFAULT 'buy',
			price             TEXT,
			amount            TEXT,
			total             TEXT,
			currency          TEXT NOT NULL DEFAULT 'NGN',
			product_title     TEXT NOT NULL DEFAULT '',
			items             JSONB NOT NULL DEFAULT '[]',
			rental_start_date TEXT NOT NULL DEFAULT '',
			rental_end_date   TEXT NOT NULL DEFAULT '',
			payment_reference TEXT UNIQUE,
			customer_email    TEXT NOT NULL DEFAULT '',
			delivery_address  TEXT NOT NULL DEFAULT '',
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS orders_user_created_idx ON orders (user_id, created_at DESC);
		CREATE TABLE IF NOT EXISTS checkouts (
			reference  TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			email      TEXT NOT NULL DEFAULT '',
			total      TEXT NOT NULL,
			currency   TEXT NOT NULL DEFAULT 'NGN',
			items      JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		r.logger.Error("Failed to migrate orders table", logging.Fields{"error": err.Error()})
		return err
	}
	return nil
}

// Create inserts a new order. An order reusing a payment reference returns
// ErrConflict.
func (r *PostgresOrderRepository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	r.logger.Debug("Creating new order", logging.Fields{"user_id": order.UserID})

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

	itemsJSON, err := json.Marshal(nonNilItems(created.Items))
	if err != nil {
		return nil, err
	}

	query := `INSERT INTO orders (` + orderColumns + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)`

	_, err = r.db.ExecContext(ctx, query,
		created.ID,
		created.UserID,
		created.Status,
		created.Type,
		created.Price,
		created.Amount,
		created.Total,
		created.Currency,
		created.ProductTitle,
		itemsJSON,
		created.RentalStartDate,
		created.RentalEndDate,
		nullString(created.PaymentReference),
		created.CustomerEmail,
		created.DeliveryAddress,
		created.CreatedAt,
	)
	if err != nil {
		if err = writeError(err); errors.Is(err, errors.ErrConflict) {
			return nil, err
		}
		r.logger.Error("Failed to create order", logging.Fields{
			"user_id": order.UserID,
			"error":   err.Error(),
		})
		return nil, err
	}

	r.logger.Info("Order created successfully", logging.Fields{
		"order_id": created.ID,
		"user_id":  created.UserID,
		"status":   created.Status,
	})

	return &created, nil
}

// GetByID retrieves an order by its unique identifier.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.logger.Debug("Fetching order by ID", logging.Fields{"order_id": id})

	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to fetch order", logging.Fields{
			"order_id": id,
			"error":    err.Error(),
		})
		return nil, err
	}
	return order, nil
}

// GetByPaymentReference finds the order created for a payment reference.
func (r *PostgresOrderRepository) GetByPaymentReference(ctx context.Context, reference string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_reference = $1`, reference)
	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ListByOwner returns the user's orders, newest first.
func (r *PostgresOrderRepository) ListByOwner(ctx context.Context, userID string) ([]*models.Order, error) {
	r.logger.Debug("Listing orders for owner", logging.Fields{"user_id": userID})

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOrders(rows)
}

// List retrieves orders based on filter criteria, newest first.
func (r *PostgresOrderRepository) List(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error) {
	r.logger.Debug("Listing orders", logging.Fields{
		"user_id": filter.UserID,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})

	where, args := buildListFilter(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM orders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		orderColumns, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, 0, err
	}

	r.logger.Info("Orders listed", logging.Fields{
		"count": len(orders),
		"total": total,
	})

	return orders, total, nil
}

// UpdateStatus overwrites the status string of an order.
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id string, status string) (*models.Order, error) {
	r.logger.Debug("Updating order status", logging.Fields{
		"order_id":   id,
		"new_status": status,
	})

	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to update order status", logging.Fields{
			"order_id": id,
			"error":    err.Error(),
		})
		return nil, err
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return nil, errors.ErrNotFound
	}

	r.logger.Info("Order status updated", logging.Fields{
		"order_id":   id,
		"new_status": status,
	})

	return r.GetByID(ctx, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var itemsJSON []byte
	var paymentRef sql.NullString

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.Type,
		&order.Price,
		&order.Amount,
		&order.Total,
		&order.Currency,
		&order.ProductTitle,
		&itemsJSON,
		&order.RentalStartDate,
		&order.RentalEndDate,
		&paymentRef,
		&order.CustomerEmail,
		&order.DeliveryAddress,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
			return nil, err
		}
	}
	if paymentRef.Valid {
		order.PaymentReference = paymentRef.String
	}

	return &order, nil
}

func scanOrders(rows *sql.Rows) ([]*models.Order, error) {
	orders := make([]*models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func buildListFilter(filter *models.OrderListFilter) (string, []any) {
	if filter.UserID == "" {
		return "", nil
	}
	return " WHERE user_id = $1", []any{filter.UserID}
}

// writeError maps a unique-key violation to ErrConflict and returns any
// other error unchanged.
func writeError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", errors.ErrConflict, pqErr.Constraint)
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNilItems(items []models.OrderItem) []models.OrderItem {
	if items == nil {
		return []models.OrderItem{}
	}
	return items
}

func generateOrderID() string {
	return "ord_" + uuid.NewString()
}
