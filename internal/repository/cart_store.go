package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/sachio/sachio-orders-service/internal/cart"
	"github.com/sachio/sachio-orders-service/internal/logging"
	"github.com/sachio/sachio-orders-service/internal/models"
)

const cartKeyPrefix = "cart:"

var (
	_ cart.Store = (*SQLiteCartStore)(nil)
	_ cart.Store = (*RedisCartStore)(nil)
)

// SQLiteCartStore persists carts in a local SQLite file, one row per key.
type SQLiteCartStore struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewSQLiteCartStore opens the database at path and creates the carts table.
func NewSQLiteCartStore(path string) (*SQLiteCartStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS carts (
			cart_key   TEXT PRIMARY KEY,
			items      TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteCartStore{db: db, logger: logging.NewLogger("sqlite-cart-store")}, nil
}

func (s *SQLiteCartStore) Load(ctx context.Context, key string) ([]models.CartItem, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT items FROM carts WHERE cart_key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return []models.CartItem{}, nil
	}
	if err != nil {
		return nil, err
	}

	var items []models.CartItem
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *SQLiteCartStore) Save(ctx context.Context, key string, items []models.CartItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO carts (cart_key, items, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(cart_key) DO UPDATE SET items = excluded.items, updated_at = excluded.updated_at`,
		key, string(data), time.Now().UTC(),
	)
	if err != nil {
		s.logger.Error("Failed to save cart", logging.Fields{"cart_key": key, "error": err.Error()})
	}
	return err
}

func (s *SQLiteCartStore) Close() error {
	return s.db.Close()
}

// RedisCartStore persists carts as JSON strings without expiry.
type RedisCartStore struct {
	client *redis.Client
	logger *logging.Logger
}

func NewRedisCartStore(client *redis.Client) *RedisCartStore {
	return &RedisCartStore{client: client, logger: logging.NewLogger("redis-cart-store")}
}

func (s *RedisCartStore) Load(ctx context.Context, key string) ([]models.CartItem, error) {
	data, err := s.client.Get(ctx, cartKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return []models.CartItem{}, nil
	}
	if err != nil {
		return nil, err
	}

	var items []models.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *RedisCartStore) Save(ctx context.Context, key string, items []models.CartItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, cartKeyPrefix+key, data, 0).Err(); err != nil {
		s.logger.Error("Failed to save cart", logging.Fields{"cart_key": key, "error": err.Error()})
		return err
	}
	return nil
}
