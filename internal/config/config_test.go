package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 8082, cfg.Server.Port)
	assert.Equal(t, "paystack", cfg.Payment.Provider)
	assert.Equal(t, "NGN", cfg.Payment.Currency)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "sqlite", cfg.Cart.Store)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("ENABLE_ORDER_CACHING", "false")
	t.Setenv("CART_STORE", "redis")
	t.Setenv("DB_PORT", "not-a-number")

	cfg := Load()

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Features.EnableOrderCaching)
	assert.Equal(t, "redis", cfg.Cart.Store)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestConnectionString(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", d.ConnectionString())
}
