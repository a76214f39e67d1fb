package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Payment      PaymentConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Cart         CartConfig
	Features     FeatureFlags
	LogLevel     string
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig selects the order store. Driver is "postgres" or "memory".
type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

func (d DatabaseConfig) ConnectionString() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

type KafkaConfig struct {
	Brokers       []string
	OrdersTopic   string
	PaymentsTopic string
	ConsumerGroup string
}

// PaymentConfig selects and configures the payment gateway.
type PaymentConfig struct {
	Provider    string
	BaseURL     string
	SecretKey   string
	CallbackURL string
	Currency    string
	Timeout     time.Duration
}

type AuthConfig struct {
	JWTSecret string
}

type NotificationConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
}

// CartConfig selects where carts are persisted: "sqlite", "redis" or "memory".
type CartConfig struct {
	Store      string
	SQLitePath string
}

type FeatureFlags struct {
	EnableOrderEvents   bool
	EnableOrderCaching  bool
	EnablePaymentEvents bool
	EnableReceiptEmails bool
}

// Load reads configuration from the environment, after loading a .env file
// when one is present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnvInt("SERVER_PORT", 8082),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT", 30)) * time.Second,
		},
		Database: DatabaseConfig{
			Driver:       getEnvString("DB_DRIVER", "postgres"),
			Host:         getEnvString("DB_HOST", "localhost"),
			Port:         getEnvInt("DB_PORT", 5432),
			User:         getEnvString("DB_USER", "sachio"),
			Password:     getEnvString("DB_PASSWORD", "sachio"),
			Name:         getEnvString("DB_NAME", "sachio_orders"),
			SSLMode:      getEnvString("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Redis: RedisConfig{
			Host:     getEnvString("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvInt("REDIS_TTL_SECONDS", 300)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			OrdersTopic:   getEnvString("KAFKA_ORDERS_TOPIC", "sachio.orders"),
			PaymentsTopic: getEnvString("KAFKA_PAYMENTS_TOPIC", "sachio.payments"),
			ConsumerGroup: getEnvString("KAFKA_CONSUMER_GROUP", "sachio-orders-service"),
		},
		Payment: PaymentConfig{
			Provider:    getEnvString("PAYMENT_PROVIDER", "paystack"),
			BaseURL:     getEnvString("PAYMENT_BASE_URL", ""),
			SecretKey:   getEnvString("PAYMENT_SECRET_KEY", ""),
			CallbackURL: getEnvString("PAYMENT_CALLBACK_URL", "http://localhost:8082/api/v1/checkout/callback"),
			Currency:    getEnvString("PAYMENT_CURRENCY", "NGN"),
			Timeout:     time.Duration(getEnvInt("PAYMENT_TIMEOUT", 30)) * time.Second,
		},
		Auth: AuthConfig{
			JWTSecret: getEnvString("JWT_SECRET", ""),
		},
		Notification: NotificationConfig{
			SendGridAPIKey: getEnvString("SENDGRID_API_KEY", ""),
			FromEmail:      getEnvString("NOTIFICATION_FROM_EMAIL", "orders@sachio.ng"),
			FromName:       getEnvString("NOTIFICATION_FROM_NAME", "Sachio Mobile Toilets"),
		},
		Cart: CartConfig{
			Store:      getEnvString("CART_STORE", "sqlite"),
			SQLitePath: getEnvString("CART_SQLITE_PATH", "./carts.db"),
		},
		Features: FeatureFlags{
			EnableOrderEvents:   getEnvBool("ENABLE_ORDER_EVENTS", true),
			EnableOrderCaching:  getEnvBool("ENABLE_ORDER_CACHING", true),
			EnablePaymentEvents: getEnvBool("ENABLE_PAYMENT_EVENTS", true),
			EnableReceiptEmails: getEnvBool("ENABLE_RECEIPT_EMAILS", false),
		},
		LogLevel: getEnvString("LOG_LEVEL", "info"),
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
