package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sachio/sachio-orders-service/internal/cart"
	"github.com/sachio/sachio-orders-service/internal/clients"
	"github.com/sachio/sachio-orders-service/internal/config"
	"github.com/sachio/sachio-orders-service/internal/events"
	"github.com/sachio/sachio-orders-service/internal/handlers"
	"github.com/sachio/sachio-orders-service/internal/logging"
	"github.com/sachio/sachio-orders-service/internal/repository"
	"github.com/sachio/sachio-orders-service/internal/server"
	"github.com/sachio/sachio-orders-service/internal/service"

	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()
	logging.SetLevel(cfg.LogLevel)

	logger := logging.NewLogger("orders-service")
	logging.Infof("Starting sachio-orders-service on port %d", cfg.Server.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		orderRepo repository.OrderRepository
		checkouts repository.CheckoutRepository
		db        *sql.DB
	)
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("Using in-memory order store, orders are lost on restart")
		mem := repository.NewMemoryOrderRepository()
		orderRepo, checkouts = mem, mem
	default:
		var err error
		db, err = initDatabase(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("Failed to connect to database", logging.Fields{"error": err.Error()})
		}
		defer db.Close()

		pg := repository.NewPostgresOrderRepository(db, logger)
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal("Failed to migrate database", logging.Fields{"error": err.Error()})
		}
		orderRepo, checkouts = pg, pg
	}

	var (
		redisClient *redis.Client
		orderCache  repository.OrderCache
	)
	if cfg.Features.EnableOrderCaching || cfg.Cart.Store == "redis" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		defer redisClient.Close()
	}
	if cfg.Features.EnableOrderCaching {
		orderCache = repository.NewRedisOrderCache(redisClient, cfg.Redis.TTL)
	}

	carts, closeCarts, err := initCartStore(cfg, redisClient)
	if err != nil {
		logger.Fatal("Failed to open cart store", logging.Fields{"error": err.Error()})
	}
	defer closeCarts()

	var publisher service.EventPublisher
	var kafkaPublisher *events.KafkaPublisher
	if cfg.Features.EnableOrderEvents {
		kafkaPublisher = events.NewKafkaPublisher(cfg.Kafka, logger)
		publisher = kafkaPublisher
	}

	// Without order events the hub only sees local writes.
	var hub *events.Hub
	if cfg.Features.EnableOrderEvents {
		hub = events.NewKafkaHub(cfg.Kafka, orderRepo, logger)
	} else {
		hub = events.NewHub(nil, orderRepo, logger)
	}
	go func() {
		if err := hub.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Order change hub stopped", logging.Fields{"error": err.Error()})
		}
	}()

	gateway, err := clients.NewPaymentGateway(cfg.Payment, logger)
	if err != nil {
		logger.Fatal("Failed to configure payment gateway", logging.Fields{"error": err.Error()})
	}

	var notifier clients.Notifier = clients.NoopNotifier{}
	if cfg.Features.EnableReceiptEmails {
		notifier = clients.NewSendGridNotificationClient(cfg.Notification, logger)
	}

	orderService := service.NewOrderService(orderRepo, orderCache, publisher, hub, cfg)
	checkoutService := service.NewCheckoutService(orderService, checkouts, carts, gateway, notifier, cfg)

	h := handlers.NewHandlers(orderService, checkoutService, hub, cfg)
	if db != nil {
		h.AddReadinessCheck("database", db.PingContext)
	}
	if redisClient != nil {
		h.AddReadinessCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	srv := server.New(h, cfg)

	go func() {
		logger.Info("Server starting", logging.Fields{
			"port":             cfg.Server.Port,
			"db_driver":        cfg.Database.Driver,
			"cart_store":       cfg.Cart.Store,
			"payment_provider": gateway.Provider(),
			"order_events":     cfg.Features.EnableOrderEvents,
			"order_caching":    cfg.Features.EnableOrderCaching,
		})
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", logging.Fields{"error": err.Error()})
		}
	}()

	var paymentConsumer *events.PaymentConsumer
	if cfg.Features.EnablePaymentEvents {
		paymentConsumer = events.NewKafkaPaymentConsumer(cfg.Kafka, checkoutService, logger)
		go func() {
			if err := paymentConsumer.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("Payment consumer failed", logging.Fields{"error": err.Error()})
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if paymentConsumer != nil {
		paymentConsumer.Stop()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", logging.Fields{"error": err.Error()})
	}

	cancel()
	if err := hub.Close(); err != nil {
		logger.Warn("Failed to close order change hub", logging.Fields{"error": err.Error()})
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Warn("Failed to close event publisher", logging.Fields{"error": err.Error()})
		}
	}

	logger.Info("Server exited")
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Database connected", logging.Fields{
		"host": cfg.Database.Host,
		"name": cfg.Database.Name,
	})

	return db, nil
}

func initCartStore(cfg *config.Config, redisClient *redis.Client) (cart.Store, func(), error) {
	switch cfg.Cart.Store {
	case "redis":
		return repository.NewRedisCartStore(redisClient), func() {}, nil
	case "memory":
		return cart.NewMemoryStore(), func() {}, nil
	default:
		store, err := repository.NewSQLiteCartStore(cfg.Cart.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}
}
