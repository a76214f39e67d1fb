package handlers

import (
	"context"
	"time"

	"github.com/sachio/sachio-orders-service/internal/config"
	"github.com/sachio/sachio-orders-service/internal/logging"
	"github.com/sachio/sachio-orders-service/internal/orderview"
	"github.com/sachio/sachio-orders-service/internal/service"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Handlers holds all HTTP handlers for the orders service.
type Handlers struct {
	orderService    *service.OrderService
	checkoutService *service.CheckoutService
	feed            orderview.Feed
	checks          map[string]ReadinessCheck
	keepAlive       time.Duration
	config          *config.Config
	logger          *logging.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(
	orderService *service.OrderService,
	checkoutService *service.CheckoutService,
	feed orderview.Feed,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		orderService:    orderService,
		checkoutService: checkoutService,
		feed:            feed,
		checks:          make(map[string]ReadinessCheck),
		keepAlive:       15 * time.Second,
		config:          cfg,
		logger:          logging.NewLogger("handlers"),
	}
}

// AddReadinessCheck registers a dependency probed by GET /ready.
func (h *Handlers) AddReadinessCheck(name string, check ReadinessCheck) {
	h.checks[name] = check
}
