package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sachio/sachio-orders-service/internal/config"
	"github.com/sachio/sachio-orders-service/internal/handlers"
	"github.com/sachio/sachio-orders-service/internal/logging"
	"github.com/sachio/sachio-orders-service/internal/metrics"
	"github.com/sachio/sachio-orders-service/internal/middleware"
)

const metricsServiceName = "sachio-orders-service"

type Server struct {
	config     *config.Config
	router     *gin.Engine
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(h *handlers.Handlers, cfg *config.Config) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(metrics.PrometheusMiddleware(metricsServiceName))

	s := &Server{
		config:   cfg,
		router:   router,
		handlers: h,
	}

	s.setupRoutes()

	// WriteTimeout stays unset so order streams are not cut off.
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handlers.Health)
	s.router.GET("/ready", s.handlers.Ready)
	s.router.GET("/live", s.handlers.Live)
	s.router.GET("/version", s.handlers.Version)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1", middleware.Auth(s.config.Auth.JWTSecret))
	{
		v1.GET("/orders", s.handlers.ListOrders)
		v1.GET("/orders/badge", s.handlers.OrderBadge)
		v1.GET("/orders/stream", s.handlers.StreamOrders)
		v1.GET("/orders/:id", s.handlers.GetOrder)

		v1.GET("/cart", s.handlers.GetCart)
		v1.DELETE("/cart", s.handlers.ClearCart)
		v1.POST("/cart/items", s.handlers.AddCartItem)
		v1.POST("/cart/items/:id/increment", s.handlers.IncrementCartItem)
		v1.POST("/cart/items/:id/decrement", s.handlers.DecrementCartItem)
		v1.DELETE("/cart/items/:id", s.handlers.RemoveCartItem)

		v1.POST("/checkout", s.handlers.StartCheckout)
		v1.GET("/checkout/callback", s.handlers.CheckoutCallback)
		v1.POST("/checkout/transfer", s.handlers.PlaceTransferOrder)

		v1.POST("/rentals", s.handlers.BookRental)
	}

	admin := v1.Group("/admin", middleware.RequireAdmin())
	{
		admin.GET("/orders", s.handlers.ListAllOrders)
		admin.PATCH("/orders/:id/status", s.handlers.UpdateOrderStatus)
	}
}

// Router exposes the configured engine.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Start() error {
	logging.Infof("Starting server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
