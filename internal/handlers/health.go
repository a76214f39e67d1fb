package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sachio/sachio-orders-service/internal/logging"
)

const serviceName = "sachio-orders-service"

var startTime = time.Now()

// Health handles GET /health
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
	})
}

// Ready handles GET /ready
func (h *Handlers) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	results := gin.H{}
	ready := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			ready = false
			results[name] = err.Error()
			h.logger.Warn("Readiness check failed", logging.Fields{"check": name, "error": err.Error()})
			continue
		}
		results[name] = "ok"
	}

	code, state := http.StatusOK, "ready"
	if !ready {
		code, state = http.StatusServiceUnavailable, "not_ready"
	}
	c.JSON(code, gin.H{
		"status":  state,
		"service": serviceName,
		"checks":  results,
	})
}

// Live handles GET /live
func (h *Handlers) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

// Version handles GET /version
func (h *Handlers) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":    "1.0.0",
		"service":    serviceName,
		"go_version": runtime.Version(),
		"started_at": startTime.Format(time.RFC3339),
	})
}
