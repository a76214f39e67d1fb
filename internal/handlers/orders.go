package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sachio/sachio-orders-service/internal/errors"
	"github.com/sachio/sachio-orders-service/internal/logging"
	"github.com/sachio/sachio-orders-service/internal/metrics"
	"github.com/sachio/sachio-orders-service/internal/middleware"
	"github.com/sachio/sachio-orders-service/internal/models"
	"github.com/sachio/sachio-orders-service/internal/orderview"
)

// ListOrders handles GET /api/v1/orders
func (h *Handlers) ListOrders(c *gin.Context) {
	grouped, err := h.orderService.ListForViewer(c.Request.Context(), middleware.ViewerFrom(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, grouped)
}

// OrderBadge handles GET /api/v1/orders/badge
func (h *Handlers) OrderBadge(c *gin.Context) {
	n, err := h.orderService.Badge(c.Request.Context(), middleware.ViewerFrom(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"badge": n})
}

// GetOrder handles GET /api/v1/orders/:id
func (h *Handlers) GetOrder(c *gin.Context) {
	detail, err := h.orderService.GetForViewer(c.Request.Context(), middleware.ViewerFrom(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// StreamOrders handles GET /api/v1/orders/stream. Each change to the
// viewer's orders is sent as an "orders" event carrying the grouped view.
// When the subscription fails the last view is re-sent with stale set.
func (h *Handlers) StreamOrders(c *gin.Context) {
	viewer := middleware.ViewerFrom(c)
	if viewer == nil || viewer.ID == "" {
		handleError(c, errors.ErrUnauthenticated)
		return
	}

	store := orderview.NewStore(h.feed, *viewer)
	if err := store.Start(c.Request.Context()); err != nil {
		h.logger.Error("Failed to open order stream", logging.Fields{
			"user_id": viewer.ID,
			"error":   err.Error(),
		})
		handleError(c, errors.ErrUnavailable)
		return
	}
	defer store.Stop()

	metrics.LiveSubscriptions.Inc()
	defer metrics.LiveSubscriptions.Dec()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	stale := false
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-store.Done():
			return false
		case <-store.Changes():
			view := store.View()
			if view.Stale && !stale {
				metrics.StaleViews.Inc()
			}
			stale = view.Stale
			c.SSEvent("orders", streamPayload(view))
			return true
		case <-ticker.C:
			c.SSEvent("ping", strconv.FormatInt(time.Now().Unix(), 10))
			return true
		}
	})
}

func streamPayload(view orderview.View) orderview.GroupedSummaries {
	payload := orderview.Summaries(view.Groups)
	payload.Badge = view.Badge
	payload.Stale = view.Stale
	return payload
}

// BookRental handles POST /api/v1/rentals
func (h *Handlers) BookRental(c *gin.Context) {
	var req models.RentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	order, err := h.orderService.BookRental(c.Request.Context(), middleware.ViewerFrom(c), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderview.Summarize(order))
}

// ListAllOrders handles GET /api/v1/admin/orders
func (h *Handlers) ListAllOrders(c *gin.Context) {
	filter := &models.OrderListFilter{UserID: c.Query("user_id")}

	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	orders, total, err := h.orderService.ListAll(c.Request.Context(), filter)
	if err != nil {
		handleError(c, err)
		return
	}

	rows := make([]orderview.Summary, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, orderview.Summarize(o))
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": rows,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// UpdateOrderStatus handles PATCH /api/v1/admin/orders/:id/status
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderview.Summarize(order))
}
