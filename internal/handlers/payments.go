package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sachio/sachio-orders-service/internal/middleware"
	"github.com/sachio/sachio-orders-service/internal/orderview"
)

// StartCheckout handles POST /api/v1/checkout
func (h *Handlers) StartCheckout(c *gin.Context) {
	session, err := h.checkoutService.StartCheckout(c.Request.Context(), middleware.ViewerFrom(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// CheckoutCallback handles GET /api/v1/checkout/callback. The client
// forwards the provider redirect URL query unchanged.
func (h *Handlers) CheckoutCallback(c *gin.Context) {
	order, err := h.checkoutService.HandleCallback(c.Request.Context(), middleware.ViewerFrom(c), c.Request.URL.String())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderview.Summarize(order))
}

// PlaceTransferOrder handles POST /api/v1/checkout/transfer
func (h *Handlers) PlaceTransferOrder(c *gin.Context) {
	order, err := h.checkoutService.PlaceTransferOrder(c.Request.Context(), middleware.ViewerFrom(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderview.Summarize(order))
}
