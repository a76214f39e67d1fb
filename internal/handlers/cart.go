package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sachio/sachio-orders-service/internal/cart"
	"github.com/sachio/sachio-orders-service/internal/middleware"
	"github.com/sachio/sachio-orders-service/internal/models"
)

func respondCart(c *gin.Context, summary *cart.Summary, err error) {
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetCart handles GET /api/v1/cart
func (h *Handlers) GetCart(c *gin.Context) {
	summary, err := h.checkoutService.Cart(c.Request.Context(), middleware.ViewerFrom(c))
	respondCart(c, summary, err)
}

// AddCartItem handles POST /api/v1/cart/items
func (h *Handlers) AddCartItem(c *gin.Context) {
	var item models.CartItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	summary, err := h.checkoutService.AddToCart(c.Request.Context(), middleware.ViewerFrom(c), item, item.Qty)
	respondCart(c, summary, err)
}

// IncrementCartItem handles POST /api/v1/cart/items/:id/increment
func (h *Handlers) IncrementCartItem(c *gin.Context) {
	summary, err := h.checkoutService.IncrementItem(c.Request.Context(), middleware.ViewerFrom(c), c.Param("id"))
	respondCart(c, summary, err)
}

// DecrementCartItem handles POST /api/v1/cart/items/:id/decrement
func (h *Handlers) DecrementCartItem(c *gin.Context) {
	summary, err := h.checkoutService.DecrementItem(c.Request.Context(), middleware.ViewerFrom(c), c.Param("id"))
	respondCart(c, summary, err)
}

// RemoveCartItem handles DELETE /api/v1/cart/items/:id
func (h *Handlers) RemoveCartItem(c *gin.Context) {
	summary, err := h.checkoutService.RemoveItem(c.Request.Context(), middleware.ViewerFrom(c), c.Param("id"))
	respondCart(c, summary, err)
}

// ClearCart handles DELETE /api/v1/cart
func (h *Handlers) ClearCart(c *gin.Context) {
	summary, err := h.checkoutService.ClearCart(c.Request.Context(), middleware.ViewerFrom(c))
	respondCart(c, summary, err)
}
