package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sachio/sachio-orders-service/internal/cart"
	"github.com/sachio/sachio-orders-service/internal/errors"
)

func handleError(c *gin.Context, err error) {
	var validationErr *errors.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   validationErr.Message,
			"details": validationErr.Details,
		})
	case errors.Is(err, errors.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.Is(err, errors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, errors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, errors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict"})
	case errors.Is(err, cart.ErrPersist):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not save cart", "retryable": true})
	case errors.Is(err, errors.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable", "retryable": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
