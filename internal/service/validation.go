package service

import (
	"strings"
	"time"

	"github.com/sachio/sachio-orders-service/internal/errors"
	"github.com/sachio/sachio-orders-service/internal/models"
)

const (
	maxStatusLength = 64
	rentalDateFmt   = "2006-01-02"
)

// ValidateUpdateOrderStatusRequest accepts any non-blank status string.
func ValidateUpdateOrderStatusRequest(req *models.UpdateOrderStatusRequest) error {
	if req == nil {
		return errors.NewValidationError("status", "status is required")
	}
	st := strings.TrimSpace(req.Status)
	if st == "" {
		return errors.NewValidationError("status", "status is required")
	}
	if len(st) > maxStatusLength {
		return errors.NewValidationError("status", "status is too long")
	}
	return nil
}

// ValidateRentalRequest checks a rental booking. Dates are kept as entered;
// when both parse as calendar dates the end may not precede the start.
func ValidateRentalRequest(req *models.RentalRequest) error {
	if req == nil {
		return errors.NewValidationError("body", "rental request is required")
	}
	if strings.TrimSpace(req.ProductID) == "" && strings.TrimSpace(req.ProductTitle) == "" {
		return errors.NewValidationError("productId", "product is required")
	}

	start := strings.TrimSpace(req.RentalStartDate)
	end := strings.TrimSpace(req.RentalEndDate)
	if start == "" {
		return errors.NewValidationError("rentalStartDate", "start date is required")
	}
	if end == "" {
		return errors.NewValidationError("rentalEndDate", "end date is required")
	}

	startDate, errStart := time.Parse(rentalDateFmt, start)
	endDate, errEnd := time.Parse(rentalDateFmt, end)
	if errStart == nil && errEnd == nil && endDate.Before(startDate) {
		return errors.NewValidationError("rentalEndDate", "end date is before start date")
	}

	if strings.TrimSpace(req.DeliveryAddress) == "" {
		return errors.NewValidationError("deliveryAddress", "delivery address is required")
	}
	return nil
}

// ValidateOrderListFilter validates admin listing parameters.
func ValidateOrderListFilter(filter *models.OrderListFilter) error {
	if filter == nil {
		return errors.NewValidationError("filter", "filter is required")
	}
	if filter.Limit < 0 {
		return errors.NewValidationError("limit", "limit cannot be negative")
	}
	if filter.Offset < 0 {
		return errors.NewValidationError("offset", "offset cannot be negative")
	}
	return nil
}

// ValidateCartItem checks an item before it is added to a cart. The price
// is not validated; unparseable prices display as unknown.
func ValidateCartItem(item *models.CartItem, qty int) error {
	if item == nil || strings.TrimSpace(item.ID) == "" {
		return errors.NewValidationError("id", "item id is required")
	}
	if strings.TrimSpace(item.Title) == "" {
		return errors.NewValidationError("title", "item title is required")
	}
	if qty > 1000 {
		return errors.NewValidationError("qty", "quantity is too large")
	}
	return nil
}
