package models

import (
	"github.com/sachio/sachio-orders-service/internal/money"
)

// OrderType distinguishes purchases from rentals.
type OrderType string

const (
	OrderTypeBuy  OrderType = "buy"
	OrderTypeRent OrderType = "rent"
)

// Order is an order document as persisted. Status is free text and any of
// Price, Amount or Total may carry the order value as a number or a
// currency-formatted string.
type Order struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId"`
	Status           string          `json:"status"`
	Type             OrderType       `json:"type"`
	Price            money.RawAmount `json:"price"`
	Amount           money.RawAmount `json:"amount"`
	Total            money.RawAmount `json:"total"`
	Currency         string          `json:"currency,omitempty"`
	ProductTitle     string          `json:"productTitle,omitempty"`
	Items            []OrderItem     `json:"items,omitempty"`
	RentalStartDate  string          `json:"rentalStartDate,omitempty"`
	RentalEndDate    string          `json:"rentalEndDate,omitempty"`
	PaymentReference string          `json:"paymentReference,omitempty"`
	CustomerEmail    string          `json:"customerEmail,omitempty"`
	DeliveryAddress  string          `json:"deliveryAddress,omitempty"`
	CreatedAt        Timestamp       `json:"createdAt"`
}

// IsRental reports whether the order is a rental booking.
func (o *Order) IsRental() bool {
	return o.Type == OrderTypeRent
}

// OrderItem is a purchased line captured at checkout.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	Price     money.RawAmount `json:"price"`
	Qty       int             `json:"qty"`
}

// CartItem is a line in a device-local cart.
type CartItem struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Price    money.RawAmount `json:"price"`
	ImageURL string          `json:"imageUrl,omitempty"`
	Qty      int             `json:"qty"`
}

// UpdateOrderStatusRequest overwrites an order's status string.
type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

// RentalRequest books a rental that an administrator will price.
type RentalRequest struct {
	ProductID       string `json:"productId"`
	ProductTitle    string `json:"productTitle"`
	RentalStartDate string `json:"rentalStartDate"`
	RentalEndDate   string `json:"rentalEndDate"`
	DeliveryAddress string `json:"deliveryAddress"`
}

// OrderListFilter narrows admin order listings.
type OrderListFilter struct {
	UserID string
	Limit  int
	Offset int
}
