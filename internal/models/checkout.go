package models

import (
	"github.com/sachio/sachio-orders-service/internal/money"
)

// Checkout records a hosted payment started for a user's cart. It binds
// the payment reference to the user and to the amount owed, and keeps the
// lines that the paid order is built from.
type Checkout struct {
	Reference string       `json:"reference"`
	UserID    string       `json:"userId"`
	Email     string       `json:"email,omitempty"`
	Total     money.Amount `json:"total"`
	Currency  string       `json:"currency"`
	Items     []OrderItem  `json:"items"`
	CreatedAt Timestamp    `json:"createdAt"`
}
