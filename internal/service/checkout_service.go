package service

import (
	"context"

	"github.com/sachio/sachio-orders-service/internal/cart"
	"github.com/sachio/sachio-orders-service/internal/clients"
	"github.com/sachio/sachio-orders-service/internal/config"
	"github.com/sachio/sachio-orders-service/internal/errors"
	"github.com/sachio/sachio-orders-service/internal/logging"
	"github.com/sachio/sachio-orders-service/internal/metrics"
	"github.com/sachio/sachio-orders-service/internal/models"
	"github.com/sachio/sachio-orders-service/internal/money"
	"github.com/sachio/sachio-orders-service/internal/orderview"
	"github.com/sachio/sachio-orders-service/internal/repository"
	"github.com/sachio/sachio-orders-service/internal/status"
)

// CheckoutSession is returned when a hosted payment is started.
type CheckoutSession struct {
	AuthorizationURL string `json:"authorizationUrl"`
	Reference        string `json:"reference"`
	Amount           string `json:"amount"`
	Provider         string `json:"provider"`
}

// CheckoutService runs per-user carts and turns them into orders.
type CheckoutService struct {
	orders    *OrderService
	orderRepo repository.OrderRepository
	checkouts repository.CheckoutRepository
	carts     cart.Store
	gateway   clients.PaymentGateway
	notifier  clients.Notifier
	config    *config.Config
	logger    *logging.Logger
}

// NewCheckoutService creates a new checkout service. A nil notifier disables
// receipts.
func NewCheckoutService(
	orders *OrderService,
	checkouts repository.CheckoutRepository,
	carts cart.Store,
	gateway clients.PaymentGateway,
	notifier clients.Notifier,
	cfg *config.Config,
) *CheckoutService {
	if notifier == nil {
		notifier = clients.NoopNotifier{}
	}
	return &CheckoutService{
		orders:    orders,
		orderRepo: orders.orderRepo,
		checkouts: checkouts,
		carts:     carts,
		gateway:   gateway,
		notifier:  notifier,
		config:    cfg,
		logger:    logging.NewLogger("checkout-service"),
	}
}

// CartKey is the storage key of userID's cart.
func CartKey(userID string) string {
	return cart.DefaultKey + ":" + userID
}

func (s *CheckoutService) openCart(ctx context.Context, userID string) (*cart.Cart, error) {
	c, err := cart.Open(ctx, s.carts, CartKey(userID))
	if err != nil {
		s.logger.Error("Failed to load cart", logging.Fields{
			"user_id": userID,
			"error":   err.Error(),
		})
		return nil, errors.ErrUnavailable
	}
	return c, nil
}

// Cart returns the viewer's cart summary.
func (s *CheckoutService) Cart(ctx context.Context, viewer *orderview.Viewer) (*cart.Summary, error) {
	return s.withCart(ctx, viewer, nil)
}

// AddToCart adds qty of item, merging with an existing line of the same id.
func (s *CheckoutService) AddToCart(ctx context.Context, viewer *orderview.Viewer, item models.CartItem, qty int) (*cart.Summary, error) {
	if err := ValidateCartItem(&item, qty); err != nil {
		return nil, err
	}
	return s.withCart(ctx, viewer, func(c *cart.Cart) error {
		return c.Add(ctx, item, qty)
	})
}

// IncrementItem raises a line quantity by one.
func (s *CheckoutService) IncrementItem(ctx context.Context, viewer *orderview.Viewer, id string) (*cart.Summary, error) {
	return s.withCart(ctx, viewer, func(c *cart.Cart) error {
		return c.Increment(ctx, id)
	})
}

// DecrementItem lowers a line quantity by one, never below one.
func (s *CheckoutService) DecrementItem(ctx context.Context, viewer *orderview.Viewer, id string) (*cart.Summary, error) {
	return s.withCart(ctx, viewer, func(c *cart.Cart) error {
		return c.Decrement(ctx, id)
	})
}

// RemoveItem deletes a line.
func (s *CheckoutService) RemoveItem(ctx context.Context, viewer *orderview.Viewer, id string) (*cart.Summary, error) {
	return s.withCart(ctx, viewer, func(c *cart.Cart) error {
		return c.Remove(ctx, id)
	})
}

// ClearCart empties the cart.
func (s *CheckoutService) ClearCart(ctx context.Context, viewer *orderview.Viewer) (*cart.Summary, error) {
	return s.withCart(ctx, viewer, func(c *cart.Cart) error {
		return c.Clear(ctx)
	})
}

func (s *CheckoutService) withCart(ctx context.Context, viewer *orderview.Viewer, fn func(*cart.Cart) error) (*cart.Summary, error) {
	if viewer == nil || viewer.ID == "" {
		return nil, errors.ErrUnauthenticated
	}
	c, err := s.openCart(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	if fn != nil {
		if err := fn(c); err != nil {
			if errors.Is(err, cart.ErrPersist) {
				metrics.CartPersistFailures.Inc()
			}
			return nil, err
		}
	}
	summary := c.Summary()
	return &summary, nil
}

// StartCheckout opens a hosted payment for the cart total including shipping.
func (s *CheckoutService) StartCheckout(ctx context.Context, viewer *orderview.Viewer) (*CheckoutSession, error) {
	if viewer == nil || viewer.ID == "" {
		return nil, errors.ErrUnauthenticated
	}
	if viewer.Email == "" {
		return nil, errors.NewValidationError("email", "an email address is required for card payments")
	}

	c, err := s.openCart(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	if c.Len() == 0 {
		return nil, errors.NewValidationError("cart", "cart is empty")
	}

	amount := c.TotalWithShipping()
	reference := clients.NewReference()

	pending := &models.Checkout{
		Reference: reference,
		UserID:    viewer.ID,
		Email:     viewer.Email,
		Total:     amount,
		Currency:  s.config.Payment.Currency,
		Items:     c.OrderItems(),
		CreatedAt: models.Now(),
	}
	if err := s.checkouts.CreateCheckout(ctx, pending); err != nil {
		s.logger.Error("Failed to record checkout", logging.Fields{
			"user_id":   viewer.ID,
			"reference": reference,
			"error":     err.Error(),
		})
		return nil, errors.ErrUnavailable
	}

	s.logger.Info("Starting checkout", logging.Fields{
		"user_id":   viewer.ID,
		"reference": reference,
		"amount":    amount.String(),
		"provider":  s.gateway.Provider(),
	})

	resp, err := s.gateway.Initialize(ctx, &clients.InitializeRequest{
		Reference:   reference,
		Email:       viewer.Email,
		Amount:      amount,
		Currency:    s.config.Payment.Currency,
		CallbackURL: s.config.Payment.CallbackURL,
		Metadata:    map[string]string{"user_id": viewer.ID},
	})
	if err != nil {
		return nil, err
	}

	metrics.CheckoutAmount.Observe(amount.Float64())

	return &CheckoutSession{
		AuthorizationURL: resp.AuthorizationURL,
		Reference:        reference,
		Amount:           money.Format(amount),
		Provider:         s.gateway.Provider(),
	}, nil
}

// HandleCallback confirms the payment named by the checkout redirect URL.
func (s *CheckoutService) HandleCallback(ctx context.Context, viewer *orderview.Viewer, callbackURL string) (*models.Order, error) {
	if viewer == nil || viewer.ID == "" {
		return nil, errors.ErrUnauthenticated
	}

	res, err := clients.ParseCallbackURL(callbackURL)
	if err != nil || res.Reference == "" {
		return nil, errors.NewValidationError("reference", "payment reference is missing")
	}
	if !res.Success {
		metrics.PaymentConfirmations.WithLabelValues(s.gateway.Provider(), "cancelled").Inc()
		return nil, errors.NewValidationError("status", "payment was not completed")
	}
	return s.ConfirmPayment(ctx, viewer.ID, res.Reference)
}

// ConfirmPayment verifies reference with the gateway, then creates a paid
// order from the checkout recorded by StartCheckout and clears the cart.
// Only the user who started the checkout may confirm it, and a payment
// below the recorded total never produces a paid order. Confirming the
// same reference again returns the order created the first time.
func (s *CheckoutService) ConfirmPayment(ctx context.Context, userID, reference string) (*models.Order, error) {
	provider := s.gateway.Provider()

	if existing, err := s.orderRepo.GetByPaymentReference(ctx, reference); err == nil {
		if existing.UserID != userID {
			return nil, errors.ErrForbidden
		}
		metrics.PaymentConfirmations.WithLabelValues(provider, "duplicate").Inc()
		return existing, nil
	} else if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	pending, err := s.checkouts.GetCheckout(ctx, reference)
	if errors.Is(err, errors.ErrNotFound) {
		metrics.PaymentConfirmations.WithLabelValues(provider, "unknown").Inc()
		return nil, errors.NewValidationError("reference", "unknown payment reference")
	}
	if err != nil {
		metrics.PaymentConfirmations.WithLabelValues(provider, "error").Inc()
		return nil, errors.ErrUnavailable
	}
	if pending.UserID != userID {
		metrics.PaymentConfirmations.WithLabelValues(provider, "forbidden").Inc()
		s.logger.Warn("Checkout confirmed by another user", logging.Fields{
			"reference": reference,
			"owner":     pending.UserID,
			"user_id":   userID,
		})
		return nil, errors.ErrForbidden
	}

	verification, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		metrics.PaymentConfirmations.WithLabelValues(provider, "error").Inc()
		return nil, err
	}
	if !verification.Paid {
		metrics.PaymentConfirmations.WithLabelValues(provider, "unpaid").Inc()
		return nil, errors.NewValidationError("reference", "payment has not been completed")
	}
	if verification.Amount.LessThan(pending.Total) {
		metrics.PaymentConfirmations.WithLabelValues(provider, "underpaid").Inc()
		s.logger.Warn("Paid amount below checkout total", logging.Fields{
			"reference": reference,
			"paid":      verification.Amount.String(),
			"expected":  pending.Total.String(),
		})
		return nil, errors.NewValidationError("amount", "payment is less than the order total")
	}

	c, err := s.openCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	order := s.orderFromCheckout(pending, status.Paid)
	order.PaymentReference = reference
	order.CustomerEmail = verification.Email
	if order.CustomerEmail == "" {
		order.CustomerEmail = pending.Email
	}

	created, err := s.orders.create(ctx, order)
	if err != nil {
		if errors.Is(err, errors.ErrConflict) {
			metrics.PaymentConfirmations.WithLabelValues(provider, "duplicate").Inc()
			return s.orderRepo.GetByPaymentReference(ctx, reference)
		}
		metrics.PaymentConfirmations.WithLabelValues(provider, "error").Inc()
		return nil, err
	}
	metrics.PaymentConfirmations.WithLabelValues(provider, "paid").Inc()

	s.clearAfterOrder(ctx, c, created)
	s.sendReceipt(created)
	return created, nil
}

// PlaceTransferOrder records a bank-transfer order awaiting manual payment
// confirmation and clears the cart.
func (s *CheckoutService) PlaceTransferOrder(ctx context.Context, viewer *orderview.Viewer) (*models.Order, error) {
	if viewer == nil || viewer.ID == "" {
		return nil, errors.ErrUnauthenticated
	}

	c, err := s.openCart(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	if c.Len() == 0 {
		return nil, errors.NewValidationError("cart", "cart is empty")
	}

	order := s.orderFromCart(c, viewer.ID, status.PendingTransfer, c.TotalWithShipping())
	order.CustomerEmail = viewer.Email

	created, err := s.orders.create(ctx, order)
	if err != nil {
		return nil, err
	}

	s.clearAfterOrder(ctx, c, created)
	s.sendReceipt(created)
	return created, nil
}

func (s *CheckoutService) orderFromCart(c *cart.Cart, userID, orderStatus string, total money.Amount) *models.Order {
	return s.newOrder(userID, orderStatus, total, s.config.Payment.Currency, c.OrderItems())
}

// orderFromCheckout builds the order from the items and total the user was
// charged for, not from whatever the cart holds now.
func (s *CheckoutService) orderFromCheckout(c *models.Checkout, orderStatus string) *models.Order {
	currency := c.Currency
	if currency == "" {
		currency = s.config.Payment.Currency
	}
	return s.newOrder(c.UserID, orderStatus, c.Total, currency, c.Items)
}

func (s *CheckoutService) newOrder(userID, orderStatus string, total money.Amount, currency string, items []models.OrderItem) *models.Order {
	order := &models.Order{
		UserID:   userID,
		Status:   orderStatus,
		Type:     models.OrderTypeBuy,
		Total:    money.NewRawAmount(total),
		Currency: currency,
		Items:    items,
	}
	if len(items) == 1 {
		order.ProductTitle = items[0].Title
	}
	return order
}

// clearAfterOrder empties the cart once the order exists. A failure here
// leaves a stale cart but never undoes the order.
func (s *CheckoutService) clearAfterOrder(ctx context.Context, c *cart.Cart, order *models.Order) {
	if err := c.Clear(ctx); err != nil {
		metrics.CartPersistFailures.Inc()
		s.logger.Error("Failed to clear cart after order", logging.Fields{
			"order_id": order.ID,
			"user_id":  order.UserID,
			"error":    err.Error(),
		})
	}
}

func (s *CheckoutService) sendReceipt(order *models.Order) {
	if !s.config.Features.EnableReceiptEmails {
		return
	}
	go func() {
		if err := s.notifier.SendOrderReceipt(context.Background(), order); err != nil {
			s.logger.Error("Failed to send order receipt", logging.Fields{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	}()
}
