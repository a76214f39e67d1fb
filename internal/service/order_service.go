package service

import (
	"context"
	"strings"

	"github.com/sachio/sachio-orders-service/internal/config"
	"github.com/sachio/sachio-orders-service/internal/errors"
	"github.com/sachio/sachio-orders-service/internal/logging"
	"github.com/sachio/sachio-orders-service/internal/metrics"
	"github.com/sachio/sachio-orders-service/internal/models"
	"github.com/sachio/sachio-orders-service/internal/orderview"
	"github.com/sachio/sachio-orders-service/internal/repository"
	"github.com/sachio/sachio-orders-service/internal/status"
)

// EventPublisher announces order writes to other instances.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	PublishOrderStatusChanged(ctx context.Context, order *models.Order, previousStatus string) error
}

// ChangeNotifier pushes fresh snapshots to local live subscribers of userID.
type ChangeNotifier interface {
	Notify(ctx context.Context, userID string)
}

// OrderService handles order business logic.
type OrderService struct {
	orderRepo  repository.OrderRepository
	orderCache repository.OrderCache
	publisher  EventPublisher
	changes    ChangeNotifier
	config     *config.Config
	logger     *logging.Logger
}

// NewOrderService creates a new order service. publisher and changes may be nil.
func NewOrderService(
	orderRepo repository.OrderRepository,
	orderCache repository.OrderCache,
	publisher EventPublisher,
	changes ChangeNotifier,
	cfg *config.Config,
) *OrderService {
	return &OrderService{
		orderRepo:  orderRepo,
		orderCache: orderCache,
		publisher:  publisher,
		changes:    changes,
		config:     cfg,
		logger:     logging.NewLogger("order-service"),
	}
}

// ListForViewer returns the viewer's orders grouped into active, past and
// cancelled, with the active-order badge.
func (s *OrderService) ListForViewer(ctx context.Context, viewer *orderview.Viewer) (*orderview.GroupedSummaries, error) {
	if viewer == nil || viewer.ID == "" {
		return nil, errors.ErrUnauthenticated
	}

	orders, err := s.orderRepo.ListByOwner(ctx, viewer.ID)
	if err != nil {
		s.logger.Error("Failed to list orders", logging.Fields{
			"user_id": viewer.ID,
			"error":   err.Error(),
		})
		return nil, err
	}

	visible := make([]*models.Order, 0, len(orders))
	for _, o := range orders {
		if orderview.CanView(o, viewer) {
			visible = append(visible, o)
		}
	}

	grouped := orderview.Summaries(orderview.Group(visible))
	grouped.Badge = orderview.BadgeCount(visible, viewer.ID)
	return &grouped, nil
}

// Badge counts the viewer's active orders.
func (s *OrderService) Badge(ctx context.Context, viewer *orderview.Viewer) (int, error) {
	if viewer == nil || viewer.ID == "" {
		return 0, errors.ErrUnauthenticated
	}
	orders, err := s.orderRepo.ListByOwner(ctx, viewer.ID)
	if err != nil {
		return 0, err
	}
	return orderview.BadgeCount(orders, viewer.ID), nil
}

// GetForViewer returns the detail of an order the viewer owns. Foreign
// orders yield ErrForbidden and nothing else.
func (s *OrderService) GetForViewer(ctx context.Context, viewer *orderview.Viewer, id string) (*orderview.Detail, error) {
	if viewer == nil || viewer.ID == "" {
		return nil, errors.ErrUnauthenticated
	}

	order, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	detail, err := orderview.BuildDetail(order, viewer)
	if err != nil {
		s.logger.Warn("Order detail denied", logging.Fields{
			"order_id": id,
			"user_id":  viewer.ID,
		})
		return nil, err
	}
	return detail, nil
}

// UpdateStatus overwrites an order's status with free text. No transition
// rules apply; the classifier interprets whatever is written.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, req *models.UpdateOrderStatusRequest) (*models.Order, error) {
	if err := ValidateUpdateOrderStatusRequest(req); err != nil {
		return nil, err
	}
	newStatus := strings.TrimSpace(req.Status)

	s.logger.Info("Updating order status", logging.Fields{
		"order_id":   id,
		"new_status": newStatus,
	})

	current, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previousStatus := current.Status

	order, err := s.orderRepo.UpdateStatus(ctx, id, newStatus)
	if err != nil {
		return nil, err
	}

	// Overwrite rather than delete so a concurrent read-through cannot
	// put the previous status back.
	if s.config.Features.EnableOrderCaching {
		if err := s.orderCache.Set(ctx, order); err != nil {
			if err := s.orderCache.Delete(ctx, id); err != nil {
				s.logger.Error("Failed to invalidate cached order", logging.Fields{
					"order_id": id,
					"error":    err.Error(),
				})
			}
		}
	}

	metrics.OrderStatusUpdates.WithLabelValues(status.BucketOf(order.Status).String()).Inc()

	if s.publisher != nil && s.config.Features.EnableOrderEvents {
		if err := s.publisher.PublishOrderStatusChanged(ctx, order, previousStatus); err != nil {
			s.logger.Error("Failed to publish status change event", logging.Fields{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	}
	s.notifyOwner(ctx, order.UserID)

	return order, nil
}

// BookRental records a rental request. The order carries no price until an
// administrator sets one.
func (s *OrderService) BookRental(ctx context.Context, viewer *orderview.Viewer, req *models.RentalRequest) (*models.Order, error) {
	if viewer == nil || viewer.ID == "" {
		return nil, errors.ErrUnauthenticated
	}
	if err := ValidateRentalRequest(req); err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:          viewer.ID,
		Status:          status.WaitingAdminPrice,
		Type:            models.OrderTypeRent,
		Currency:        s.config.Payment.Currency,
		ProductTitle:    strings.TrimSpace(req.ProductTitle),
		RentalStartDate: strings.TrimSpace(req.RentalStartDate),
		RentalEndDate:   strings.TrimSpace(req.RentalEndDate),
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		CustomerEmail:   viewer.Email,
	}
	if req.ProductID != "" {
		order.Items = []models.OrderItem{{ProductID: req.ProductID, Title: order.ProductTitle, Qty: 1}}
	}

	return s.create(ctx, order)
}

// ListAll lists orders across owners for administrators.
func (s *OrderService) ListAll(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error) {
	if err := ValidateOrderListFilter(filter); err != nil {
		return nil, 0, err
	}

	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	return s.orderRepo.List(ctx, filter)
}

// create persists order and fans the change out.
func (s *OrderService) create(ctx context.Context, order *models.Order) (*models.Order, error) {
	s.logger.Info("Creating order", logging.Fields{
		"user_id": order.UserID,
		"type":    order.Type,
		"status":  order.Status,
	})

	created, err := s.orderRepo.Create(ctx, order)
	if err != nil {
		if !errors.Is(err, errors.ErrConflict) {
			s.logger.Error("Failed to create order", logging.Fields{
				"user_id": order.UserID,
				"error":   err.Error(),
			})
		}
		return nil, err
	}

	metrics.OrdersCreated.WithLabelValues(string(created.Type), created.Status).Inc()

	if s.config.Features.EnableOrderCaching {
		if err := s.orderCache.Set(ctx, created); err != nil {
			s.logger.Error("Failed to cache order", logging.Fields{
				"order_id": created.ID,
				"error":    err.Error(),
			})
		}
	}

	if s.publisher != nil && s.config.Features.EnableOrderEvents {
		if err := s.publisher.PublishOrderCreated(ctx, created); err != nil {
			s.logger.Error("Failed to publish order created event", logging.Fields{
				"order_id": created.ID,
				"error":    err.Error(),
			})
		}
	}
	s.notifyOwner(ctx, created.UserID)

	s.logger.Info("Order created successfully", logging.Fields{
		"order_id": created.ID,
		"total":    orderview.FormatTotal(created),
	})
	return created, nil
}

func (s *OrderService) getOrder(ctx context.Context, id string) (*models.Order, error) {
	if s.config.Features.EnableOrderCaching {
		if order, err := s.orderCache.Get(ctx, id); err == nil && order != nil {
			s.logger.Debug("Order found in cache", logging.Fields{"order_id": id})
			return order, nil
		}
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.config.Features.EnableOrderCaching {
		if err := s.orderCache.Add(ctx, order); err != nil {
			s.logger.Debug("Failed to cache order", logging.Fields{"order_id": id, "error": err.Error()})
		}
	}
	return order, nil
}

func (s *OrderService) notifyOwner(ctx context.Context, userID string) {
	if s.changes != nil && userID != "" {
		s.changes.Notify(ctx, userID)
	}
}
