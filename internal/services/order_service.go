package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/velora-shop/api/internal/domain"
	"github.com/velora-shop/api/internal/repositories"
)

var (
	// ErrOrderInvalidInput indicates the caller supplied invalid input parameters.
	ErrOrderInvalidInput = errors.New("orders: invalid input")
	// ErrOrderNotFound indicates the requested order does not exist.
	ErrOrderNotFound = errors.New("orders: not found")
	// ErrOrderInvalidStatus indicates the requested status is outside the known set.
	ErrOrderInvalidStatus = errors.New("orders: invalid status")
	// ErrOrderUnavailable indicates order dependencies are currently unavailable.
	ErrOrderUnavailable = errors.New("orders: unavailable")
)

// OrderServiceDeps wires the dependencies required by the order service.
type OrderServiceDeps struct {
	Orders repositories.OrderRepository
	Events EventPublisher
	Clock  func() time.Time
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders repositories.OrderRepository
	events EventPublisher
	now    func() time.Time
	logger func(ctx context.Context, event string, fields map[string]any)
}

// NewOrderService constructs an OrderService validating required dependencies.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders: deps.Orders,
		events: deps.Events,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// GetOrder loads a single order by its identifier.
func (s *orderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	if s == nil || s.orders == nil {
		return domain.Order{}, ErrOrderUnavailable
	}
	if strings.TrimSpace(orderID) == "" {
		return domain.Order{}, ErrOrderInvalidInput
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.translateError(err, "get order")
	}
	return order, nil
}

// ListOrdersByEmail returns the customer's orders, newest first.
func (s *orderService) ListOrdersByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	if s == nil || s.orders == nil {
		return nil, ErrOrderUnavailable
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrOrderInvalidInput
	}

	orders, err := s.orders.ListByEmail(ctx, email)
	if err != nil {
		return nil, s.translateError(err, "list orders by email")
	}
	return orders, nil
}

// ListAllOrders returns every order, newest first.
func (s *orderService) ListAllOrders(ctx context.Context) ([]domain.Order, error) {
	if s == nil || s.orders == nil {
		return nil, ErrOrderUnavailable
	}

	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, s.translateError(err, "list orders")
	}
	return orders, nil
}

// SetOrderStatus validates and applies an administrative status update. An
// unknown status is rejected before any write happens.
func (s *orderService) SetOrderStatus(ctx context.Context, orderID string, status string) (domain.Order, error) {
	if s == nil || s.orders == nil {
		return domain.Order{}, ErrOrderUnavailable
	}
	if strings.TrimSpace(orderID) == "" {
		return domain.Order{}, ErrOrderInvalidInput
	}

	next := domain.OrderStatus(strings.ToLower(strings.TrimSpace(status)))
	if _, ok := domain.ValidOrderStatuses[next]; !ok {
		return domain.Order{}, ErrOrderInvalidStatus
	}

	order, err := s.orders.UpdateStatus(ctx, orderID, next)
	if err != nil {
		return domain.Order{}, s.translateError(err, "update order status")
	}

	s.logger(ctx, "orders.status_changed", map[string]any{
		"orderId": order.ID,
		"status":  string(order.Status),
	})
	s.publishStatusChanged(ctx, order)
	return order, nil
}

// DeleteOrder removes an order.
func (s *orderService) DeleteOrder(ctx context.Context, orderID string) error {
	if s == nil || s.orders == nil {
		return ErrOrderUnavailable
	}
	if strings.TrimSpace(orderID) == "" {
		return ErrOrderInvalidInput
	}

	if err := s.orders.Delete(ctx, orderID); err != nil {
		return s.translateError(err, "delete order")
	}

	s.logger(ctx, "orders.deleted", map[string]any{"orderId": orderID})
	return nil
}

func (s *orderService) publishStatusChanged(ctx context.Context, order domain.Order) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishOrderStatusChanged(ctx, OrderStatusChangedEvent{
		OrderID:    order.ID,
		PaymentRef: order.PaymentRef,
		Email:      order.Email,
		Status:     string(order.Status),
		ChangedAt:  s.now(),
	}); err != nil {
		s.logger(ctx, "orders.event_publish_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
}

func (s *orderService) translateError(err error, op string) error {
	switch {
	case repositories.IsNotFound(err):
		return ErrOrderNotFound
	case repositories.IsUnavailable(err):
		return ErrOrderUnavailable
	default:
		return fmt.Errorf("orders: %s: %w", op, err)
	}
}
