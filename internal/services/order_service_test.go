package services

import (
	"context"
	"errors"
	"testing"

	"github.com/velora-shop/api/internal/domain"
)

type stubEventPublisher struct {
	orderEvents  []OrderStatusChangedEvent
	reviewEvents []ReviewCreatedEvent
	err          error
}

func (p *stubEventPublisher) PublishOrderStatusChanged(_ context.Context, event OrderStatusChangedEvent) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.orderEvents = append(p.orderEvents, event)
	return "msg-1", nil
}

func (p *stubEventPublisher) PublishReviewCreated(_ context.Context, event ReviewCreatedEvent) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.reviewEvents = append(p.reviewEvents, event)
	return "msg-1", nil
}

func newOrderServiceForTest(t *testing.T, orders *stubOrderRepository, events EventPublisher) OrderService {
	t.Helper()
	svc, err := NewOrderService(OrderServiceDeps{Orders: orders, Events: events})
	if err != nil {
		t.Fatalf("NewOrderService returned error: %v", err)
	}
	return svc
}

func seedOrder(t *testing.T, orders *stubOrderRepository, order domain.Order) domain.Order {
	t.Helper()
	created, err := orders.Create(context.Background(), order)
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return created
}

func TestSetOrderStatusRejectsUnknownStatus(t *testing.T) {
	orders := newStubOrderRepository()
	seeded := seedOrder(t, orders, domain.Order{
		PaymentRef: "pi_1",
		Email:      "jo@example.com",
		Status:     domain.OrderStatusPending,
	})
	svc := newOrderServiceForTest(t, orders, nil)

	_, err := svc.SetOrderStatus(context.Background(), seeded.ID, "cancelled")
	if !errors.Is(err, ErrOrderInvalidStatus) {
		t.Fatalf("expected ErrOrderInvalidStatus, got %v", err)
	}

	unchanged, err := orders.FindByID(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if unchanged.Status != domain.OrderStatusPending {
		t.Fatalf("rejected update must leave the order unchanged, got %q", unchanged.Status)
	}
}

func TestSetOrderStatusUpdatesAndPublishes(t *testing.T) {
	orders := newStubOrderRepository()
	seeded := seedOrder(t, orders, domain.Order{
		PaymentRef: "pi_1",
		Email:      "jo@example.com",
		Status:     domain.OrderStatusPending,
	})
	events := &stubEventPublisher{}
	svc := newOrderServiceForTest(t, orders, events)

	order, err := svc.SetOrderStatus(context.Background(), seeded.ID, "Shipped")
	if err != nil {
		t.Fatalf("SetOrderStatus returned error: %v", err)
	}
	if order.Status != domain.OrderStatusShipped {
		t.Fatalf("expected shipped, got %q", order.Status)
	}

	if len(events.orderEvents) != 1 {
		t.Fatalf("expected one status event, got %d", len(events.orderEvents))
	}
	event := events.orderEvents[0]
	if event.OrderID != seeded.ID || event.Status != "shipped" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestSetOrderStatusPublishFailureDoesNotFailUpdate(t *testing.T) {
	orders := newStubOrderRepository()
	seeded := seedOrder(t, orders, domain.Order{
		PaymentRef: "pi_1",
		Email:      "jo@example.com",
		Status:     domain.OrderStatusPending,
	})
	events := &stubEventPublisher{err: errors.New("broker down")}
	svc := newOrderServiceForTest(t, orders, events)

	order, err := svc.SetOrderStatus(context.Background(), seeded.ID, "processing")
	if err != nil {
		t.Fatalf("SetOrderStatus returned error: %v", err)
	}
	if order.Status != domain.OrderStatusProcessing {
		t.Fatalf("expected processing, got %q", order.Status)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	svc := newOrderServiceForTest(t, newStubOrderRepository(), nil)

	_, err := svc.GetOrder(context.Background(), "missing")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestDeleteOrder(t *testing.T) {
	orders := newStubOrderRepository()
	seeded := seedOrder(t, orders, domain.Order{
		PaymentRef: "pi_1",
		Email:      "jo@example.com",
		Status:     domain.OrderStatusPending,
	})
	svc := newOrderServiceForTest(t, orders, nil)

	if err := svc.DeleteOrder(context.Background(), seeded.ID); err != nil {
		t.Fatalf("DeleteOrder returned error: %v", err)
	}
	if err := svc.DeleteOrder(context.Background(), seeded.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound on second delete, got %v", err)
	}
}

func TestListOrdersByEmailRequiresEmail(t *testing.T) {
	svc := newOrderServiceForTest(t, newStubOrderRepository(), nil)

	if _, err := svc.ListOrdersByEmail(context.Background(), "  "); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
}
