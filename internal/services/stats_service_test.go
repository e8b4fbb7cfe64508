package services

import (
	"context"
	"testing"
	"time"

	"github.com/velora-shop/api/internal/domain"
)

func newStatsServiceForTest(t *testing.T, orders *stubOrderRepository, products *stubProductStore, reviews *stubReviewStore, users *stubUserStore) StatsService {
	t.Helper()
	svc, err := NewStatsService(StatsServiceDeps{
		Orders:   orders,
		Products: products,
		Reviews:  reviews,
		Users:    users,
	})
	if err != nil {
		t.Fatalf("NewStatsService returned error: %v", err)
	}
	return svc
}

func TestUserStatsSkipsFailedOrders(t *testing.T) {
	orders := newStubOrderRepository()
	seedOrder(t, orders, domain.Order{
		PaymentRef: "pi_1",
		Email:      "jo@example.com",
		Amount:     20,
		Status:     domain.OrderStatusPending,
		Lines: []domain.OrderLine{
			{ProductRef: "p1", Quantity: 2},
			{ProductRef: "p2", Quantity: 1},
		},
	})
	seedOrder(t, orders, domain.Order{
		PaymentRef: "pi_2",
		Email:      "jo@example.com",
		Amount:     99,
		Status:     domain.OrderStatusFailed,
		Lines:      []domain.OrderLine{{ProductRef: "p3", Quantity: 5}},
	})

	users := newStubUserStore()
	user, err := users.Create(context.Background(), domain.UserProfile{Email: "jo@example.com"})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	reviews := newStubReviewStore()
	if _, err := reviews.Upsert(context.Background(), domain.Review{UserRef: user.ID, ProductRef: "p1", Rating: 5}); err != nil {
		t.Fatalf("seed review: %v", err)
	}

	svc := newStatsServiceForTest(t, orders, newStubProductStore(), reviews, users)

	stats, err := svc.UserStats(context.Background(), "Jo@Example.com")
	if err != nil {
		t.Fatalf("UserStats returned error: %v", err)
	}
	if stats.TotalPayments != 20 {
		t.Fatalf("failed orders must not count, got payments %v", stats.TotalPayments)
	}
	if stats.TotalPurchases != 3 {
		t.Fatalf("expected 3 purchased items, got %d", stats.TotalPurchases)
	}
	if stats.TotalReviews != 1 {
		t.Fatalf("expected 1 review, got %d", stats.TotalReviews)
	}
}

func TestUserStatsWithoutAccount(t *testing.T) {
	orders := newStubOrderRepository()
	seedOrder(t, orders, domain.Order{
		PaymentRef: "pi_1",
		Email:      "guest@example.com",
		Amount:     10,
		Status:     domain.OrderStatusPending,
	})

	svc := newStatsServiceForTest(t, orders, newStubProductStore(), newStubReviewStore(), newStubUserStore())

	stats, err := svc.UserStats(context.Background(), "guest@example.com")
	if err != nil {
		t.Fatalf("UserStats returned error: %v", err)
	}
	if stats.TotalPayments != 10 || stats.TotalReviews != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestAdminStatsAggregates(t *testing.T) {
	orders := newStubOrderRepository()
	march := time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)
	april := time.Date(2026, time.April, 1, 8, 0, 0, 0, time.UTC)
	seedOrder(t, orders, domain.Order{
		PaymentRef: "pi_1", Email: "a@example.com", Amount: 10,
		Status: domain.OrderStatusPending, CreatedAt: march,
	})
	seedOrder(t, orders, domain.Order{
		PaymentRef: "pi_2", Email: "b@example.com", Amount: 15,
		Status: domain.OrderStatusDelivered, CreatedAt: march,
	})
	seedOrder(t, orders, domain.Order{
		PaymentRef: "pi_3", Email: "c@example.com", Amount: 30,
		Status: domain.OrderStatusPending, CreatedAt: april,
	})
	seedOrder(t, orders, domain.Order{
		PaymentRef: "pi_4", Email: "d@example.com", Amount: 99,
		Status: domain.OrderStatusFailed, CreatedAt: april,
	})

	products := newStubProductStore(domain.Product{ID: "p1"}, domain.Product{ID: "p2"})
	reviews := newStubReviewStore()
	reviews.countVal = 7
	users := newStubUserStore()
	if _, err := users.Create(context.Background(), domain.UserProfile{Email: "a@example.com"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	svc := newStatsServiceForTest(t, orders, products, reviews, users)

	stats, err := svc.AdminStats(context.Background())
	if err != nil {
		t.Fatalf("AdminStats returned error: %v", err)
	}
	if stats.TotalOrders != 4 || stats.TotalProducts != 2 || stats.TotalReviews != 7 || stats.TotalUsers != 1 {
		t.Fatalf("unexpected totals %+v", stats)
	}
	if stats.TotalEarnings != 55 {
		t.Fatalf("failed orders must not earn, got %v", stats.TotalEarnings)
	}

	if len(stats.MonthlyEarnings) != 2 {
		t.Fatalf("expected 2 monthly buckets, got %+v", stats.MonthlyEarnings)
	}
	if stats.MonthlyEarnings[0].Month != time.March || stats.MonthlyEarnings[0].Earnings != 25 {
		t.Fatalf("unexpected first bucket %+v", stats.MonthlyEarnings[0])
	}
	if stats.MonthlyEarnings[1].Month != time.April || stats.MonthlyEarnings[1].Earnings != 30 {
		t.Fatalf("unexpected second bucket %+v", stats.MonthlyEarnings[1])
	}
}
