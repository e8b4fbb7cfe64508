package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/velora-shop/api/internal/domain"
	"github.com/velora-shop/api/internal/repositories"
)

var (
	// ErrStatsInvalidInput indicates the caller supplied invalid input parameters.
	ErrStatsInvalidInput = errors.New("stats: invalid input")
	// ErrStatsUnavailable indicates stats dependencies are currently unavailable.
	ErrStatsUnavailable = errors.New("stats: unavailable")
)

// StatsServiceDeps wires the dependencies required by the stats service.
type StatsServiceDeps struct {
	Orders   repositories.OrderRepository
	Products repositories.ProductRepository
	Reviews  repositories.ReviewRepository
	Users    repositories.UserRepository
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type statsService struct {
	orders   repositories.OrderRepository
	products repositories.ProductRepository
	reviews  repositories.ReviewRepository
	users    repositories.UserRepository
	logger   func(ctx context.Context, event string, fields map[string]any)
}

// NewStatsService constructs a StatsService validating required dependencies.
func NewStatsService(deps StatsServiceDeps) (StatsService, error) {
	if deps.Orders == nil {
		return nil, errors.New("stats service: order repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("stats service: product repository is required")
	}
	if deps.Reviews == nil {
		return nil, errors.New("stats service: review repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("stats service: user repository is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &statsService{
		orders:   deps.Orders,
		products: deps.Products,
		reviews:  deps.Reviews,
		users:    deps.Users,
		logger:   logger,
	}, nil
}

// UserStats summarises one customer's payments, reviews, and purchases.
// Only orders whose payment succeeded count towards the totals.
func (s *statsService) UserStats(ctx context.Context, email string) (UserStats, error) {
	if s == nil || s.orders == nil {
		return UserStats{}, ErrStatsUnavailable
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return UserStats{}, ErrStatsInvalidInput
	}

	orders, err := s.orders.ListByEmail(ctx, email)
	if err != nil {
		return UserStats{}, s.translateError(err, "list orders")
	}

	var stats UserStats
	for _, order := range orders {
		if order.Status == domain.OrderStatusFailed {
			continue
		}
		stats.TotalPayments += order.Amount
		for _, line := range order.Lines {
			stats.TotalPurchases += int64(line.Quantity)
		}
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		reviews, err := s.reviews.ListByUser(ctx, user.ID)
		if err != nil {
			return UserStats{}, s.translateError(err, "list reviews")
		}
		stats.TotalReviews = int64(len(reviews))
	} else if !repositories.IsNotFound(err) {
		return UserStats{}, s.translateError(err, "load user")
	}

	return stats, nil
}

// AdminStats summarises the whole storefront, including per-month earnings.
func (s *statsService) AdminStats(ctx context.Context) (AdminStats, error) {
	if s == nil || s.orders == nil {
		return AdminStats{}, ErrStatsUnavailable
	}

	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return AdminStats{}, s.translateError(err, "list orders")
	}
	products, err := s.products.List(ctx, repositories.ProductListFilter{})
	if err != nil {
		return AdminStats{}, s.translateError(err, "list products")
	}
	reviewCount, err := s.reviews.CountAll(ctx)
	if err != nil {
		return AdminStats{}, s.translateError(err, "count reviews")
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return AdminStats{}, s.translateError(err, "list users")
	}

	stats := AdminStats{
		TotalOrders:   int64(len(orders)),
		TotalProducts: int64(len(products)),
		TotalReviews:  reviewCount,
		TotalUsers:    int64(len(users)),
	}

	type monthKey struct {
		year  int
		month int
	}
	monthly := make(map[monthKey]float64)
	for _, order := range orders {
		if order.Status == domain.OrderStatusFailed {
			continue
		}
		stats.TotalEarnings += order.Amount
		created := order.CreatedAt.UTC()
		key := monthKey{year: created.Year(), month: int(created.Month())}
		monthly[key] += order.Amount
	}

	keys := make([]monthKey, 0, len(monthly))
	for key := range monthly {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	stats.MonthlyEarnings = make([]MonthlyEarning, 0, len(keys))
	for _, key := range keys {
		stats.MonthlyEarnings = append(stats.MonthlyEarnings, MonthlyEarning{
			Year:     key.year,
			Month:    time.Month(key.month),
			Earnings: monthly[key],
		})
	}

	return stats, nil
}

func (s *statsService) translateError(err error, op string) error {
	if repositories.IsUnavailable(err) {
		return ErrStatsUnavailable
	}
	return fmt.Errorf("stats: %s: %w", op, err)
}
