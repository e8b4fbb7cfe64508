package repositories

import (
	"context"
	"errors"

	"github.com/velora-shop/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	Products() ProductRepository
	Reviews() ReviewRepository
	Users() UserRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// IsNotFound reports whether err categorises as a missing record.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

// IsConflict reports whether err categorises as a conflicting write,
// including unique-constraint violations.
func IsConflict(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

// IsUnavailable reports whether err categorises as a transient backend outage.
func IsUnavailable(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsUnavailable()
}

// OrderRepository persists orders keyed by their unique payment reference.
// Create enforces at-most-one order per PaymentRef and reports violations as
// a conflict RepositoryError.
type OrderRepository interface {
	Create(ctx context.Context, order domain.Order) (domain.Order, error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByPaymentRef(ctx context.Context, paymentRef string) (domain.Order, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error)
	Delete(ctx context.Context, orderID string) error
}

// ProductRepository persists catalog entries.
type ProductRepository interface {
	Create(ctx context.Context, product domain.Product) (domain.Product, error)
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) ([]domain.Product, error)
	Update(ctx context.Context, product domain.Product) (domain.Product, error)
	UpdateRating(ctx context.Context, productID string, rating float64) error
	Delete(ctx context.Context, productID string) error
}

// ProductListFilter narrows catalog listings.
type ProductListFilter struct {
	Category string
	Color    string
	MinPrice float64
	MaxPrice float64
	Limit    int
}

// ReviewRepository persists product reviews, one per user and product pair.
// DeleteByProduct backs the catalog cascade when a product is removed.
type ReviewRepository interface {
	Upsert(ctx context.Context, review domain.Review) (domain.Review, error)
	ListByProduct(ctx context.Context, productID string) ([]domain.Review, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Review, error)
	DeleteByProduct(ctx context.Context, productID string) (int, error)
	CountAll(ctx context.Context) (int64, error)
}

// UserRepository persists registered accounts. Create enforces unique emails
// and reports violations as a conflict RepositoryError.
type UserRepository interface {
	Create(ctx context.Context, user domain.UserProfile) (domain.UserProfile, error)
	FindByID(ctx context.Context, userID string) (domain.UserProfile, error)
	FindByEmail(ctx context.Context, email string) (domain.UserProfile, error)
	List(ctx context.Context) ([]domain.UserProfile, error)
	UpdateProfile(ctx context.Context, user domain.UserProfile) (domain.UserProfile, error)
	UpdateRole(ctx context.Context, userID string, role domain.UserRole) (domain.UserProfile, error)
	Delete(ctx context.Context, userID string) error
}
