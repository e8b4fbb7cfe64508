package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/velora-shop/api/internal/platform/firestore"
	"github.com/velora-shop/api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the shared accessor interface.
type Registry struct {
	provider *pfirestore.Provider
	orders   *OrderRepository
	products *ProductRepository
	reviews  *ReviewRepository
	users    *UserRepository
}

// NewRegistry constructs the repository registry over a shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, err
	}
	reviews, err := NewReviewRepository(provider)
	if err != nil {
		return nil, err
	}
	users, err := NewUserRepository(provider)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider: provider,
		orders:   orders,
		products: products,
		reviews:  reviews,
		users:    users,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// Orders exposes the order repository.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// Products exposes the product repository.
func (r *Registry) Products() repositories.ProductRepository { return r.products }

// Reviews exposes the review repository.
func (r *Registry) Reviews() repositories.ReviewRepository { return r.reviews }

// Users exposes the user repository.
func (r *Registry) Users() repositories.UserRepository { return r.users }

var _ repositories.Registry = (*Registry)(nil)
