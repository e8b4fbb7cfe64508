package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/velora-shop/api/internal/domain"
	"github.com/velora-shop/api/internal/repositories"
)

var (
	// ErrProductInvalidInput indicates the caller supplied invalid input parameters.
	ErrProductInvalidInput = errors.New("products: invalid input")
	// ErrProductNotFound indicates the requested product does not exist.
	ErrProductNotFound = errors.New("products: not found")
	// ErrProductUnavailable indicates product dependencies are currently unavailable.
	ErrProductUnavailable = errors.New("products: unavailable")
)

// ProductServiceDeps wires the dependencies required by the product service.
type ProductServiceDeps struct {
	Products repositories.ProductRepository
	Reviews  repositories.ReviewRepository
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type productService struct {
	products repositories.ProductRepository
	reviews  repositories.ReviewRepository
	logger   func(ctx context.Context, event string, fields map[string]any)
}

// NewProductService constructs a ProductService validating required dependencies.
func NewProductService(deps ProductServiceDeps) (ProductService, error) {
	if deps.Products == nil {
		return nil, errors.New("product service: product repository is required")
	}
	if deps.Reviews == nil {
		return nil, errors.New("product service: review repository is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &productService{
		products: deps.Products,
		reviews:  deps.Reviews,
		logger:   logger,
	}, nil
}

// CreateProduct adds a catalog entry.
func (s *productService) CreateProduct(ctx context.Context, cmd ProductCommand) (domain.Product, error) {
	if s == nil || s.products == nil {
		return domain.Product{}, ErrProductUnavailable
	}
	if err := validateProductCommand(cmd); err != nil {
		return domain.Product{}, err
	}

	product, err := s.products.Create(ctx, domain.Product{
		Name:        cmd.Name,
		Category:    cmd.Category,
		Description: cmd.Description,
		Price:       cmd.Price,
		OldPrice:    cmd.OldPrice,
		Image:       cmd.Image,
		Color:       cmd.Color,
		AuthorRef:   cmd.AuthorRef,
	})
	if err != nil {
		return domain.Product{}, s.translateError(err, "create product")
	}

	s.logger(ctx, "products.created", map[string]any{
		"productId": product.ID,
		"category":  product.Category,
	})
	return product, nil
}

// GetProduct loads a catalog entry together with its reviews.
func (s *productService) GetProduct(ctx context.Context, productID string) (ProductDetails, error) {
	if s == nil || s.products == nil {
		return ProductDetails{}, ErrProductUnavailable
	}
	if strings.TrimSpace(productID) == "" {
		return ProductDetails{}, ErrProductInvalidInput
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return ProductDetails{}, s.translateError(err, "get product")
	}

	reviews, err := s.reviews.ListByProduct(ctx, productID)
	if err != nil {
		return ProductDetails{}, s.translateError(err, "list product reviews")
	}

	return ProductDetails{Product: product, Reviews: reviews}, nil
}

// ListProducts returns catalog entries matching the filter.
func (s *productService) ListProducts(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	if s == nil || s.products == nil {
		return nil, ErrProductUnavailable
	}

	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, s.translateError(err, "list products")
	}
	return products, nil
}

// UpdateProduct overwrites a catalog entry's writable fields.
func (s *productService) UpdateProduct(ctx context.Context, productID string, cmd ProductCommand) (domain.Product, error) {
	if s == nil || s.products == nil {
		return domain.Product{}, ErrProductUnavailable
	}
	if strings.TrimSpace(productID) == "" {
		return domain.Product{}, ErrProductInvalidInput
	}
	if err := validateProductCommand(cmd); err != nil {
		return domain.Product{}, err
	}

	product, err := s.products.Update(ctx, domain.Product{
		ID:          productID,
		Name:        cmd.Name,
		Category:    cmd.Category,
		Description: cmd.Description,
		Price:       cmd.Price,
		OldPrice:    cmd.OldPrice,
		Image:       cmd.Image,
		Color:       cmd.Color,
		AuthorRef:   cmd.AuthorRef,
	})
	if err != nil {
		return domain.Product{}, s.translateError(err, "update product")
	}

	s.logger(ctx, "products.updated", map[string]any{"productId": product.ID})
	return product, nil
}

// DeleteProduct removes a catalog entry together with its reviews.
func (s *productService) DeleteProduct(ctx context.Context, productID string) error {
	if s == nil || s.products == nil {
		return ErrProductUnavailable
	}
	if strings.TrimSpace(productID) == "" {
		return ErrProductInvalidInput
	}

	if err := s.products.Delete(ctx, productID); err != nil {
		return s.translateError(err, "delete product")
	}

	deleted, err := s.reviews.DeleteByProduct(ctx, productID)
	if err != nil {
		// The product itself is gone; orphaned reviews are invisible to the
		// storefront, so report the cascade failure without undoing the delete.
		s.logger(ctx, "products.review_cascade_failed", map[string]any{
			"productId": productID,
			"error":     err.Error(),
		})
		deleted = 0
	}

	s.logger(ctx, "products.deleted", map[string]any{
		"productId":      productID,
		"reviewsDeleted": deleted,
	})
	return nil
}

func validateProductCommand(cmd ProductCommand) error {
	if strings.TrimSpace(cmd.Name) == "" {
		return ErrProductInvalidInput
	}
	if strings.TrimSpace(cmd.Category) == "" {
		return ErrProductInvalidInput
	}
	if cmd.Price <= 0 {
		return ErrProductInvalidInput
	}
	return nil
}

func (s *productService) translateError(err error, op string) error {
	switch {
	case repositories.IsNotFound(err):
		return ErrProductNotFound
	case repositories.IsUnavailable(err):
		return ErrProductUnavailable
	default:
		return fmt.Errorf("products: %s: %w", op, err)
	}
}
