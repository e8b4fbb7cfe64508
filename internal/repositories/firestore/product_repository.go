package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/oklog/ulid/v2"

	"github.com/velora-shop/api/internal/domain"
	"github.com/velora-shop/api/internal/repositories"
	pfirestore "github.com/velora-shop/api/internal/platform/firestore"
)

const productCollection = "products"

// ProductRepository persists catalog entries in Firestore.
type ProductRepository struct {
	base *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[productDocument](provider, productCollection, nil)
	return &ProductRepository{base: base}, nil
}

// Create inserts a new catalog entry.
func (r *ProductRepository) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}

	productID := strings.TrimSpace(product.ID)
	if productID == "" {
		productID = ulid.Make().String()
	}

	now := time.Now().UTC()
	doc := fromDomainProduct(product, now)
	if _, err := r.base.Set(ctx, productID, doc); err != nil {
		return domain.Product{}, err
	}

	created := toDomainProduct(doc)
	created.ID = productID
	return created, nil
}

// FindByID loads a catalog entry by its identifier.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	if strings.TrimSpace(productID) == "" {
		return domain.Product{}, errors.New("product id is required")
	}

	doc, err := r.base.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	product := toDomainProduct(doc.Data)
	product.ID = doc.ID
	return product, nil
}

// List returns catalog entries matching the filter, newest first.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("product repository not initialised")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if category := strings.TrimSpace(filter.Category); category != "" && !strings.EqualFold(category, "all") {
			q = q.Where("category", "==", strings.ToLower(category))
		}
		if color := strings.TrimSpace(filter.Color); color != "" && !strings.EqualFold(color, "all") {
			q = q.Where("color", "==", strings.ToLower(color))
		}
		if filter.MinPrice > 0 {
			q = q.Where("price", ">=", filter.MinPrice)
		}
		if filter.MaxPrice > 0 {
			q = q.Where("price", "<=", filter.MaxPrice)
		}
		q = q.OrderBy("createdAt", firestore.Desc)
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		return q
	})
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		product := toDomainProduct(doc.Data)
		product.ID = doc.ID
		products = append(products, product)
	}
	return products, nil
}

// Update overwrites the catalog entry.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	if strings.TrimSpace(product.ID) == "" {
		return domain.Product{}, errors.New("product id is required")
	}

	existing, err := r.FindByID(ctx, product.ID)
	if err != nil {
		return domain.Product{}, err
	}

	product.Rating = existing.Rating
	product.CreatedAt = existing.CreatedAt
	doc := fromDomainProduct(product, time.Now().UTC())
	if _, err := r.base.Set(ctx, product.ID, doc); err != nil {
		return domain.Product{}, err
	}

	updated := toDomainProduct(doc)
	updated.ID = product.ID
	return updated, nil
}

// UpdateRating stores the recomputed average rating.
func (r *ProductRepository) UpdateRating(ctx context.Context, productID string, rating float64) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	if strings.TrimSpace(productID) == "" {
		return errors.New("product id is required")
	}

	updates := []firestore.Update{
		{Path: "rating", Value: rating},
		{Path: "updatedAt", Value: time.Now().UTC()},
	}
	_, err := r.base.Update(ctx, productID, updates, firestore.Exists)
	return err
}

// Delete removes the catalog entry.
func (r *ProductRepository) Delete(ctx context.Context, productID string) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	return r.base.Delete(ctx, productID)
}

type productDocument struct {
	Name        string    `firestore:"name"`
	Category    string    `firestore:"category"`
	Description string    `firestore:"description"`
	Price       float64   `firestore:"price"`
	OldPrice    float64   `firestore:"oldPrice,omitempty"`
	Image       string    `firestore:"image"`
	Color       string    `firestore:"color,omitempty"`
	Rating      float64   `firestore:"rating"`
	AuthorRef   string    `firestore:"authorRef,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func fromDomainProduct(product domain.Product, now time.Time) productDocument {
	doc := productDocument{
		Name:        strings.TrimSpace(product.Name),
		Category:    strings.ToLower(strings.TrimSpace(product.Category)),
		Description: strings.TrimSpace(product.Description),
		Price:       product.Price,
		OldPrice:    product.OldPrice,
		Image:       strings.TrimSpace(product.Image),
		Color:       strings.ToLower(strings.TrimSpace(product.Color)),
		Rating:      product.Rating,
		AuthorRef:   strings.TrimSpace(product.AuthorRef),
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   now,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	return doc
}

func toDomainProduct(doc productDocument) domain.Product {
	return domain.Product{
		Name:        doc.Name,
		Category:    doc.Category,
		Description: doc.Description,
		Price:       doc.Price,
		OldPrice:    doc.OldPrice,
		Image:       doc.Image,
		Color:       doc.Color,
		Rating:      doc.Rating,
		AuthorRef:   doc.AuthorRef,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}
