package jobs

import (
	"context"
	"testing"

	"cloud.google.com/go/pubsub"

	"github.com/velora-shop/api/internal/domain"
	"github.com/velora-shop/api/internal/repositories"
)

func placeholderSubscription(t *testing.T) *pubsub.Subscription {
	t.Helper()
	_, client, topic := newTestTopic(t)
	sub, err := client.CreateSubscription(context.Background(), "storefront-events-sub", pubsub.SubscriptionConfig{Topic: topic})
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
	return sub
}

type stubReviewRepository struct {
	byProduct map[string][]domain.Review
}

func (r *stubReviewRepository) Upsert(_ context.Context, review domain.Review) (domain.Review, error) {
	return review, nil
}

func (r *stubReviewRepository) ListByProduct(_ context.Context, productID string) ([]domain.Review, error) {
	return r.byProduct[productID], nil
}

func (r *stubReviewRepository) ListByUser(context.Context, string) ([]domain.Review, error) {
	return nil, nil
}

func (r *stubReviewRepository) DeleteByProduct(context.Context, string) (int, error) {
	return 0, nil
}

func (r *stubReviewRepository) CountAll(context.Context) (int64, error) {
	return 0, nil
}

type stubProductRepository struct {
	ratings map[string]float64
}

func (r *stubProductRepository) Create(_ context.Context, product domain.Product) (domain.Product, error) {
	return product, nil
}

func (r *stubProductRepository) FindByID(context.Context, string) (domain.Product, error) {
	return domain.Product{}, nil
}

func (r *stubProductRepository) List(context.Context, repositories.ProductListFilter) ([]domain.Product, error) {
	return nil, nil
}

func (r *stubProductRepository) Update(_ context.Context, product domain.Product) (domain.Product, error) {
	return product, nil
}

func (r *stubProductRepository) UpdateRating(_ context.Context, productID string, rating float64) error {
	if r.ratings == nil {
		r.ratings = make(map[string]float64)
	}
	r.ratings[productID] = rating
	return nil
}

func (r *stubProductRepository) Delete(context.Context, string) error {
	return nil
}

func TestRefreshRatingRoundsToOneDecimal(t *testing.T) {
	reviews := &stubReviewRepository{
		byProduct: map[string][]domain.Review{
			"p1": {
				{ID: "r1", ProductRef: "p1", Rating: 5},
				{ID: "r2", ProductRef: "p1", Rating: 4},
				{ID: "r3", ProductRef: "p1", Rating: 4},
			},
		},
	}
	products := &stubProductRepository{}

	projector, err := NewRatingProjector(RatingProjectorDeps{
		Subscription: placeholderSubscription(t),
		Reviews:      reviews,
		Products:     products,
	})
	if err != nil {
		t.Fatalf("NewRatingProjector: %v", err)
	}

	if err := projector.RefreshRating(context.Background(), "p1"); err != nil {
		t.Fatalf("RefreshRating: %v", err)
	}
	if got := products.ratings["p1"]; got != 4.3 {
		t.Fatalf("expected average 4.3, got %v", got)
	}
}

func TestRefreshRatingWithoutReviewsResetsToZero(t *testing.T) {
	products := &stubProductRepository{ratings: map[string]float64{"p1": 4.5}}

	projector, err := NewRatingProjector(RatingProjectorDeps{
		Subscription: placeholderSubscription(t),
		Reviews:      &stubReviewRepository{},
		Products:     products,
	})
	if err != nil {
		t.Fatalf("NewRatingProjector: %v", err)
	}

	if err := projector.RefreshRating(context.Background(), "p1"); err != nil {
		t.Fatalf("RefreshRating: %v", err)
	}
	if got := products.ratings["p1"]; got != 0 {
		t.Fatalf("expected rating reset to 0, got %v", got)
	}
}
