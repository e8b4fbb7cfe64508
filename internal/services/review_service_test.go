package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/velora-shop/api/internal/domain"
	"github.com/velora-shop/api/internal/repositories"
)

type stubReviewStore struct {
	reviews  map[string]domain.Review
	nextID   int
	upsertN  int
	listErr  error
	countVal int64
}

func newStubReviewStore() *stubReviewStore {
	return &stubReviewStore{reviews: make(map[string]domain.Review)}
}

func (r *stubReviewStore) Upsert(_ context.Context, review domain.Review) (domain.Review, error) {
	r.upsertN++
	key := review.UserRef + "_" + review.ProductRef
	if existing, ok := r.reviews[key]; ok {
		review.ID = existing.ID
	} else {
		r.nextID++
		review.ID = fmt.Sprintf("review-%d", r.nextID)
	}
	r.reviews[key] = review
	return review, nil
}

func (r *stubReviewStore) ListByProduct(_ context.Context, productID string) ([]domain.Review, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.Review
	for _, review := range r.reviews {
		if review.ProductRef == productID {
			out = append(out, review)
		}
	}
	return out, nil
}

func (r *stubReviewStore) ListByUser(_ context.Context, userID string) ([]domain.Review, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.Review
	for _, review := range r.reviews {
		if review.UserRef == userID {
			out = append(out, review)
		}
	}
	return out, nil
}

func (r *stubReviewStore) DeleteByProduct(_ context.Context, productID string) (int, error) {
	deleted := 0
	for key, review := range r.reviews {
		if review.ProductRef == productID {
			delete(r.reviews, key)
			deleted++
		}
	}
	return deleted, nil
}

func (r *stubReviewStore) CountAll(context.Context) (int64, error) {
	if r.countVal > 0 {
		return r.countVal, nil
	}
	return int64(len(r.reviews)), nil
}

type stubProductStore struct {
	products map[string]domain.Product
	ratings  map[string]float64
	nextID   int
}

func newStubProductStore(products ...domain.Product) *stubProductStore {
	store := &stubProductStore{
		products: make(map[string]domain.Product),
		ratings:  make(map[string]float64),
	}
	for _, product := range products {
		store.products[product.ID] = product
	}
	return store
}

func (r *stubProductStore) Create(_ context.Context, product domain.Product) (domain.Product, error) {
	if product.ID == "" {
		r.nextID++
		product.ID = fmt.Sprintf("product-%d", r.nextID)
	}
	r.products[product.ID] = product
	return product, nil
}

func (r *stubProductStore) FindByID(_ context.Context, productID string) (domain.Product, error) {
	product, ok := r.products[productID]
	if !ok {
		return domain.Product{}, &stubRepoError{notFound: true}
	}
	return product, nil
}

func (r *stubProductStore) List(context.Context, repositories.ProductListFilter) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(r.products))
	for _, product := range r.products {
		out = append(out, product)
	}
	return out, nil
}

func (r *stubProductStore) Update(_ context.Context, product domain.Product) (domain.Product, error) {
	if _, ok := r.products[product.ID]; !ok {
		return domain.Product{}, &stubRepoError{notFound: true}
	}
	r.products[product.ID] = product
	return product, nil
}

func (r *stubProductStore) UpdateRating(_ context.Context, productID string, rating float64) error {
	if _, ok := r.products[productID]; !ok {
		return &stubRepoError{notFound: true}
	}
	r.ratings[productID] = rating
	return nil
}

func (r *stubProductStore) Delete(_ context.Context, productID string) error {
	if _, ok := r.products[productID]; !ok {
		return &stubRepoError{notFound: true}
	}
	delete(r.products, productID)
	return nil
}

func newReviewServiceForTest(t *testing.T, reviews *stubReviewStore, products *stubProductStore, events EventPublisher) ReviewService {
	t.Helper()
	svc, err := NewReviewService(ReviewServiceDeps{
		Reviews:  reviews,
		Products: products,
		Events:   events,
	})
	if err != nil {
		t.Fatalf("NewReviewService returned error: %v", err)
	}
	return svc
}

func TestSubmitReviewStoresAndPublishes(t *testing.T) {
	reviews := newStubReviewStore()
	products := newStubProductStore(domain.Product{ID: "p1", Name: "Mug"})
	events := &stubEventPublisher{}
	svc := newReviewServiceForTest(t, reviews, products, events)

	result, err := svc.SubmitReview(context.Background(), SubmitReviewCommand{
		Comment:   "Great mug",
		Rating:    5,
		UserID:    "user-1",
		ProductID: "p1",
	})
	if err != nil {
		t.Fatalf("SubmitReview returned error: %v", err)
	}
	if result.Review.ID == "" || result.Product.ID != "p1" {
		t.Fatalf("unexpected result %+v", result)
	}

	if len(events.reviewEvents) != 1 {
		t.Fatalf("expected one review event, got %d", len(events.reviewEvents))
	}
	event := events.reviewEvents[0]
	if event.ProductID != "p1" || event.Rating != 5 {
		t.Fatalf("unexpected event %+v", event)
	}
	if _, changed := products.ratings["p1"]; changed {
		t.Fatal("submit must not touch the product rating directly")
	}
}

func TestSubmitReviewReplacesEarlierReview(t *testing.T) {
	reviews := newStubReviewStore()
	products := newStubProductStore(domain.Product{ID: "p1"})
	svc := newReviewServiceForTest(t, reviews, products, nil)

	first, err := svc.SubmitReview(context.Background(), SubmitReviewCommand{
		Comment: "Fine", Rating: 3, UserID: "user-1", ProductID: "p1",
	})
	if err != nil {
		t.Fatalf("first SubmitReview returned error: %v", err)
	}
	second, err := svc.SubmitReview(context.Background(), SubmitReviewCommand{
		Comment: "Actually great", Rating: 5, UserID: "user-1", ProductID: "p1",
	})
	if err != nil {
		t.Fatalf("second SubmitReview returned error: %v", err)
	}

	if first.Review.ID != second.Review.ID {
		t.Fatalf("expected the review to be replaced, got %q and %q", first.Review.ID, second.Review.ID)
	}
	stored, err := svc.ListUserReviews(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListUserReviews returned error: %v", err)
	}
	if len(stored) != 1 || stored[0].Rating != 5 {
		t.Fatalf("unexpected stored reviews %+v", stored)
	}
}

func TestSubmitReviewStripsMarkup(t *testing.T) {
	reviews := newStubReviewStore()
	products := newStubProductStore(domain.Product{ID: "p1"})
	svc := newReviewServiceForTest(t, reviews, products, nil)

	result, err := svc.SubmitReview(context.Background(), SubmitReviewCommand{
		Comment:   `Nice <script>alert("x")</script> mug`,
		Rating:    4,
		UserID:    "user-1",
		ProductID: "p1",
	})
	if err != nil {
		t.Fatalf("SubmitReview returned error: %v", err)
	}
	if result.Review.Comment != "Nice  mug" {
		t.Fatalf("expected markup stripped, got %q", result.Review.Comment)
	}
}

func TestSubmitReviewValidation(t *testing.T) {
	svc := newReviewServiceForTest(t, newStubReviewStore(), newStubProductStore(domain.Product{ID: "p1"}), nil)

	cases := map[string]SubmitReviewCommand{
		"missing user":    {Comment: "ok", Rating: 4, ProductID: "p1"},
		"missing product": {Comment: "ok", Rating: 4, UserID: "user-1"},
		"empty comment":   {Comment: "  ", Rating: 4, UserID: "user-1", ProductID: "p1"},
		"rating too low":  {Comment: "ok", Rating: 0, UserID: "user-1", ProductID: "p1"},
		"rating too high": {Comment: "ok", Rating: 6, UserID: "user-1", ProductID: "p1"},
	}
	for name, cmd := range cases {
		if _, err := svc.SubmitReview(context.Background(), cmd); !errors.Is(err, ErrReviewInvalidInput) {
			t.Fatalf("%s: expected ErrReviewInvalidInput, got %v", name, err)
		}
	}
}

func TestSubmitReviewUnknownProduct(t *testing.T) {
	svc := newReviewServiceForTest(t, newStubReviewStore(), newStubProductStore(), nil)

	_, err := svc.SubmitReview(context.Background(), SubmitReviewCommand{
		Comment: "ok", Rating: 4, UserID: "user-1", ProductID: "missing",
	})
	if !errors.Is(err, ErrReviewProductNotFound) {
		t.Fatalf("expected ErrReviewProductNotFound, got %v", err)
	}
}

func TestCountReviews(t *testing.T) {
	reviews := newStubReviewStore()
	reviews.countVal = 42
	svc := newReviewServiceForTest(t, reviews, newStubProductStore(), nil)

	count, err := svc.CountReviews(context.Background())
	if err != nil {
		t.Fatalf("CountReviews returned error: %v", err)
	}
	if count != 42 {
		t.Fatalf("expected 42, got %d", count)
	}
}
