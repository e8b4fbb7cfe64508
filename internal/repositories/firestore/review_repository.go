package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/velora-shop/api/internal/domain"
	pfirestore "github.com/velora-shop/api/internal/platform/firestore"
)

const reviewCollection = "reviews"

// ReviewRepository persists product reviews in Firestore. The document ID is
// derived from the user and product pair, so resubmitting a review overwrites
// the previous one.
type ReviewRepository struct {
	base *pfirestore.BaseRepository[reviewDocument]
}

// NewReviewRepository constructs a Firestore-backed review repository.
func NewReviewRepository(provider *pfirestore.Provider) (*ReviewRepository, error) {
	if provider == nil {
		return nil, errors.New("review repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[reviewDocument](provider, reviewCollection, nil)
	return &ReviewRepository{base: base}, nil
}

// Upsert writes the review under its deterministic user+product key.
func (r *ReviewRepository) Upsert(ctx context.Context, review domain.Review) (domain.Review, error) {
	if r == nil || r.base == nil {
		return domain.Review{}, errors.New("review repository not initialised")
	}
	userRef := strings.TrimSpace(review.UserRef)
	productRef := strings.TrimSpace(review.ProductRef)
	if userRef == "" || productRef == "" {
		return domain.Review{}, errors.New("review user and product are required")
	}

	reviewID := reviewKey(userRef, productRef)
	now := time.Now().UTC()

	existing, err := r.base.Get(ctx, reviewID)
	if err == nil {
		review.CreatedAt = existing.Data.CreatedAt
	} else if !isNotFound(err) {
		return domain.Review{}, err
	}

	doc := fromDomainReview(review, now)
	if _, err := r.base.Set(ctx, reviewID, doc); err != nil {
		return domain.Review{}, err
	}

	saved := toDomainReview(doc)
	saved.ID = reviewID
	return saved, nil
}

// ListByProduct returns the reviews for a product, newest first.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("review repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, errors.New("product id is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("productRef", "==", productID).OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	return toDomainReviews(docs), nil
}

// ListByUser returns the reviews a customer has written, newest first.
func (r *ReviewRepository) ListByUser(ctx context.Context, userID string) ([]domain.Review, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("review repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("userRef", "==", userID).OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	return toDomainReviews(docs), nil
}

// DeleteByProduct removes every review attached to a product and reports how
// many documents were deleted. Used by the catalog cascade on product delete.
func (r *ReviewRepository) DeleteByProduct(ctx context.Context, productID string) (int, error) {
	if r == nil || r.base == nil {
		return 0, errors.New("review repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return 0, errors.New("product id is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("productRef", "==", productID)
	})
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, doc := range docs {
		if err := r.base.Delete(ctx, doc.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// CountAll returns the total number of reviews.
func (r *ReviewRepository) CountAll(ctx context.Context) (int64, error) {
	if r == nil || r.base == nil {
		return 0, errors.New("review repository not initialised")
	}

	docs, err := r.base.Query(ctx, nil)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func reviewKey(userRef, productRef string) string {
	return fmt.Sprintf("%s_%s", userRef, productRef)
}

func isNotFound(err error) bool {
	type notFounder interface{ IsNotFound() bool }
	var nf notFounder
	return errors.As(err, &nf) && nf.IsNotFound()
}

type reviewDocument struct {
	Comment    string    `firestore:"comment"`
	Rating     float64   `firestore:"rating"`
	UserRef    string    `firestore:"userRef"`
	ProductRef string    `firestore:"productRef"`
	CreatedAt  time.Time `firestore:"createdAt"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

func fromDomainReview(review domain.Review, now time.Time) reviewDocument {
	doc := reviewDocument{
		Comment:    strings.TrimSpace(review.Comment),
		Rating:     review.Rating,
		UserRef:    strings.TrimSpace(review.UserRef),
		ProductRef: strings.TrimSpace(review.ProductRef),
		CreatedAt:  review.CreatedAt,
		UpdatedAt:  now,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	return doc
}

func toDomainReview(doc reviewDocument) domain.Review {
	return domain.Review{
		Comment:    doc.Comment,
		Rating:     doc.Rating,
		UserRef:    doc.UserRef,
		ProductRef: doc.ProductRef,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}

func toDomainReviews(docs []pfirestore.Document[reviewDocument]) []domain.Review {
	reviews := make([]domain.Review, 0, len(docs))
	for _, doc := range docs {
		review := toDomainReview(doc.Data)
		review.ID = doc.ID
		reviews = append(reviews, review)
	}
	return reviews
}
