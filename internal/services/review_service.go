package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/velora-shop/api/internal/domain"
	"github.com/velora-shop/api/internal/repositories"
)

const (
	minReviewRating = 1
	maxReviewRating = 5
)

var (
	// ErrReviewInvalidInput indicates the caller supplied invalid input parameters.
	ErrReviewInvalidInput = errors.New("reviews: invalid input")
	// ErrReviewProductNotFound indicates the reviewed product does not exist.
	ErrReviewProductNotFound = errors.New("reviews: product not found")
	// ErrReviewUnavailable indicates review dependencies are currently unavailable.
	ErrReviewUnavailable = errors.New("reviews: unavailable")
)

// ReviewServiceDeps wires the dependencies required by the review service.
type ReviewServiceDeps struct {
	Reviews  repositories.ReviewRepository
	Products repositories.ProductRepository
	Events   EventPublisher
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type reviewService struct {
	reviews   repositories.ReviewRepository
	products  repositories.ProductRepository
	events    EventPublisher
	sanitizer *bluemonday.Policy
	now       func() time.Time
	logger    func(ctx context.Context, event string, fields map[string]any)
}

// NewReviewService constructs a ReviewService validating required dependencies.
func NewReviewService(deps ReviewServiceDeps) (ReviewService, error) {
	if deps.Reviews == nil {
		return nil, errors.New("review service: review repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("review service: product repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &reviewService{
		reviews:   deps.Reviews,
		products:  deps.Products,
		events:    deps.Events,
		sanitizer: bluemonday.StrictPolicy(),
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// SubmitReview stores the review and emits a review.created event. The
// product's average rating is refreshed by the rating projector consuming
// that event, never inline. A second submission by the same user replaces
// their earlier review.
func (s *reviewService) SubmitReview(ctx context.Context, cmd SubmitReviewCommand) (ReviewResult, error) {
	if s == nil || s.reviews == nil || s.products == nil {
		return ReviewResult{}, ErrReviewUnavailable
	}

	userID := strings.TrimSpace(cmd.UserID)
	productID := strings.TrimSpace(cmd.ProductID)
	comment := strings.TrimSpace(s.sanitizer.Sanitize(cmd.Comment))
	if userID == "" || productID == "" || comment == "" {
		return ReviewResult{}, ErrReviewInvalidInput
	}
	if cmd.Rating < minReviewRating || cmd.Rating > maxReviewRating {
		return ReviewResult{}, ErrReviewInvalidInput
	}

	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if repositories.IsNotFound(err) {
			return ReviewResult{}, ErrReviewProductNotFound
		}
		return ReviewResult{}, s.translateError(err, "load product")
	}

	review, err := s.reviews.Upsert(ctx, domain.Review{
		Comment:    comment,
		Rating:     cmd.Rating,
		UserRef:    userID,
		ProductRef: productID,
	})
	if err != nil {
		return ReviewResult{}, s.translateError(err, "store review")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return ReviewResult{}, s.translateError(err, "reload product")
	}

	s.logger(ctx, "reviews.submitted", map[string]any{
		"reviewId":  review.ID,
		"productId": productID,
		"rating":    review.Rating,
	})
	s.publishReviewCreated(ctx, review)

	return ReviewResult{Review: review, Product: product}, nil
}

// ListUserReviews returns the reviews a customer has written, newest first.
func (s *reviewService) ListUserReviews(ctx context.Context, userID string) ([]domain.Review, error) {
	if s == nil || s.reviews == nil {
		return nil, ErrReviewUnavailable
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrReviewInvalidInput
	}

	reviews, err := s.reviews.ListByUser(ctx, userID)
	if err != nil {
		return nil, s.translateError(err, "list user reviews")
	}
	return reviews, nil
}

// CountReviews returns the total number of reviews across the storefront.
func (s *reviewService) CountReviews(ctx context.Context) (int64, error) {
	if s == nil || s.reviews == nil {
		return 0, ErrReviewUnavailable
	}

	count, err := s.reviews.CountAll(ctx)
	if err != nil {
		return 0, s.translateError(err, "count reviews")
	}
	return count, nil
}

func (s *reviewService) publishReviewCreated(ctx context.Context, review domain.Review) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishReviewCreated(ctx, ReviewCreatedEvent{
		ReviewID:  review.ID,
		ProductID: review.ProductRef,
		UserID:    review.UserRef,
		Rating:    review.Rating,
		CreatedAt: s.now(),
	}); err != nil {
		s.logger(ctx, "reviews.event_publish_failed", map[string]any{
			"reviewId": review.ID,
			"error":    err.Error(),
		})
	}
}

func (s *reviewService) translateError(err error, op string) error {
	switch {
	case repositories.IsNotFound(err):
		return ErrReviewProductNotFound
	case repositories.IsUnavailable(err):
		return ErrReviewUnavailable
	default:
		return fmt.Errorf("reviews: %s: %w", op, err)
	}
}
