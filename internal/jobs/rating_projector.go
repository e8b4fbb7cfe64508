package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/velora-shop/api/internal/repositories"
	"github.com/velora-shop/api/internal/services"
)

// RatingProjector consumes review.created events and refreshes the affected
// product's average rating. Keeping the recomputation out of the review
// write path means a slow catalog update never delays a review submission.
type RatingProjector struct {
	subscription *pubsub.Subscription
	reviews      repositories.ReviewRepository
	products     repositories.ProductRepository
	logger       func(ctx context.Context, event string, fields map[string]any)
}

// RatingProjectorDeps wires the dependencies required by the projector.
type RatingProjectorDeps struct {
	Subscription *pubsub.Subscription
	Reviews      repositories.ReviewRepository
	Products     repositories.ProductRepository
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

// NewRatingProjector constructs a RatingProjector validating required dependencies.
func NewRatingProjector(deps RatingProjectorDeps) (*RatingProjector, error) {
	if deps.Subscription == nil {
		return nil, errors.New("rating projector: subscription is required")
	}
	if deps.Reviews == nil {
		return nil, errors.New("rating projector: review repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("rating projector: product repository is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &RatingProjector{
		subscription: deps.Subscription,
		reviews:      deps.Reviews,
		products:     deps.Products,
		logger:       logger,
	}, nil
}

// Run blocks receiving messages until the context is cancelled.
func (p *RatingProjector) Run(ctx context.Context) error {
	if p == nil || p.subscription == nil {
		return errors.New("rating projector: not initialised")
	}

	err := p.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if msg.Attributes["eventType"] != eventTypeReviewCreated {
			msg.Ack()
			return
		}
		if err := p.handle(ctx, msg.Data); err != nil {
			p.logger(ctx, "jobs.rating_refresh_failed", map[string]any{"error": err.Error()})
			msg.Nack()
			return
		}
		msg.Ack()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("rating projector: receive: %w", err)
	}
	return nil
}

func (p *RatingProjector) handle(ctx context.Context, data []byte) error {
	var event services.ReviewCreatedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("decode review event: %w", err)
	}

	productID := strings.TrimSpace(event.ProductID)
	if productID == "" {
		return errors.New("review event has no product id")
	}
	return p.RefreshRating(ctx, productID)
}

// RefreshRating recomputes a product's average rating from its stored
// reviews and writes it back, rounded to one decimal place.
func (p *RatingProjector) RefreshRating(ctx context.Context, productID string) error {
	reviews, err := p.reviews.ListByProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("list reviews for %s: %w", productID, err)
	}

	var average float64
	if len(reviews) > 0 {
		var total float64
		for _, review := range reviews {
			total += review.Rating
		}
		average = math.Round(total/float64(len(reviews))*10) / 10
	}

	if err := p.products.UpdateRating(ctx, productID, average); err != nil {
		return fmt.Errorf("update rating for %s: %w", productID, err)
	}

	p.logger(ctx, "jobs.rating_refreshed", map[string]any{
		"productId": productID,
		"average":   average,
		"reviews":   len(reviews),
	})
	return nil
}
