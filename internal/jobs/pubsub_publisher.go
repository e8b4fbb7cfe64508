package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/velora-shop/api/internal/services"
)

const (
	eventTypeOrderStatusChanged = "order.status_changed"
	eventTypeReviewCreated      = "review.created"
)

// PubSubEventPublisher publishes storefront events to a Pub/Sub topic.
type PubSubEventPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubEventPublisher constructs a Pub/Sub backed event publisher.
func NewPubSubEventPublisher(topic *pubsub.Topic) (*PubSubEventPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub event publisher: topic is required")
	}
	return &PubSubEventPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishOrderStatusChanged enqueues an order status change on the configured topic.
func (p *PubSubEventPublisher) PublishOrderStatusChanged(ctx context.Context, event services.OrderStatusChangedEvent) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub event publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal order status event: %w", err)
	}

	attrs := map[string]string{"eventType": eventTypeOrderStatusChanged}
	setAttr(attrs, "orderId", event.OrderID)
	setAttr(attrs, "status", event.Status)

	return p.publish(ctx, data, attrs)
}

// PublishReviewCreated enqueues a review creation on the configured topic.
func (p *PubSubEventPublisher) PublishReviewCreated(ctx context.Context, event services.ReviewCreatedEvent) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub event publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal review event: %w", err)
	}

	attrs := map[string]string{"eventType": eventTypeReviewCreated}
	setAttr(attrs, "reviewId", event.ReviewID)
	setAttr(attrs, "productId", event.ProductID)
	setAttr(attrs, "rating", strconv.FormatFloat(event.Rating, 'f', -1, 64))

	return p.publish(ctx, data, attrs)
}

func (p *PubSubEventPublisher) publish(ctx context.Context, data []byte, attrs map[string]string) (string, error) {
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish event: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}

var _ services.EventPublisher = (*PubSubEventPublisher)(nil)
