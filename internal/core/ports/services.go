package ports

import (
	"context"

	"github.com/samirrijal/ebtfinder/internal/core/domain"
)

// ClickPublisher publishes click events to a message broker.
type ClickPublisher interface {
	PublishClick(ctx context.Context, event *domain.ClickEvent) error
}

// ClickSubscriber consumes click events from a message broker.
type ClickSubscriber interface {
	SubscribeClicks(ctx context.Context, handler func(ctx context.Context, event *domain.ClickEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
