package ports

import (
	"context"

	"github.com/samirrijal/streetrisk/internal/core/domain"
)

// GeometryProvider fetches the street node/way graph inside a bounding box.
type GeometryProvider interface {
	FetchWays(ctx context.Context, bounds domain.Bounds) (*domain.WayGraph, error)
}

// SampleSource loads the point samples for one scoring pass.
// An absent source is an empty collection, not an error.
type SampleSource interface {
	LoadSamples(ctx context.Context) ([]domain.SampleCollection, error)
}

// EventPublisher publishes scoring events to a message broker.
type EventPublisher interface {
	PublishStreetsScored(ctx context.Context, summary domain.RunSummary) error
	PublishRescoreRequest(ctx context.Context, reason string) error
}

// EventSubscriber subscribes to scoring events from a message broker.
type EventSubscriber interface {
	SubscribeRescoreRequests(ctx context.Context, handler func(ctx context.Context, reason string) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
