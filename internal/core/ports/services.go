package ports

import (
	"context"

	"github.com/climatrack/climatrack/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishParcelCreated(ctx context.Context, ev *domain.ParcelCreated) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeParcelCreated(ctx context.Context, handler func(ctx context.Context, ev *domain.ParcelCreated) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// ElevationProvider looks up ground elevation in meters for one point.
// Any error means "try the next provider".
type ElevationProvider interface {
	Name() string
	Elevation(ctx context.Context, p domain.GeoPoint) (float64, error)
}

// Geolocator produces a one-shot device position.
type Geolocator interface {
	Locate(ctx context.Context, highAccuracy bool) (*domain.GeoFix, error)
}

// ParcelGateway is the parcel backend as seen by a draft.
type ParcelGateway interface {
	CreateParcel(ctx context.Context, rec domain.ParcelRecord) (*domain.ParcelRecord, error)
	UpdateParcel(ctx context.Context, rec domain.ParcelRecord) (*domain.ParcelRecord, error)
}

// WeatherProvider fetches current conditions.
type WeatherProvider interface {
	ByCoordinates(ctx context.Context, p domain.GeoPoint) (*domain.Weather, error)
	ByPlace(ctx context.Context, place string) (*domain.Weather, error)
}
