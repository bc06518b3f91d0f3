package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/climatrack/climatrack/internal/core/domain"
	"github.com/climatrack/climatrack/internal/core/ports"
	"github.com/climatrack/climatrack/internal/pkg/geospatial"
	"github.com/climatrack/climatrack/internal/pkg/metrics"
)

// ErrWeatherUnavailable is returned when no weather provider is configured.
var ErrWeatherUnavailable = errors.New("weather provider not configured")

// WeatherService looks up current conditions for a parcel.
type WeatherService struct {
	parcels  ports.ParcelRepository
	provider ports.WeatherProvider
	cache    ports.CacheService
	ttl      int
}

// NewWeatherService creates a new WeatherService. provider and cache may be nil.
func NewWeatherService(parcels ports.ParcelRepository, provider ports.WeatherProvider, cache ports.CacheService, ttlSeconds int) *WeatherService {
	return &WeatherService{parcels: parcels, provider: provider, cache: cache, ttl: ttlSeconds}
}

// ForParcel uses the parcel coordinates when known and falls back to its
// localisation name.
func (s *WeatherService) ForParcel(ctx context.Context, id int64) (*domain.Weather, error) {
	p, err := s.parcels.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.provider == nil {
		return nil, ErrWeatherUnavailable
	}

	switch {
	case p.Location != nil:
		loc := *p.Location
		return s.cached(ctx, "weather:coords:"+geospatial.CoordKey(loc), func() (*domain.Weather, error) {
			return s.provider.ByCoordinates(ctx, loc)
		})
	case p.Localisation != nil && strings.TrimSpace(*p.Localisation) != "":
		place := strings.TrimSpace(*p.Localisation)
		return s.cached(ctx, "weather:place:"+strings.ToLower(place), func() (*domain.Weather, error) {
			return s.provider.ByPlace(ctx, place)
		})
	default:
		return nil, domain.NewValidationError("parcel", "has neither coordinates nor localisation")
	}
}

func (s *WeatherService) cached(ctx context.Context, key string, fetch func() (*domain.Weather, error)) (*domain.Weather, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var w domain.Weather
			if err := json.Unmarshal(data, &w); err == nil {
				metrics.CacheHits.WithLabelValues("weather").Inc()
				return &w, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("weather").Inc()
	}

	w, err := fetch()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(w); err == nil {
			_ = s.cache.Set(ctx, key, data, s.ttl)
		}
	}
	return w, nil
}
