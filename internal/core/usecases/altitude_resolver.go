package usecases

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/climatrack/climatrack/internal/core/domain"
	"github.com/climatrack/climatrack/internal/core/ports"
	"github.com/climatrack/climatrack/internal/pkg/geospatial"
	"github.com/climatrack/climatrack/internal/pkg/metrics"
	"github.com/climatrack/climatrack/internal/pkg/telemetry"
)

// AltitudeLookup resolves the ground elevation of a point. A nil result
// means unknown; it is never reported as zero.
type AltitudeLookup interface {
	Resolve(ctx context.Context, p domain.GeoPoint) *float64
}

// AltitudeResolver walks an ordered list of elevation providers and keeps
// the first success. Results are cached per rounded coordinate when a
// cache is configured.
type AltitudeResolver struct {
	providers []ports.ElevationProvider
	cache     ports.CacheService
	cacheTTL  int
}

// NewAltitudeResolver creates a resolver. providers are tried in order;
// cache may be nil.
func NewAltitudeResolver(cache ports.CacheService, cacheTTLSeconds int, providers ...ports.ElevationProvider) *AltitudeResolver {
	return &AltitudeResolver{providers: providers, cache: cache, cacheTTL: cacheTTLSeconds}
}

// Providers returns the provider names in lookup order.
func (r *AltitudeResolver) Providers() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// Resolve returns the elevation in meters or nil when every provider failed.
func (r *AltitudeResolver) Resolve(ctx context.Context, p domain.GeoPoint) *float64 {
	if !p.Valid() {
		return nil
	}

	cacheKey := "altitude:" + geospatial.CoordKey(p)
	if r.cache != nil {
		if data, err := r.cache.Get(ctx, cacheKey); err == nil {
			var alt float64
			if err := json.Unmarshal(data, &alt); err == nil {
				metrics.CacheHits.WithLabelValues("altitude").Inc()
				return &alt
			}
		}
		metrics.CacheMisses.WithLabelValues("altitude").Inc()
	}

	alt, _ := FirstSuccess(ctx, r.providers, p)

	// Unknown results are not cached so a later lookup can still succeed.
	if alt != nil && r.cache != nil {
		if data, err := json.Marshal(*alt); err == nil {
			_ = r.cache.Set(ctx, cacheKey, data, r.cacheTTL)
		}
	}
	return alt
}

// FirstSuccess queries providers in order and returns the first elevation
// along with the name of the provider that produced it. It stops early if
// ctx is done.
func FirstSuccess(ctx context.Context, providers []ports.ElevationProvider, p domain.GeoPoint) (*float64, string) {
	for _, prov := range providers {
		if ctx.Err() != nil {
			return nil, ""
		}
		alt, err := query(ctx, prov, p)
		if err != nil {
			slog.Debug("elevation provider failed, trying next",
				"provider", prov.Name(), "lat", p.Latitude, "lng", p.Longitude, "error", err)
			continue
		}
		return &alt, prov.Name()
	}
	return nil, ""
}

func query(ctx context.Context, prov ports.ElevationProvider, p domain.GeoPoint) (float64, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "elevation."+prov.Name())
	defer span.End()
	span.SetAttributes(
		attribute.Float64("geo.lat", p.Latitude),
		attribute.Float64("geo.lng", p.Longitude),
	)

	start := time.Now()
	alt, err := prov.Elevation(ctx, p)
	metrics.AltitudeLookupDuration.WithLabelValues(prov.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		metrics.AltitudeLookups.WithLabelValues(prov.Name(), "error").Inc()
		return 0, err
	}
	span.SetAttributes(attribute.Float64("elevation.meters", alt))
	metrics.AltitudeLookups.WithLabelValues(prov.Name(), "ok").Inc()
	return alt, nil
}
