// Package elevation holds the ground elevation providers used by the
// altitude resolver.
package elevation

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"googlemaps.github.io/maps"

	"github.com/climatrack/climatrack/internal/core/domain"
	"github.com/climatrack/climatrack/internal/pkg/geospatial"
)

// Google queries the Google Maps elevation service. Values are rounded to
// two decimals.
type Google struct {
	client *maps.Client
}

// NewGoogle creates the provider. baseURL overrides the service host and
// may be empty.
func NewGoogle(apiKey, baseURL string, httpClient *http.Client) (*Google, error) {
	opts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, maps.WithHTTPClient(httpClient))
	}
	c, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("google maps client: %w", err)
	}
	return &Google{client: c}, nil
}

func (g *Google) Name() string { return "google" }

// Elevation returns the elevation of p in metres.
func (g *Google) Elevation(ctx context.Context, p domain.GeoPoint) (float64, error) {
	res, err := g.client.Elevation(ctx, &maps.ElevationRequest{
		Locations: []maps.LatLng{{Lat: p.Latitude, Lng: p.Longitude}},
	})
	if err != nil {
		return 0, &domain.TransientProviderError{Provider: g.Name(), Err: err}
	}
	if len(res) == 0 {
		return 0, &domain.TransientProviderError{Provider: g.Name(), Err: errors.New("no results")}
	}
	return geospatial.Round(res[0].Elevation, 2), nil
}
