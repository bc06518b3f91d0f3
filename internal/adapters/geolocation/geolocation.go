// Package geolocation provides one-shot position fixes for filling in
// coordinates the parcel backend did not return.
package geolocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/climatrack/climatrack/internal/core/domain"
)

// ErrUnavailable is returned when no position can be produced.
var ErrUnavailable = errors.New("position unavailable")

// Static returns the fix reported by the device alongside the request.
// A nil fix behaves like a denied permission.
type Static struct {
	Fix *domain.GeoFix
}

func (s Static) Locate(ctx context.Context, highAccuracy bool) (*domain.GeoFix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Fix == nil || !s.Fix.Point.Valid() {
		return nil, ErrUnavailable
	}
	fix := *s.Fix
	return &fix, nil
}

// HTTPLocator asks an IP geolocation endpoint (ip-api.com JSON shape). It
// never knows the altitude and ignores the accuracy hint.
type HTTPLocator struct {
	url    string
	client *http.Client
}

// NewHTTPLocator creates a locator for url.
func NewHTTPLocator(url string, client *http.Client) *HTTPLocator {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPLocator{url: url, client: client}
}

type ipAPIResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (l *HTTPLocator) Locate(ctx context.Context, highAccuracy bool) (*domain.GeoFix, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &domain.TransientProviderError{Provider: "geolocation", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.TransientProviderError{Provider: "geolocation", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &domain.TransientProviderError{Provider: "geolocation", Err: fmt.Errorf("decode: %w", err)}
	}
	if body.Status != "success" {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, body.Message)
	}

	p := domain.GeoPoint{Latitude: body.Lat, Longitude: body.Lon}
	if !p.Valid() {
		return nil, ErrUnavailable
	}
	return &domain.GeoFix{Point: p}, nil
}
