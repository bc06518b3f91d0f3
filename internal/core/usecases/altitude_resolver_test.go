package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/climatrack/climatrack/internal/core/domain"
	"github.com/climatrack/climatrack/internal/core/ports"
	"github.com/climatrack/climatrack/internal/core/usecases"
)

var tunis = domain.GeoPoint{Latitude: 36.8065, Longitude: 10.1815}

func TestAltitudeResolver_FallbackAfterPrimaryFails(t *testing.T) {
	primary := &mockElevation{name: "google"}
	fallback := &mockElevation{name: "open-elevation", fn: func(ctx context.Context, p domain.GeoPoint) (float64, error) {
		return 123.4, nil
	}}

	r := usecases.NewAltitudeResolver(nil, 0, primary, fallback)
	alt := r.Resolve(context.Background(), tunis)
	if alt == nil {
		t.Fatal("expected altitude from fallback")
	}
	if *alt != 123.4 {
		t.Errorf("expected 123.4, got %v", *alt)
	}
	if primary.Calls() != 1 || fallback.Calls() != 1 {
		t.Errorf("expected one call each, got %d/%d", primary.Calls(), fallback.Calls())
	}
}

func TestAltitudeResolver_PrimaryWinsWithoutFallback(t *testing.T) {
	primary := &mockElevation{name: "google", fn: func(ctx context.Context, p domain.GeoPoint) (float64, error) {
		return 12.35, nil
	}}
	fallback := &mockElevation{name: "open-elevation"}

	alt := usecases.NewAltitudeResolver(nil, 0, primary, fallback).Resolve(context.Background(), tunis)
	if alt == nil || *alt != 12.35 {
		t.Fatalf("expected 12.35, got %v", alt)
	}
	if fallback.Calls() != 0 {
		t.Error("fallback should not be called after a primary success")
	}
}

func TestAltitudeResolver_AllFailIsUnknown(t *testing.T) {
	r := usecases.NewAltitudeResolver(nil, 0,
		&mockElevation{name: "google"},
		&mockElevation{name: "open-elevation"},
	)
	if alt := r.Resolve(context.Background(), tunis); alt != nil {
		t.Errorf("expected nil altitude, got %v", *alt)
	}
}

func TestAltitudeResolver_NoProviders(t *testing.T) {
	if alt := usecases.NewAltitudeResolver(nil, 0).Resolve(context.Background(), tunis); alt != nil {
		t.Errorf("expected nil altitude, got %v", *alt)
	}
}

func TestAltitudeResolver_InvalidPointSkipsProviders(t *testing.T) {
	p := &mockElevation{name: "google"}
	r := usecases.NewAltitudeResolver(nil, 0, p)
	if alt := r.Resolve(context.Background(), domain.GeoPoint{Latitude: 120}); alt != nil {
		t.Error("expected nil for invalid point")
	}
	if p.Calls() != 0 {
		t.Error("provider should not be called for an invalid point")
	}
}

func TestAltitudeResolver_CachesKnownValuesOnly(t *testing.T) {
	cache := newMockCache()
	calls := 0
	prov := &mockElevation{name: "open-elevation", fn: func(ctx context.Context, p domain.GeoPoint) (float64, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("timeout")
		}
		return 40, nil
	}}
	r := usecases.NewAltitudeResolver(cache, 60, prov)

	if alt := r.Resolve(context.Background(), tunis); alt != nil {
		t.Fatal("first lookup should fail")
	}
	if cache.sets != 0 {
		t.Error("unknown altitude must not be cached")
	}

	if alt := r.Resolve(context.Background(), tunis); alt == nil || *alt != 40 {
		t.Fatalf("expected 40, got %v", alt)
	}
	// nearby point rounding to the same key is served from cache
	near := domain.GeoPoint{Latitude: tunis.Latitude + 0.000001, Longitude: tunis.Longitude}
	if alt := r.Resolve(context.Background(), near); alt == nil || *alt != 40 {
		t.Fatalf("expected cached 40, got %v", alt)
	}
	if prov.Calls() != 2 {
		t.Errorf("expected 2 provider calls, got %d", prov.Calls())
	}
}

func TestFirstSuccess_ReportsProvider(t *testing.T) {
	providers := []ports.ElevationProvider{
		&mockElevation{name: "a"},
		&mockElevation{name: "b", fn: func(ctx context.Context, p domain.GeoPoint) (float64, error) { return 5, nil }},
	}
	alt, name := usecases.FirstSuccess(context.Background(), providers, tunis)
	if alt == nil || *alt != 5 || name != "b" {
		t.Errorf("unexpected result %v %q", alt, name)
	}
}

func TestFirstSuccess_StopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &mockElevation{name: "a", fn: func(ctx context.Context, p domain.GeoPoint) (float64, error) { return 1, nil }}
	alt, _ := usecases.FirstSuccess(ctx, []ports.ElevationProvider{p}, tunis)
	if alt != nil || p.Calls() != 0 {
		t.Error("expected no lookups once the context is done")
	}
}
