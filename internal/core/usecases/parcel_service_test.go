package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/climatrack/climatrack/internal/core/domain"
	"github.com/climatrack/climatrack/internal/core/usecases"
)

func TestParcelService_ListByOwnerRejectsBadOwner(t *testing.T) {
	svc := usecases.NewParcelService(&mockParcelRepo{}, nil)
	if _, err := svc.ListByOwner(context.Background(), 0); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParcelService_CreateDerivesFromPolygon(t *testing.T) {
	var stored *domain.Parcel
	repo := &mockParcelRepo{createFn: func(ctx context.Context, p *domain.Parcel) error {
		p.ID = 11
		stored = p
		return nil
	}}
	svc := usecases.NewParcelService(repo, nil)

	poly := `[{"lat":36.80,"lng":10.18},{"lat":36.81,"lng":10.19},{"lat":36.80,"lng":10.20}]`
	p, err := svc.Create(context.Background(), domain.ParcelRecord{
		OwnerID: ptr(int64(3)),
		Name:    ptr("North field"),
		Polygon: &poly,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != 11 || stored == nil {
		t.Fatalf("expected stored parcel with id 11, got %+v", p)
	}
	if p.Location == nil || p.Location.Longitude < 10.189 || p.Location.Longitude > 10.191 {
		t.Errorf("expected centroid location, got %+v", p.Location)
	}
	if p.SurfaceArea == nil || *p.SurfaceArea <= 0 {
		t.Error("expected derived surface")
	}
	if len(p.Boundary) != 3 {
		t.Errorf("expected 3 boundary points, got %d", len(p.Boundary))
	}
}

func TestParcelService_CreateValidation(t *testing.T) {
	svc := usecases.NewParcelService(&mockParcelRepo{}, nil)

	if _, err := svc.Create(context.Background(), domain.ParcelRecord{Name: ptr("x")}); !domain.IsValidation(err) {
		t.Errorf("missing owner: expected validation error, got %v", err)
	}
	short := `[[1,2],[3,4]]`
	if _, err := svc.Create(context.Background(), domain.ParcelRecord{OwnerID: ptr(int64(1)), Polygon: &short}); !domain.IsValidation(err) {
		t.Errorf("short polygon: expected validation error, got %v", err)
	}
}

func TestParcelService_CreatePersistenceError(t *testing.T) {
	repo := &mockParcelRepo{createFn: func(ctx context.Context, p *domain.Parcel) error {
		return errors.New("connection reset")
	}}
	svc := usecases.NewParcelService(repo, nil)

	_, err := svc.Create(context.Background(), domain.ParcelRecord{OwnerID: ptr(int64(1))})
	var pe *domain.PersistenceError
	if !errors.As(err, &pe) || pe.Op != "create" {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestParcelService_Update(t *testing.T) {
	var got domain.ParcelPatch
	repo := &mockParcelRepo{updateFn: func(ctx context.Context, id int64, patch domain.ParcelPatch) (*domain.Parcel, error) {
		got = patch
		return &domain.Parcel{ID: id, Name: patch.Name}, nil
	}}
	svc := usecases.NewParcelService(repo, nil)

	p, err := svc.Update(context.Background(), domain.ParcelRecord{ID: 4, Name: ptr("renamed")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != 4 || *got.Name != "renamed" {
		t.Errorf("unexpected result %+v", p)
	}

	if _, err := svc.Update(context.Background(), domain.ParcelRecord{ID: 4}); !domain.IsValidation(err) {
		t.Errorf("empty patch: expected validation error, got %v", err)
	}
	if _, err := svc.Update(context.Background(), domain.ParcelRecord{Name: ptr("x")}); !domain.IsValidation(err) {
		t.Errorf("missing id: expected validation error, got %v", err)
	}
}

func TestParcelService_UpdateNotFound(t *testing.T) {
	svc := usecases.NewParcelService(&mockParcelRepo{}, nil)
	_, err := svc.Update(context.Background(), domain.ParcelRecord{ID: 99, Name: ptr("x")})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParcelService_FillAltitude(t *testing.T) {
	loc := domain.GeoPoint{Latitude: 36.8, Longitude: 10.18}
	updates := 0
	repo := &mockParcelRepo{
		getByIDFn: func(ctx context.Context, id int64) (*domain.Parcel, error) {
			return &domain.Parcel{ID: id, Location: &loc}, nil
		},
		updateFn: func(ctx context.Context, id int64, patch domain.ParcelPatch) (*domain.Parcel, error) {
			updates++
			return &domain.Parcel{ID: id, Location: &loc, Altitude: patch.Altitude}, nil
		},
	}
	svc := usecases.NewParcelService(repo, fixedAltitude{v: ptr(12.5)})

	p, err := svc.FillAltitude(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Altitude == nil || *p.Altitude != 12.5 || updates != 1 {
		t.Errorf("expected stored altitude 12.5, got %v after %d updates", p.Altitude, updates)
	}

	unknown := usecases.NewParcelService(repo, fixedAltitude{})
	p, err = unknown.FillAltitude(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Altitude != nil || updates != 1 {
		t.Error("unknown altitude must leave the parcel untouched")
	}
}

func TestParcelService_FillAltitudeNeedsLocation(t *testing.T) {
	repo := &mockParcelRepo{getByIDFn: func(ctx context.Context, id int64) (*domain.Parcel, error) {
		return &domain.Parcel{ID: id}, nil
	}}
	svc := usecases.NewParcelService(repo, fixedAltitude{v: ptr(1.0)})
	if _, err := svc.FillAltitude(context.Background(), 1); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParcelService_BoundsAndGeoJSON(t *testing.T) {
	repo := &mockParcelRepo{listByOwnerFn: func(ctx context.Context, ownerID int64) ([]domain.Parcel, error) {
		return []domain.Parcel{
			{ID: 1, Boundary: domain.Ring{ptA, ptB, ptC}},
			{ID: 2, Location: &domain.GeoPoint{Latitude: 36.70, Longitude: 10.30}},
			{ID: 3},
		}, nil
	}}
	svc := usecases.NewParcelService(repo, nil)

	b, err := svc.Bounds(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b == nil || b.MinLat != 36.70 || b.MaxLat != 36.81 || b.MinLon != 10.18 || b.MaxLon != 10.30 {
		t.Errorf("unexpected bounds %+v", b)
	}

	fc, err := svc.GeoJSON(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(fc.Features))
	}
	if fc.Features[0].Geometry.GeoJSONType() != "Polygon" || fc.Features[1].Geometry.GeoJSONType() != "Point" {
		t.Error("unexpected geometry types")
	}
}

func TestParcelService_BoundsEmpty(t *testing.T) {
	svc := usecases.NewParcelService(&mockParcelRepo{}, nil)
	b, err := svc.Bounds(context.Background(), 1)
	if err != nil || b != nil {
		t.Fatalf("expected no bounds, got %+v, %v", b, err)
	}
}

func TestParcelService_BoundsSinglePointIsPadded(t *testing.T) {
	repo := &mockParcelRepo{listByOwnerFn: func(ctx context.Context, ownerID int64) ([]domain.Parcel, error) {
		return []domain.Parcel{{ID: 2, Location: &domain.GeoPoint{Latitude: 36.70, Longitude: 10.30}}}, nil
	}}
	svc := usecases.NewParcelService(repo, nil)

	b, err := svc.Bounds(context.Background(), 1)
	if err != nil || b == nil {
		t.Fatalf("expected bounds, got %+v, %v", b, err)
	}
	if !(b.MinLat < 36.70 && b.MaxLat > 36.70 && b.MinLon < 10.30 && b.MaxLon > 10.30) {
		t.Errorf("single point not padded: %+v", b)
	}
}

func TestParcelService_GatewayRoundTrip(t *testing.T) {
	svc := usecases.NewParcelService(&mockParcelRepo{}, nil)
	lat, lng := 36.8, 10.18
	out, err := svc.CreateParcel(context.Background(), domain.ParcelRecord{
		OwnerID: ptr(int64(1)), Name: ptr("p"), Latitude: &lat, Longitude: &lng,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ID != 1 || out.Latitude == nil || *out.Latitude != lat {
		t.Errorf("unexpected record %+v", out)
	}

	if _, err := svc.UpdateParcel(context.Background(), domain.ParcelRecord{ID: 5, Name: ptr("x")}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected wrapped ErrNotFound, got %v", err)
	}
}
