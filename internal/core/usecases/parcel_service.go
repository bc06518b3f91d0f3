package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/climatrack/climatrack/internal/core/domain"
	"github.com/climatrack/climatrack/internal/core/ports"
	"github.com/climatrack/climatrack/internal/pkg/coords"
	"github.com/climatrack/climatrack/internal/pkg/geospatial"
)

// ParcelService handles parcel business logic. It also serves as the
// in-process ParcelGateway for drafts.
type ParcelService struct {
	parcels  ports.ParcelRepository
	altitude AltitudeLookup
}

// NewParcelService creates a new ParcelService. altitude may be nil.
func NewParcelService(parcels ports.ParcelRepository, altitude AltitudeLookup) *ParcelService {
	return &ParcelService{parcels: parcels, altitude: altitude}
}

// ListByOwner returns the parcels of one farmer.
func (s *ParcelService) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Parcel, error) {
	if ownerID <= 0 {
		return nil, domain.NewValidationError("owner", "must be a positive id")
	}
	return s.parcels.ListByOwner(ctx, ownerID)
}

// Get returns a single parcel.
func (s *ParcelService) Get(ctx context.Context, id int64) (*domain.Parcel, error) {
	return s.parcels.GetByID(ctx, id)
}

// Create stores a new parcel. The location and surface are derived from
// the boundary when they are not given.
func (s *ParcelService) Create(ctx context.Context, rec domain.ParcelRecord) (*domain.Parcel, error) {
	if rec.OwnerID == nil || *rec.OwnerID <= 0 {
		return nil, domain.NewValidationError("owner_id", "required")
	}

	p := coords.ToParcel(rec)
	p.ID = 0
	if rec.Polygon != nil && !p.Boundary.Closed() {
		return nil, domain.NewValidationError("polygon", "needs at least 3 valid points")
	}
	if p.SurfaceArea == nil {
		if a, ok := geospatial.Area(p.Boundary); ok {
			p.SurfaceArea = &a
		}
	}

	if err := s.parcels.Create(ctx, &p); err != nil {
		return nil, &domain.PersistenceError{Op: "create", Err: err}
	}
	return &p, nil
}

// Update applies a partial update. A new polygon re-derives the surface and,
// if no coordinates are given, the location.
func (s *ParcelService) Update(ctx context.Context, rec domain.ParcelRecord) (*domain.Parcel, error) {
	if rec.ID <= 0 {
		return nil, domain.NewValidationError("id", "required")
	}

	patch := domain.ParcelPatch{
		Name:         rec.Name,
		Localisation: rec.Localisation,
		SurfaceArea:  rec.Surface,
		Altitude:     rec.Altitude,
	}
	if rec.Latitude != nil && rec.Longitude != nil {
		loc := domain.GeoPoint{Latitude: *rec.Latitude, Longitude: *rec.Longitude}
		if !loc.Valid() {
			return nil, domain.NewValidationError("latitude", "coordinates out of range")
		}
		patch.Location = &loc
	}
	if rec.Polygon != nil {
		ring, ok := coords.ParsePolygon(*rec.Polygon)
		if !ok || !ring.Closed() {
			return nil, domain.NewValidationError("polygon", "needs at least 3 valid points")
		}
		patch.Boundary = ring
		if patch.SurfaceArea == nil {
			if a, ok := geospatial.Area(ring); ok {
				patch.SurfaceArea = &a
			}
		}
		if patch.Location == nil {
			if c, ok := geospatial.Centroid(ring); ok {
				patch.Location = &c
			}
		}
	}
	if patch.Empty() {
		return nil, domain.NewValidationError("", "nothing to update")
	}

	p, err := s.parcels.Update(ctx, rec.ID, patch)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, &domain.PersistenceError{Op: "update", Err: err}
	}
	return p, nil
}

// Delete removes a parcel.
func (s *ParcelService) Delete(ctx context.Context, id int64) error {
	if err := s.parcels.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return &domain.PersistenceError{Op: "delete", Err: err}
	}
	return nil
}

// FillAltitude resolves and stores the altitude of a parcel that has
// coordinates but no altitude yet. A parcel that already has one is
// returned unchanged, as is one whose altitude cannot be resolved.
func (s *ParcelService) FillAltitude(ctx context.Context, id int64) (*domain.Parcel, error) {
	p, err := s.parcels.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Altitude != nil {
		return p, nil
	}
	if p.Location == nil {
		return nil, domain.NewValidationError("location", "parcel has no coordinates")
	}
	if s.altitude == nil {
		return p, nil
	}
	alt := s.altitude.Resolve(ctx, *p.Location)
	if alt == nil {
		return p, nil
	}
	return s.parcels.Update(ctx, id, domain.ParcelPatch{Altitude: alt})
}

// minFitRadius pads a single-point extent so a map view has something to fit.
const minFitRadius = 250.0

// Bounds returns the box covering every located parcel of an owner, for
// fitting a map view.
func (s *ParcelService) Bounds(ctx context.Context, ownerID int64) (*domain.Bounds, error) {
	parcels, err := s.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	var pts []domain.GeoPoint
	for _, p := range parcels {
		if p.Boundary.Closed() {
			pts = append(pts, p.Boundary...)
		} else if p.Location != nil {
			pts = append(pts, *p.Location)
		}
	}
	b, ok := geospatial.Extent(pts)
	if !ok {
		return nil, nil
	}
	if b.MinLat == b.MaxLat && b.MinLon == b.MaxLon {
		b = geospatial.BoundingBox(b.MinLat, b.MinLon, minFitRadius)
	}
	return &b, nil
}

// GeoJSON renders an owner's parcels as a feature collection. Parcels with
// neither a boundary nor a location are skipped.
func (s *ParcelService) GeoJSON(ctx context.Context, ownerID int64) (*geojson.FeatureCollection, error) {
	parcels, err := s.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	fc := geojson.NewFeatureCollection()
	for _, p := range parcels {
		if f, ok := geospatial.Feature(p); ok {
			fc.Append(f)
		}
	}
	return fc, nil
}

// CreateParcel implements ports.ParcelGateway.
func (s *ParcelService) CreateParcel(ctx context.Context, rec domain.ParcelRecord) (*domain.ParcelRecord, error) {
	p, err := s.Create(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("create parcel: %w", err)
	}
	out := coords.FromParcel(*p)
	return &out, nil
}

// UpdateParcel implements ports.ParcelGateway.
func (s *ParcelService) UpdateParcel(ctx context.Context, rec domain.ParcelRecord) (*domain.ParcelRecord, error) {
	p, err := s.Update(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("update parcel: %w", err)
	}
	out := coords.FromParcel(*p)
	return &out, nil
}

// DeleteParcel removes a parcel, treating a missing one as already gone.
func (s *ParcelService) DeleteParcel(ctx context.Context, id int64) error {
	if err := s.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}
