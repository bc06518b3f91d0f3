package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/climatrack/climatrack/internal/core/domain"
	"github.com/climatrack/climatrack/internal/pkg/coords"
)

const parcelColumns = `id, user_id, nom, localisation, surface, lat, lng, altitude, polygon, created_at`

// ParcelRepo implements ports.ParcelRepository with pgx.
type ParcelRepo struct {
	db *DB
}

// NewParcelRepo creates a new ParcelRepo.
func NewParcelRepo(db *DB) *ParcelRepo {
	return &ParcelRepo{db: db}
}

// Create inserts a parcel and fills in its id and creation time.
func (r *ParcelRepo) Create(ctx context.Context, p *domain.Parcel) error {
	rec := coords.FromParcel(*p)
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO parcelles (user_id, nom, localisation, surface, lat, lng, altitude, polygon)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, rec.OwnerID, rec.Name, rec.Localisation, rec.Surface,
		rec.Latitude, rec.Longitude, rec.Altitude, rec.Polygon,
	).Scan(&p.ID, &p.CreatedAt)
}

// GetByID returns a parcel by id.
func (r *ParcelRepo) GetByID(ctx context.Context, id int64) (*domain.Parcel, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+parcelColumns+` FROM parcelles WHERE id = $1`, id)
	p, err := scanParcel(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return p, err
}

// ListByOwner returns the parcels of one farmer, newest first.
func (r *ParcelRepo) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Parcel, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+parcelColumns+`
		FROM parcelles WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parcels []domain.Parcel
	for rows.Next() {
		p, err := scanParcel(rows)
		if err != nil {
			return nil, err
		}
		parcels = append(parcels, *p)
	}
	return parcels, rows.Err()
}

// Update applies the non-nil fields of patch and returns the stored row.
func (r *ParcelRepo) Update(ctx context.Context, id int64, patch domain.ParcelPatch) (*domain.Parcel, error) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Name != nil {
		set("nom", *patch.Name)
	}
	if patch.Localisation != nil {
		set("localisation", *patch.Localisation)
	}
	if patch.SurfaceArea != nil {
		set("surface", *patch.SurfaceArea)
	}
	if patch.Location != nil {
		set("lat", patch.Location.Latitude)
		set("lng", patch.Location.Longitude)
	}
	if patch.Altitude != nil {
		set("altitude", *patch.Altitude)
	}
	if patch.Boundary != nil {
		set("polygon", coords.EncodePolygon(patch.Boundary))
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	args = append(args, id)
	row := r.db.Pool.QueryRow(ctx, fmt.Sprintf(
		`UPDATE parcelles SET %s WHERE id = $%d RETURNING `+parcelColumns,
		strings.Join(sets, ", "), len(args),
	), args...)
	p, err := scanParcel(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return p, err
}

// Delete removes a parcel and its recorded readings.
func (r *ParcelRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM parcelles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanParcel(row pgx.Row) (*domain.Parcel, error) {
	var rec domain.ParcelRecord
	if err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.Name, &rec.Localisation, &rec.Surface,
		&rec.Latitude, &rec.Longitude, &rec.Altitude, &rec.Polygon, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	p := coords.ToParcel(rec)
	return &p, nil
}
