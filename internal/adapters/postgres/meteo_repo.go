package postgres

import (
	"context"
	"time"

	"github.com/climatrack/climatrack/internal/core/domain"
)

// MeteoRepo implements ports.MeteoRepository with pgx.
type MeteoRepo struct {
	db *DB
}

// NewMeteoRepo creates a new MeteoRepo.
func NewMeteoRepo(db *DB) *MeteoRepo {
	return &MeteoRepo{db: db}
}

// Insert stores a reading and sets its id.
func (r *MeteoRepo) Insert(ctx context.Context, m *domain.MeteoReading) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO meteo_data (parcelle_id, temperature, humidite, pluie, vent, date_releve)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, m.ParcelID, m.Temperature, m.Humidity, m.Rain, m.Wind, m.TakenAt).Scan(&m.ID)
}

// ListByParcel returns readings in [from, to). Zero bounds are open.
func (r *MeteoRepo) ListByParcel(ctx context.Context, parcelID int64, from, to time.Time) ([]domain.MeteoReading, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, parcelle_id, temperature, humidite, pluie, vent, date_releve
		FROM meteo_data
		WHERE parcelle_id = $1
		  AND ($2::timestamptz IS NULL OR date_releve >= $2)
		  AND ($3::timestamptz IS NULL OR date_releve < $3)
		ORDER BY date_releve
	`, parcelID, optionalTime(from), optionalTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []domain.MeteoReading
	for rows.Next() {
		var m domain.MeteoReading
		if err := rows.Scan(&m.ID, &m.ParcelID, &m.Temperature, &m.Humidity, &m.Rain, &m.Wind, &m.TakenAt); err != nil {
			return nil, err
		}
		readings = append(readings, m)
	}
	return readings, rows.Err()
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
