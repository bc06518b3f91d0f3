package usecases

import (
	"context"
	"time"

	"github.com/climatrack/climatrack/internal/core/domain"
	"github.com/climatrack/climatrack/internal/core/ports"
)

// ChillThreshold is the temperature in °C under which an hour counts as a
// chill hour.
const ChillThreshold = 7.0

// MeteoService records and summarizes weather observations per parcel.
type MeteoService struct {
	readings ports.MeteoRepository
	parcels  ports.ParcelRepository
	now      func() time.Time
}

// NewMeteoService creates a new MeteoService.
func NewMeteoService(readings ports.MeteoRepository, parcels ports.ParcelRepository) *MeteoService {
	return &MeteoService{readings: readings, parcels: parcels, now: time.Now}
}

// Record stores a reading for an existing parcel. A zero TakenAt means now.
func (s *MeteoService) Record(ctx context.Context, r *domain.MeteoReading) error {
	if r.ParcelID <= 0 {
		return domain.NewValidationError("parcel_id", "required")
	}
	if r.Temperature == nil && r.Humidity == nil && r.Rain == nil && r.Wind == nil {
		return domain.NewValidationError("", "reading has no values")
	}
	if _, err := s.parcels.GetByID(ctx, r.ParcelID); err != nil {
		return err
	}
	if r.TakenAt.IsZero() {
		r.TakenAt = s.now()
	}
	return s.readings.Insert(ctx, r)
}

// Summary lists the readings of a parcel, optionally restricted to one day
// (YYYY-MM-DD, UTC), and counts those below ChillThreshold.
func (s *MeteoService) Summary(ctx context.Context, parcelID int64, day string) (*domain.MeteoSummary, error) {
	var from, to time.Time
	if day != "" {
		d, err := time.Parse("2006-01-02", day)
		if err != nil {
			return nil, domain.NewValidationError("day", "expected YYYY-MM-DD")
		}
		from, to = d, d.Add(24*time.Hour)
	}

	readings, err := s.readings.ListByParcel(ctx, parcelID, from, to)
	if err != nil {
		return nil, err
	}

	sum := &domain.MeteoSummary{ParcelID: parcelID, Day: day, Readings: readings}
	if sum.Readings == nil {
		sum.Readings = []domain.MeteoReading{}
	}
	for _, r := range readings {
		if r.Temperature != nil && *r.Temperature < ChillThreshold {
			sum.HoursBelow7++
		}
	}
	return sum, nil
}
