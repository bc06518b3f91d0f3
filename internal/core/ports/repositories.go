package ports

import (
	"context"
	"time"

	"github.com/climatrack/climatrack/internal/core/domain"
)

// ParcelRepository persists parcels.
type ParcelRepository interface {
	Create(ctx context.Context, p *domain.Parcel) error
	GetByID(ctx context.Context, id int64) (*domain.Parcel, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Parcel, error)
	Update(ctx context.Context, id int64, patch domain.ParcelPatch) (*domain.Parcel, error)
	Delete(ctx context.Context, id int64) error
}

// FarmerRepository reads and removes farmer accounts.
type FarmerRepository interface {
	List(ctx context.Context) ([]domain.Farmer, error)
	GetByID(ctx context.Context, id int64) (*domain.Farmer, error)
	Delete(ctx context.Context, id int64) error
}

// MeteoRepository persists recorded weather observations.
type MeteoRepository interface {
	Insert(ctx context.Context, r *domain.MeteoReading) error
	ListByParcel(ctx context.Context, parcelID int64, from, to time.Time) ([]domain.MeteoReading, error)
}

// UnsentDraftStore keeps parcels that could not be sent to the backend.
// Entries are keyed by a client generated temporary id and survive restarts.
type UnsentDraftStore interface {
	Append(ctx context.Context, d domain.UnsentDraft) error
	List(ctx context.Context) ([]domain.UnsentDraft, error)
	Remove(ctx context.Context, tempID string) error
}
