package usecases

import (
	"context"

	"github.com/climatrack/climatrack/internal/core/domain"
	"github.com/climatrack/climatrack/internal/core/ports"
)

// FarmerService handles farmer administration.
type FarmerService struct {
	farmers ports.FarmerRepository
	parcels ports.ParcelRepository
}

// NewFarmerService creates a new FarmerService.
func NewFarmerService(farmers ports.FarmerRepository, parcels ports.ParcelRepository) *FarmerService {
	return &FarmerService{farmers: farmers, parcels: parcels}
}

// List returns every farmer account.
func (s *FarmerService) List(ctx context.Context) ([]domain.Farmer, error) {
	return s.farmers.List(ctx)
}

// Get returns one farmer.
func (s *FarmerService) Get(ctx context.Context, id int64) (*domain.Farmer, error) {
	return s.farmers.GetByID(ctx, id)
}

// Delete removes a farmer account.
func (s *FarmerService) Delete(ctx context.Context, id int64) error {
	return s.farmers.Delete(ctx, id)
}

// Parcels lists the parcels of an existing farmer.
func (s *FarmerService) Parcels(ctx context.Context, id int64) ([]domain.Parcel, error) {
	if _, err := s.farmers.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.parcels.ListByOwner(ctx, id)
}
