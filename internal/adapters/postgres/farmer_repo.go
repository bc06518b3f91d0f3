package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/climatrack/climatrack/internal/core/domain"
)

// FarmerRole is the users.role value of farmer accounts.
const FarmerRole = "agriculteur"

// FarmerRepo implements ports.FarmerRepository with pgx.
type FarmerRepo struct {
	db *DB
}

// NewFarmerRepo creates a new FarmerRepo.
func NewFarmerRepo(db *DB) *FarmerRepo {
	return &FarmerRepo{db: db}
}

// List returns all farmers ordered by name.
func (r *FarmerRepo) List(ctx context.Context) ([]domain.Farmer, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, nom, prenom, email, COALESCE(telephone, ''), COALESCE(adresse, ''), created_at
		FROM users WHERE role = $1
		ORDER BY nom, prenom
	`, FarmerRole)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var farmers []domain.Farmer
	for rows.Next() {
		var f domain.Farmer
		if err := rows.Scan(&f.ID, &f.LastName, &f.FirstName, &f.Email, &f.Phone, &f.Address, &f.CreatedAt); err != nil {
			return nil, err
		}
		farmers = append(farmers, f)
	}
	return farmers, rows.Err()
}

// GetByID returns one farmer.
func (r *FarmerRepo) GetByID(ctx context.Context, id int64) (*domain.Farmer, error) {
	var f domain.Farmer
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, nom, prenom, email, COALESCE(telephone, ''), COALESCE(adresse, ''), created_at
		FROM users WHERE id = $1 AND role = $2
	`, id, FarmerRole).Scan(&f.ID, &f.LastName, &f.FirstName, &f.Email, &f.Phone, &f.Address, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Delete removes a farmer. Their parcels go with them.
func (r *FarmerRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1 AND role = $2`, id, FarmerRole)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
