//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/climatrack/climatrack/internal/adapters/postgres"
	"github.com/climatrack/climatrack/internal/core/domain"
)

func migrationSQL(t *testing.T) string {
	t.Helper()
	_, file, _, _ := runtime.Caller(0)
	data, err := os.ReadFile(filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations", "001_init.sql"))
	require.NoError(t, err)
	return string(data)
}

func startDB(t *testing.T) *postgres.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("climatrack"),
		tcpostgres.WithUsername("climatrack"),
		tcpostgres.WithPassword("climatrack"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := postgres.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.Pool.Exec(ctx, migrationSQL(t))
	require.NoError(t, err)
	return db
}

func seedFarmer(t *testing.T, db *postgres.DB, email string) int64 {
	t.Helper()
	var id int64
	err := db.Pool.QueryRow(context.Background(), `
		INSERT INTO users (nom, prenom, email, telephone) VALUES ('Trabelsi', 'Amel', $1, '+21620000000')
		RETURNING id
	`, email).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestRepos_Integration(t *testing.T) {
	db := startDB(t)
	ctx := context.Background()

	farmers := postgres.NewFarmerRepo(db)
	parcels := postgres.NewParcelRepo(db)
	meteo := postgres.NewMeteoRepo(db)

	ownerID := seedFarmer(t, db, "amel@example.com")

	t.Run("farmer lookup", func(t *testing.T) {
		f, err := farmers.GetByID(ctx, ownerID)
		require.NoError(t, err)
		assert.Equal(t, "Trabelsi", f.LastName)
		assert.Equal(t, "+21620000000", f.Phone)

		_, err = farmers.GetByID(ctx, ownerID+100)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	name := "Olive grove"
	area := 1500.0
	p := &domain.Parcel{
		OwnerID:     ownerID,
		Name:        &name,
		SurfaceArea: &area,
		Boundary: domain.Ring{
			{Latitude: 36.80, Longitude: 10.18},
			{Latitude: 36.81, Longitude: 10.19},
			{Latitude: 36.80, Longitude: 10.20},
		},
		Location: &domain.GeoPoint{Latitude: 36.8033, Longitude: 10.19},
	}

	t.Run("create and read back", func(t *testing.T) {
		require.NoError(t, parcels.Create(ctx, p))
		require.NotZero(t, p.ID)

		got, err := parcels.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, name, *got.Name)
		assert.Len(t, got.Boundary, 3)
		require.NotNil(t, got.Location)
		assert.InDelta(t, 36.8033, got.Location.Latitude, 1e-9)
		assert.Nil(t, got.Altitude)
	})

	t.Run("partial update", func(t *testing.T) {
		alt := 42.5
		got, err := parcels.Update(ctx, p.ID, domain.ParcelPatch{Altitude: &alt})
		require.NoError(t, err)
		require.NotNil(t, got.Altitude)
		assert.Equal(t, 42.5, *got.Altitude)
		assert.Equal(t, name, *got.Name)

		_, err = parcels.Update(ctx, p.ID+100, domain.ParcelPatch{Altitude: &alt})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("list by owner", func(t *testing.T) {
		list, err := parcels.ListByOwner(ctx, ownerID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("meteo readings by day", func(t *testing.T) {
		day := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
		for i, temp := range []float64{3, 6, 9} {
			tmp := temp
			r := &domain.MeteoReading{ParcelID: p.ID, Temperature: &tmp, TakenAt: day.Add(time.Duration(i) * time.Hour)}
			require.NoError(t, meteo.Insert(ctx, r))
			require.NotZero(t, r.ID)
		}
		tmp := 1.0
		require.NoError(t, meteo.Insert(ctx, &domain.MeteoReading{ParcelID: p.ID, Temperature: &tmp, TakenAt: day.Add(-time.Hour)}))

		readings, err := meteo.ListByParcel(ctx, p.ID, day, day.Add(24*time.Hour))
		require.NoError(t, err)
		assert.Len(t, readings, 3)

		all, err := meteo.ListByParcel(ctx, p.ID, time.Time{}, time.Time{})
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})

	t.Run("delete cascades", func(t *testing.T) {
		require.NoError(t, farmers.Delete(ctx, ownerID))
		_, err := parcels.GetByID(ctx, p.ID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.True(t, errors.Is(parcels.Delete(ctx, p.ID), domain.ErrNotFound))
	})
}
