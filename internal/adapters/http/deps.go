package http

import (
	"github.com/nats-io/nats.go"

	"github.com/climatrack/climatrack/internal/adapters/postgres"
	"github.com/climatrack/climatrack/internal/adapters/valkey"
	"github.com/climatrack/climatrack/internal/core/usecases"
	"github.com/climatrack/climatrack/internal/pkg/auth"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Parcels  *usecases.ParcelService
	Drafts   *usecases.DraftService
	Farmers  *usecases.FarmerService
	Weather  *usecases.WeatherService
	Meteo    *usecases.MeteoService
	Altitude usecases.AltitudeLookup
	Tokens   *auth.Tokens
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache
}
