package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/climatrack/climatrack/internal/adapters/elevation"
	"github.com/climatrack/climatrack/internal/adapters/geolocation"
	"github.com/climatrack/climatrack/internal/adapters/http"
	"github.com/climatrack/climatrack/internal/adapters/memory"
	natsadapter "github.com/climatrack/climatrack/internal/adapters/nats"
	"github.com/climatrack/climatrack/internal/adapters/postgres"
	"github.com/climatrack/climatrack/internal/adapters/valkey"
	"github.com/climatrack/climatrack/internal/adapters/weather"
	"github.com/climatrack/climatrack/internal/core/ports"
	"github.com/climatrack/climatrack/internal/core/usecases"
	"github.com/climatrack/climatrack/internal/pkg/auth"
	"github.com/climatrack/climatrack/internal/pkg/config"
	"github.com/climatrack/climatrack/internal/pkg/logging"
	"github.com/climatrack/climatrack/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("climatrack-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	// Cache. A nil *Cache must not end up inside a non-nil interface.
	var cacheSvc ports.CacheService
	var unsent ports.UnsentDraftStore = memory.NewUnsentStore()
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, unsent drafts kept in memory", "error", err)
		cache = nil
	} else {
		defer cache.Close()
		cacheSvc = cache
		unsent = valkey.NewUnsentStore(cache, valkey.DefaultUnsentKey)
	}

	// NATS
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Providers
	providerClient := &nethttp.Client{Timeout: cfg.Elevation.Timeout()}
	var providers []ports.ElevationProvider
	if cfg.Elevation.GoogleAPIKey != "" {
		g, err := elevation.NewGoogle(cfg.Elevation.GoogleAPIKey, cfg.Elevation.GoogleBaseURL, providerClient)
		if err != nil {
			slog.Warn("google elevation disabled", "error", err)
		} else {
			providers = append(providers, g)
		}
	}
	providers = append(providers, elevation.NewOpenElevation(cfg.Elevation.OpenElevationURL, providerClient))
	altitude := usecases.NewAltitudeResolver(cacheSvc, cfg.Elevation.CacheTTLSeconds, providers...)
	slog.Info("altitude providers", "chain", altitude.Providers())

	var weatherProvider ports.WeatherProvider
	if cfg.Weather.APIKey != "" {
		weatherProvider = weather.NewOpenWeather(cfg.Weather.BaseURL, cfg.Weather.APIKey, nil)
	}

	var geolocator ports.Geolocator
	if cfg.Geolocation.URL != "" {
		geolocator = geolocation.NewHTTPLocator(cfg.Geolocation.URL, &nethttp.Client{Timeout: cfg.Geolocation.Timeout()})
	}

	// Repos
	parcelRepo := postgres.NewParcelRepo(db)
	farmerRepo := postgres.NewFarmerRepo(db)
	meteoRepo := postgres.NewMeteoRepo(db)

	// Use cases
	parcelSvc := usecases.NewParcelService(parcelRepo, altitude)
	draftSvc := usecases.NewDraftService(usecases.DraftDeps{
		Gateway:         parcelSvc,
		Altitude:        altitude,
		Geolocator:      geolocator,
		Unsent:          unsent,
		Publisher:       publisher,
		AltitudeTimeout: cfg.Drafts.AltitudeTimeout(),
	}, cfg.Drafts.SessionTTL())
	go draftSvc.RunSweeper(ctx, time.Minute)

	deps := &http.Dependencies{
		Parcels:  parcelSvc,
		Drafts:   draftSvc,
		Farmers:  usecases.NewFarmerService(farmerRepo, parcelRepo),
		Weather:  usecases.NewWeatherService(parcelRepo, weatherProvider, cacheSvc, cfg.Weather.CacheTTLSeconds),
		Meteo:    usecases.NewMeteoService(meteoRepo, parcelRepo),
		Altitude: altitude,
		Tokens:   auth.NewTokens(cfg.Auth.JWTSecret),
		NATS:     natsConn,
		DB:       db,
		Cache:    cache,
	}
	if !deps.Tokens.Enabled() {
		slog.Warn("auth.jwt_secret not set, every caller is anonymous")
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Climatrack API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, http://localhost:8100",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	if natsConn != nil {
		natsConn.Close()
	}

	slog.Info("server stopped")
}
