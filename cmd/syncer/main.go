package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"time"

	"github.com/robfig/cron/v3"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/climatrack/climatrack/internal/adapters/elevation"
	natsadapter "github.com/climatrack/climatrack/internal/adapters/nats"
	"github.com/climatrack/climatrack/internal/adapters/parcelapi"
	"github.com/climatrack/climatrack/internal/adapters/postgres"
	"github.com/climatrack/climatrack/internal/adapters/valkey"
	"github.com/climatrack/climatrack/internal/core/domain"
	"github.com/climatrack/climatrack/internal/core/ports"
	"github.com/climatrack/climatrack/internal/core/usecases"
	"github.com/climatrack/climatrack/internal/pkg/auth"
	"github.com/climatrack/climatrack/internal/pkg/config"
	"github.com/climatrack/climatrack/internal/pkg/logging"
	"github.com/climatrack/climatrack/internal/workflows"
)

func main() {
	cfg, err := config.Load("climatrack-syncer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Unsent drafts must live somewhere the API can also reach.
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer cache.Close()
	unsent := valkey.NewUnsentStore(cache, valkey.DefaultUnsentKey)

	store, closeStore := parcelStore(ctx, cfg, cache)
	defer closeStore()

	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, sync notifications disabled", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.DraftSyncWorkflow)
	w.RegisterActivity(&workflows.SyncActivities{
		Parcels:   store,
		Unsent:    unsent,
		Publisher: publisher,
		Tokens:    auth.NewTokens(cfg.Auth.JWTSecret),
		TokenTTL:  5 * time.Minute,
	})

	replayer := &workflows.Replayer{
		Unsent:    unsent,
		Starter:   c,
		TaskQueue: cfg.Temporal.TaskQueue,
	}

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.Sync.Schedule, func() {
		n, err := replayer.ReplayAll(ctx)
		if err != nil {
			slog.Error("replay unsent drafts", "error", err)
			return
		}
		slog.Info("unsent drafts replayed", "started", n)
	}); err != nil {
		log.Fatalf("sync.schedule %q: %v", cfg.Sync.Schedule, err)
	}
	sched.Start()
	defer sched.Stop()

	// A fresh local save with a known owner is worth retrying right away.
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, "climatrack-syncer")
	if err != nil {
		slog.Warn("nats subscriber unavailable, relying on schedule only", "error", err)
	} else {
		defer sub.Close()
		err = sub.SubscribeParcelCreated(ctx, func(ctx context.Context, ev *domain.ParcelCreated) error {
			if !ev.Local || ev.OwnerID == nil || ev.TempID == "" {
				return nil
			}
			_, err := replayer.ReplayByTempID(ctx, ev.TempID)
			return err
		})
		if err != nil {
			slog.Warn("subscribe parcels.created", "error", err)
		}
	}

	slog.Info("syncer worker started", "task_queue", cfg.Temporal.TaskQueue, "schedule", cfg.Sync.Schedule)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

// parcelStore picks the remote backend when one is configured, otherwise
// writes go straight to the database.
func parcelStore(ctx context.Context, cfg *config.Config, cache *valkey.Cache) (workflows.ParcelStore, func()) {
	if cfg.Sync.BackendURL != "" {
		slog.Info("syncing drafts to remote backend", "url", cfg.Sync.BackendURL)
		return parcelapi.New(cfg.Sync.BackendURL, "", nil), func() {}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	httpClient := &nethttp.Client{Timeout: cfg.Elevation.Timeout()}
	var providers []ports.ElevationProvider
	if cfg.Elevation.GoogleAPIKey != "" {
		if g, err := elevation.NewGoogle(cfg.Elevation.GoogleAPIKey, cfg.Elevation.GoogleBaseURL, httpClient); err == nil {
			providers = append(providers, g)
		}
	}
	providers = append(providers, elevation.NewOpenElevation(cfg.Elevation.OpenElevationURL, httpClient))
	altitude := usecases.NewAltitudeResolver(cache, cfg.Elevation.CacheTTLSeconds, providers...)
	return usecases.NewParcelService(postgres.NewParcelRepo(db), altitude), db.Close
}
