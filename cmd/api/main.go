package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/trainschedule/internal/adapters/http"
	"github.com/samirrijal/trainschedule/internal/adapters/memory"
	natsadapter "github.com/samirrijal/trainschedule/internal/adapters/nats"
	"github.com/samirrijal/trainschedule/internal/adapters/netcheck"
	"github.com/samirrijal/trainschedule/internal/adapters/postgres"
	"github.com/samirrijal/trainschedule/internal/adapters/scraper"
	"github.com/samirrijal/trainschedule/internal/adapters/tdx"
	"github.com/samirrijal/trainschedule/internal/adapters/valkey"
	"github.com/samirrijal/trainschedule/internal/core/ports"
	"github.com/samirrijal/trainschedule/internal/core/usecases"
	"github.com/samirrijal/trainschedule/internal/pkg/config"
	"github.com/samirrijal/trainschedule/internal/pkg/logging"
	"github.com/samirrijal/trainschedule/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("trainschedule-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Storage: postgres when configured, process memory otherwise
	var (
		db       *postgres.DB
		stations ports.StationRepository = memory.NewStations()
		lines    ports.LineRepository    = memory.NewLines()
		paths    ports.PathRepository    = memory.NewPaths()
		prefs    ports.PreferenceStore   = memory.NewPreferences()
	)
	if cfg.Database.Enabled {
		db, err = postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		stations = postgres.NewStationRepo(db)
		lines = postgres.NewLineRepo(db)
		paths = postgres.NewPathRepo(db)
		prefs = postgres.NewPreferenceRepo(db)

		go poolMetrics(ctx, db)
	}

	// Cache
	var (
		vcache *valkey.Cache
		cache  ports.CacheService = memory.NewCache(10 * time.Minute)
	)
	if cfg.Valkey.Enabled {
		vcache, err = valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix+":")
		if err != nil {
			slog.Warn("valkey unavailable, using in-process cache", "error", err)
		} else {
			defer vcache.Close()
			cache = vcache
			if !cfg.Database.Enabled {
				prefs = valkey.NewPreferences(vcache, "preferences")
			}
		}
	}

	// NATS
	var (
		publisher  ports.TrackingPublisher
		subscriber *natsadapter.Subscriber
		natsConn   = natsConnection(cfg)
	)
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(ctx, cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
		}
		subscriber, err = natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer subscriber.Close()
		}
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	// Remote sources
	api := tdx.New(tdx.Config{
		BaseURL:      cfg.TDX.BaseURL,
		ClientID:     cfg.TDX.ClientID,
		ClientSecret: cfg.TDX.ClientSecret,
		Timeout:      cfg.TDX.Timeout,
	})
	fetcher := scraper.New(cfg.RailWeb.Timeout)
	conn := netcheck.New(cfg.RailWeb.ProbeAddr, 3*time.Second)
	clock := usecases.SystemClock{}

	// Use cases
	tokens := usecases.NewTokenService(api, prefs, clock)
	catalog := usecases.NewCatalogService(api, tokens, stations, lines, cache, conn)
	timetables := usecases.NewTimetableService(api, tokens, catalog, conn)
	transfers := usecases.NewTransferService(fetcher, catalog, conn, cfg.RailWeb.BaseURL)
	schedules := usecases.NewScheduleService(api, tokens, catalog, conn)
	tracker := usecases.NewTrackerService(api, tokens, clock, publisher, usecases.TrackerConfig{
		MinInterval: cfg.Tracker.MinInterval,
		MaxInterval: cfg.Tracker.MaxInterval,
		Freshness:   cfg.Tracker.Freshness,
	})
	preferences := usecases.NewPreferenceService(prefs, paths, clock)

	deps := &http.Dependencies{
		Catalog:     catalog,
		Trips:       usecases.NewTripService(timetables, transfers),
		Timetables:  timetables,
		Schedules:   schedules,
		Tracker:     tracker,
		Preferences: preferences,
		Clock:       clock,
		NATS:        natsConn,
		DB:          db,
		Cache:       vcache,
	}
	if subscriber != nil {
		deps.Tracking = subscriber
		// Another instance refreshed the shared catalog; drop local cache entries.
		err := subscriber.SubscribeCatalogRefreshed(ctx, func(ctx context.Context) {
			catalog.InvalidateCache(ctx)
		})
		if err != nil {
			slog.Warn("catalog refresh subscription failed", "error", err)
		}
	}

	// Seed an empty catalog so trip searches can resolve stations.
	go func() {
		if all, err := catalog.AllStations(ctx); err == nil && len(all) == 0 {
			r := catalog.Refresh(ctx)
			slog.Info("initial catalog load", "status", r.Status().String())
		}
	}()

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "Train Schedule API",
	})

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
	cancel()

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
