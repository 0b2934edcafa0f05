package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/trainschedule/internal/adapters/nats"
	"github.com/samirrijal/trainschedule/internal/adapters/netcheck"
	"github.com/samirrijal/trainschedule/internal/adapters/postgres"
	"github.com/samirrijal/trainschedule/internal/adapters/tdx"
	"github.com/samirrijal/trainschedule/internal/adapters/valkey"
	"github.com/samirrijal/trainschedule/internal/core/ports"
	"github.com/samirrijal/trainschedule/internal/core/usecases"
	"github.com/samirrijal/trainschedule/internal/pkg/config"
	"github.com/samirrijal/trainschedule/internal/pkg/logging"
	"github.com/samirrijal/trainschedule/internal/pkg/telemetry"
	"github.com/samirrijal/trainschedule/internal/workflows"
)

const (
	scheduleID = "catalog-sync"
	// A full catalog has a few hundred stations.
	minStations = 100
)

func main() {
	mode := "worker"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	cfg, err := config.Load("trainschedule-refresher")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
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

	switch mode {
	case "worker":
		runWorker(ctx, cfg, c)
	case "once":
		runOnce(ctx, cfg, c)
	default:
		log.Fatalf("usage: refresher <worker|once>, got %q", mode)
	}
}

// runWorker registers the sync workflow, makes sure it is scheduled and serves
// activities until interrupted.
func runWorker(ctx context.Context, cfg *config.Config, c client.Client) {
	if !cfg.Database.Enabled {
		log.Fatal("refresher needs database.enabled: a catalog kept in worker memory is never read")
	}
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var cache ports.CacheService
	if cfg.Valkey.Enabled {
		vc, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix+":")
		if err != nil {
			slog.Warn("valkey unavailable, shared cache not invalidated", "error", err)
		} else {
			defer vc.Close()
			cache = vc
		}
	}

	acts := &workflows.CatalogActivities{}
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(ctx, cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, refreshes not announced", "error", err)
		} else {
			defer pub.Close()
			acts.Notifier = pub
		}
	}

	api := tdx.New(tdx.Config{
		BaseURL:      cfg.TDX.BaseURL,
		ClientID:     cfg.TDX.ClientID,
		ClientSecret: cfg.TDX.ClientSecret,
		Timeout:      cfg.TDX.Timeout,
	})
	tokens := usecases.NewTokenService(api, postgres.NewPreferenceRepo(db), usecases.SystemClock{})
	acts.Catalog = usecases.NewCatalogService(
		api,
		tokens,
		postgres.NewStationRepo(db),
		postgres.NewLineRepo(db),
		cache,
		netcheck.New(cfg.RailWeb.ProbeAddr, 3*time.Second),
	)

	if err := ensureSchedule(ctx, cfg, c); err != nil {
		slog.Warn("catalog sync schedule not created", "error", err)
	}

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.CatalogSyncWorkflow)
	w.RegisterActivity(acts)

	slog.Info("refresher worker started", "queue", cfg.Temporal.TaskQueue, "every", cfg.Temporal.SyncEvery.String())
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

func ensureSchedule(ctx context.Context, cfg *config.Config, c client.Client) error {
	_, err := c.ScheduleClient().Create(ctx, client.ScheduleOptions{
		ID: scheduleID,
		Spec: client.ScheduleSpec{
			Intervals: []client.ScheduleIntervalSpec{{Every: cfg.Temporal.SyncEvery}},
		},
		Action: &client.ScheduleWorkflowAction{
			ID:        scheduleID + "-run",
			Workflow:  workflows.CatalogSyncWorkflow,
			Args:      []interface{}{workflows.CatalogSyncInput{Trigger: "schedule", MinStations: minStations}},
			TaskQueue: cfg.Temporal.TaskQueue,
		},
	})
	if errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
		return nil
	}
	return err
}

// runOnce starts a sync now and waits for its summary.
func runOnce(ctx context.Context, cfg *config.Config, c client.Client) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Minute)
	defer cancel()

	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "catalog-sync-manual-" + uuid.NewString(),
		TaskQueue: cfg.Temporal.TaskQueue,
	}, workflows.CatalogSyncWorkflow, workflows.CatalogSyncInput{Trigger: "manual", MinStations: minStations})
	if err != nil {
		log.Fatalf("start catalog sync: %v", err)
	}

	var summary workflows.CatalogSummary
	if err := run.Get(ctx, &summary); err != nil {
		log.Fatalf("catalog sync %s: %v", run.GetID(), err)
	}
	fmt.Printf("synced %d stations, %d lines, %d counties (announced: %v)\n",
		summary.Stations, summary.Lines, summary.Counties, summary.Announced)
}
