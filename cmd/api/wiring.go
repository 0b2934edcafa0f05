package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/trainschedule/internal/adapters/nats"
	"github.com/samirrijal/trainschedule/internal/adapters/postgres"
	"github.com/samirrijal/trainschedule/internal/pkg/config"
	"github.com/samirrijal/trainschedule/internal/pkg/metrics"
)

// natsConnection opens the connection probed by the readiness check.
func natsConnection(cfg *config.Config) *nats.Conn {
	if !cfg.NATS.Enabled {
		return nil
	}
	nc, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats health conn unavailable", "error", err)
		return nil
	}
	return nc
}

// poolMetrics exports pool gauges until ctx is done.
func poolMetrics(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}
