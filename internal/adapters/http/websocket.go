package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/trainschedule/internal/core/domain"
	"github.com/samirrijal/trainschedule/internal/pkg/metrics"
)

const (
	localsSchedule = "schedule"
	localsRelay    = "relay"
)

// PrepareTrackingHandler resolves the train's schedule before the upgrade so
// lookup failures still get a normal HTTP error.
func PrepareTrackingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		relay := c.QueryBool("relay", false)
		if relay && deps.Tracking == nil {
			return errBadRequest(c, "relay is not configured")
		}
		path, err := resolvePath(c, deps)
		if err != nil {
			return pathError(c, err)
		}
		date, err := queryDate(c, deps)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		r := deps.Schedules.ResolveSchedule(c.UserContext(), c.Params("number"), date, path)
		if !r.IsSuccess() {
			return respond(c, r)
		}
		c.Locals(localsSchedule, r.Data())
		c.Locals(localsRelay, relay)
		return c.Next()
	}
}

// TrackTrainHandler streams tracking states of one train as JSON messages.
// By default the connection runs its own tracker; with ?relay=true it relays
// states published by other instances instead. The stream ends when the train
// finishes or the client goes away.
func TrackTrainHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		schedule, ok := c.Locals(localsSchedule).(domain.TrainSchedule)
		if !ok {
			return
		}
		relay, _ := c.Locals(localsRelay).(bool)

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws tracking started", "remote", remoteAddr, "train", schedule.Train.Number, "relay", relay)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var mu sync.Mutex
		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		// Reads only detect the client going away.
		go func() {
			defer cancel()
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						cancel()
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		if err := writeJSON(fiber.Map{"type": "schedule", "schedule": schedule}); err != nil {
			return
		}

		if relay {
			relayStates(ctx, deps, schedule.Train.Number, writeJSON)
		} else {
			for state := range deps.Tracker.Track(ctx, schedule) {
				if err := writeJSON(fiber.Map{"type": "state", "state": state}); err != nil {
					cancel()
				}
			}
		}

		slog.Info("ws tracking stopped", "remote", remoteAddr, "train", schedule.Train.Number)
	}
}

func relayStates(ctx context.Context, deps *Dependencies, trainNo string, write func(any) error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	err := deps.Tracking.SubscribeTracking(ctx, trainNo, func(_ context.Context, state *domain.TrackingState) error {
		if err := write(fiber.Map{"type": "state", "state": state}); err != nil {
			cancel()
			return err
		}
		if state.Status == domain.StatusFinish {
			cancel()
		}
		return nil
	})
	if err != nil {
		_ = write(fiber.Map{"type": "error", "error": "subscribe failed: " + err.Error()})
		return
	}
	<-ctx.Done()
}
