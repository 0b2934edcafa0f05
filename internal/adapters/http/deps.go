package http

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/trainschedule/internal/adapters/postgres"
	"github.com/samirrijal/trainschedule/internal/adapters/valkey"
	"github.com/samirrijal/trainschedule/internal/core/ports"
	"github.com/samirrijal/trainschedule/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Catalog     *usecases.CatalogService
	Trips       *usecases.TripService
	Timetables  *usecases.TimetableService
	Schedules   *usecases.ScheduleService
	Tracker     *usecases.TrackerService
	Preferences *usecases.PreferenceService
	Clock       ports.Clock
	// Tracking relays observations published by other instances. Optional.
	Tracking ports.TrackingSubscriber
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache
}

func (d *Dependencies) now() time.Time {
	if d.Clock == nil {
		return usecases.SystemClock{}.Now()
	}
	return d.Clock.Now()
}
