package usecases

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/samirrijal/trainschedule/internal/core/domain"
	"github.com/samirrijal/trainschedule/internal/core/ports"
)

var tracer = otel.Tracer("github.com/samirrijal/trainschedule/internal/core/usecases")

// classify turns a remote-call failure into a result: a soft Fail when the
// network is down at the moment of failure, a hard Error otherwise.
func classify[T any](ctx context.Context, conn ports.ConnectivityChecker, op string, err error) domain.Result[T] {
	if conn != nil && !conn.IsConnected(ctx) {
		slog.WarnContext(ctx, op+" failed while offline", "error", err)
		return domain.Fail[T](domain.MsgNotConnected)
	}
	slog.ErrorContext(ctx, op+" failed", "error", err)
	return domain.Error[T](err)
}

// SystemClock reads the wall clock in railway time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().In(domain.Taipei) }

// stationLookup indexes the catalog by id. A catalog failure yields a nil lookup,
// in which case stations are built from the raw record.
func stationLookup(ctx context.Context, catalog ports.StationCatalog) domain.StationLookup {
	if catalog == nil {
		return nil
	}
	stations, err := catalog.AllStations(ctx)
	if err != nil {
		slog.WarnContext(ctx, "station catalog unavailable", "error", err)
		return nil
	}
	byID := make(map[string]domain.Station, len(stations))
	for _, s := range stations {
		byID[s.ID] = s
	}
	return func(id string) (domain.Station, bool) {
		s, ok := byID[id]
		return s, ok
	}
}
