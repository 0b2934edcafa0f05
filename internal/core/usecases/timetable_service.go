package usecases

import (
	"context"
	"log/slog"
	"time"

	"github.com/samirrijal/trainschedule/internal/core/domain"
	"github.com/samirrijal/trainschedule/internal/core/ports"
	"github.com/samirrijal/trainschedule/internal/pkg/telemetry"
)

// TimetableService fetches direct (single-train) schedules between two stations.
type TimetableService struct {
	api     ports.TimetableAPI
	tokens  ports.TokenProvider
	catalog ports.StationCatalog
	conn    ports.ConnectivityChecker
}

// NewTimetableService creates a new TimetableService.
func NewTimetableService(
	api ports.TimetableAPI,
	tokens ports.TokenProvider,
	catalog ports.StationCatalog,
	conn ports.ConnectivityChecker,
) *TimetableService {
	return &TimetableService{api: api, tokens: tokens, catalog: catalog, conn: conn}
}

// FetchTimetables returns the raw O-D timetable rows for path on date. No rows is
// a valid answer.
func (s *TimetableService) FetchTimetables(ctx context.Context, path domain.Path, date time.Time) domain.Result[[]domain.TrainTimetable] {
	ctx, span := tracer.Start(ctx, "TimetableService.FetchTimetables")
	defer span.End()
	span.SetAttributes(
		telemetry.AttrPath.String(path.ID()),
		telemetry.AttrDate.String(date.Format(domain.DateLayout)),
	)

	token := s.tokens.AccessToken(ctx)
	if token == "" {
		return classify[[]domain.TrainTimetable](ctx, s.conn, "fetch timetables", domain.ErrNoAccessToken)
	}
	rows, err := s.api.GetODTimetables(ctx, token, path.DepartureStation.ID, path.ArrivalStation.ID, date)
	if err != nil {
		return classify[[]domain.TrainTimetable](ctx, s.conn, "fetch timetables", err)
	}
	if rows == nil {
		rows = []domain.TrainTimetable{}
	}
	return domain.Success(rows)
}

// FetchFares returns the O-D fares, or nil when they cannot be fetched.
func (s *TimetableService) FetchFares(ctx context.Context, path domain.Path) []domain.ODFare {
	token := s.tokens.AccessToken(ctx)
	if token == "" {
		return nil
	}
	fares, err := s.api.GetODFares(ctx, token, path.DepartureStation.ID, path.ArrivalStation.ID)
	if err != nil {
		slog.WarnContext(ctx, "fetch fares", "path", path.ID(), "error", err)
		return nil
	}
	return fares
}

// FetchTrips maps every direct timetable row to a one-leg trip, priced from the
// fare table, sorted by departure.
func (s *TimetableService) FetchTrips(ctx context.Context, path domain.Path, date time.Time) domain.Result[[]domain.Trip] {
	rows := s.FetchTimetables(ctx, path, date)
	if !rows.IsSuccess() {
		return domain.Convert[[]domain.Trip](rows)
	}

	lookup := stationLookup(ctx, s.catalog)
	fares := s.FetchFares(ctx, path)
	day := domain.Day(date)

	trips := make([]domain.Trip, 0, len(rows.Data()))
	for _, tt := range rows.Data() {
		sched, err := tt.ToTrainSchedule(day, path, lookup)
		if err != nil || len(sched.Stops) == 0 {
			slog.WarnContext(ctx, "skip malformed timetable row", "train", tt.Info.Number, "error", err)
			continue
		}
		sched.Price = domain.AdultFare(fares, sched.Train.Type)
		trips = append(trips, domain.NewDirectTrip(path, sched))
	}
	domain.SortTrips(trips)
	return domain.Success(trips)
}
