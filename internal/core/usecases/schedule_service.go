package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/samirrijal/trainschedule/internal/core/domain"
	"github.com/samirrijal/trainschedule/internal/core/ports"
	"github.com/samirrijal/trainschedule/internal/pkg/telemetry"
)

// ScheduleService resolves a train number to the schedule of one calendar run.
type ScheduleService struct {
	api     ports.TimetableAPI
	tokens  ports.TokenProvider
	catalog ports.StationCatalog
	conn    ports.ConnectivityChecker
}

// NewScheduleService creates a new ScheduleService.
func NewScheduleService(
	api ports.TimetableAPI,
	tokens ports.TokenProvider,
	catalog ports.StationCatalog,
	conn ports.ConnectivityChecker,
) *ScheduleService {
	return &ScheduleService{api: api, tokens: tokens, catalog: catalog, conn: conn}
}

// ResolveSchedule finds trainNo's timetable and dates it. The general timetable is
// tried first, then today's. When the train's day-boundary station comes at or
// before the departure station of refPath, the run began the day before queryDate.
func (s *ScheduleService) ResolveSchedule(ctx context.Context, trainNo string, queryDate time.Time, refPath domain.Path) domain.Result[domain.TrainSchedule] {
	ctx, span := tracer.Start(ctx, "ScheduleService.ResolveSchedule")
	defer span.End()
	span.SetAttributes(telemetry.AttrTrainNo.String(trainNo))

	token := s.tokens.AccessToken(ctx)
	if token == "" {
		return classify[domain.TrainSchedule](ctx, s.conn, "resolve schedule", domain.ErrNoAccessToken)
	}

	record, err := s.findTimetable(ctx, token, trainNo)
	if err != nil {
		return classify[domain.TrainSchedule](ctx, s.conn, "resolve schedule", err)
	}
	if record == nil {
		return domain.Error[domain.TrainSchedule](fmt.Errorf("%w: %s", domain.ErrTrainNotFound, trainNo))
	}

	date := domain.Day(queryDate)
	if record.StartsPreviousDay(refPath.DepartureStation.ID) {
		date = date.AddDate(0, 0, -1)
	}

	sched, err := record.ToTrainSchedule(date, refPath, stationLookup(ctx, s.catalog))
	if err != nil {
		return domain.Error[domain.TrainSchedule](fmt.Errorf("build schedule for %s: %w", trainNo, err))
	}
	return domain.Success(sched)
}

func (s *ScheduleService) findTimetable(ctx context.Context, token, trainNo string) (*domain.TrainTimetable, error) {
	general, err := s.api.GetGeneralTimetables(ctx, token, trainNo)
	if err != nil {
		return nil, fmt.Errorf("general timetable: %w", err)
	}
	if len(general) > 0 {
		return &general[0], nil
	}

	today, err := s.api.GetTodayTimetables(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("today timetable: %w", err)
	}
	for i := range today {
		if today[i].Info.Number == trainNo {
			return &today[i], nil
		}
	}
	return nil, nil
}
