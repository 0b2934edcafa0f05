package usecases

import (
	"context"
	"time"

	"github.com/samirrijal/trainschedule/internal/core/domain"
)

// TripQuery describes a trip search.
type TripQuery struct {
	Path        domain.Path
	Date        time.Time
	CanTransfer bool
	// TrainTypes restricts every leg to these groups. Empty means all.
	TrainTypes []domain.TrainTypeCode
}

// TripService answers trip searches from the direct API or the transfer scraper.
type TripService struct {
	timetables *TimetableService
	transfers  *TransferService
}

// NewTripService creates a new TripService.
func NewTripService(timetables *TimetableService, transfers *TransferService) *TripService {
	return &TripService{timetables: timetables, transfers: transfers}
}

// Search returns trips for q sorted by departure.
func (s *TripService) Search(ctx context.Context, q TripQuery) domain.Result[[]domain.Trip] {
	var r domain.Result[[]domain.Trip]
	if q.CanTransfer {
		r = s.transfers.ScrapeTransferTrips(ctx, q.Path, q.Date)
	} else {
		r = s.timetables.FetchTrips(ctx, q.Path, q.Date)
	}
	return domain.MapResult(r, func(trips []domain.Trip) []domain.Trip {
		trips = domain.FilterByTrainTypes(trips, q.TrainTypes)
		domain.SortTrips(trips)
		return trips
	})
}
