package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/samirrijal/trainschedule/internal/core/domain"
	"github.com/samirrijal/trainschedule/internal/core/ports"
	"github.com/samirrijal/trainschedule/internal/pkg/metrics"
	"github.com/samirrijal/trainschedule/internal/pkg/railweb"
	"github.com/samirrijal/trainschedule/internal/pkg/telemetry"
)

// TransferService scrapes itineraries with transfers from the public timetable page.
type TransferService struct {
	fetcher ports.DocumentFetcher
	catalog ports.StationCatalog
	conn    ports.ConnectivityChecker
	baseURL string
}

// NewTransferService creates a new TransferService. An empty baseURL uses the
// public site.
func NewTransferService(
	fetcher ports.DocumentFetcher,
	catalog ports.StationCatalog,
	conn ports.ConnectivityChecker,
	baseURL string,
) *TransferService {
	return &TransferService{fetcher: fetcher, catalog: catalog, conn: conn, baseURL: baseURL}
}

// ScrapeTransferTrips downloads the search page for path on date and parses it,
// trying each known layout until one yields trips.
func (s *TransferService) ScrapeTransferTrips(ctx context.Context, path domain.Path, date time.Time) domain.Result[[]domain.Trip] {
	ctx, span := tracer.Start(ctx, "TransferService.ScrapeTransferTrips")
	defer span.End()
	span.SetAttributes(
		telemetry.AttrPath.String(path.ID()),
		telemetry.AttrDate.String(date.Format(domain.DateLayout)),
	)

	// The catalog is local storage, so its failures are never connectivity failures.
	stations, err := s.catalog.AllStations(ctx)
	if err != nil {
		return domain.Error[[]domain.Trip](fmt.Errorf("load stations: %w", err))
	}

	url := railweb.SearchURL(s.baseURL, date, path)
	start := time.Now()
	doc, err := s.fetcher.FetchDocument(ctx, url)
	metrics.ScraperFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return classify[[]domain.Trip](ctx, s.conn, "scrape transfer trips", err)
	}

	trips, err := parseTrips(doc, stations, domain.Day(date), path)
	if err != nil {
		return domain.Error[[]domain.Trip](err)
	}
	span.SetAttributes(telemetry.AttrTripCount.Int(len(trips)))
	return domain.Success(trips)
}

// parseTrips runs the layout parsers in order. A panic in a parser fails the batch.
func parseTrips(doc *goquery.Document, stations []domain.Station, date time.Time, path domain.Path) (trips []domain.Trip, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse timetable page: %v", r)
		}
	}()

	for _, p := range railweb.Parsers {
		trips = p.Parse(doc, stations, date, path)
		if len(trips) > 0 {
			metrics.ScraperParses.WithLabelValues(p.Name, "trips").Inc()
			return trips, nil
		}
		metrics.ScraperParses.WithLabelValues(p.Name, "empty").Inc()
	}
	return []domain.Trip{}, nil
}
