package workflows

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/trainschedule/internal/core/domain"
)

// Catalog is the slice of the catalog service the sync activities drive.
type Catalog interface {
	Refresh(ctx context.Context) domain.Result[bool]
	AllStations(ctx context.Context) ([]domain.Station, error)
	Lines(ctx context.Context) ([]domain.Line, error)
}

// Notifier announces a completed catalog refresh to other instances.
type Notifier interface {
	PublishCatalogRefreshed(ctx context.Context, at time.Time) error
}

// Error types reported by RefreshCatalog.
const (
	ErrTypeOffline  = "Offline"
	ErrTypeUpstream = "UpstreamError"
)

// CatalogActivities holds the activity implementations for the catalog sync workflow.
type CatalogActivities struct {
	Catalog Catalog
	// Notifier is optional.
	Notifier Notifier
}

// RefreshCatalog downloads stations and lines. Losing connectivity is retryable;
// any other failure is not.
func (a *CatalogActivities) RefreshCatalog(ctx context.Context) error {
	r := a.Catalog.Refresh(ctx)
	switch r.Status() {
	case domain.StatusSuccess:
		return nil
	case domain.StatusFail:
		return temporal.NewApplicationError(r.Message(), ErrTypeOffline)
	case domain.StatusError:
		return temporal.NewNonRetryableApplicationError(r.Err().Error(), ErrTypeUpstream, r.Err())
	default:
		return temporal.NewApplicationError("catalog refresh still pending", ErrTypeOffline)
	}
}

// CountCatalog reports the stored catalog size.
func (a *CatalogActivities) CountCatalog(ctx context.Context) (CatalogSummary, error) {
	stations, err := a.Catalog.AllStations(ctx)
	if err != nil {
		return CatalogSummary{}, fmt.Errorf("list stations: %w", err)
	}
	lines, err := a.Catalog.Lines(ctx)
	if err != nil {
		return CatalogSummary{}, fmt.Errorf("list lines: %w", err)
	}
	return CatalogSummary{
		Stations: len(stations),
		Lines:    len(lines),
		Counties: len(domain.GroupByCounty(stations)),
	}, nil
}

// AnnounceRefresh publishes the refresh time.
func (a *CatalogActivities) AnnounceRefresh(ctx context.Context, at time.Time) error {
	if a.Notifier == nil {
		slog.InfoContext(ctx, "catalog refreshed (no notifier)", "at", at.Format(time.RFC3339))
		return nil
	}
	if err := a.Notifier.PublishCatalogRefreshed(ctx, at); err != nil {
		return fmt.Errorf("announce catalog refresh: %w", err)
	}
	return nil
}
