package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/trainschedule/internal/core/domain"
	"github.com/samirrijal/trainschedule/internal/core/ports"
	"github.com/samirrijal/trainschedule/internal/pkg/metrics"
	"github.com/samirrijal/trainschedule/internal/pkg/telemetry"
)

const (
	cacheKeyStations = "catalog:stations"
	cacheKeyLines    = "catalog:lines"
	catalogCacheTTL  = 3600
)

// CatalogService keeps the local station/line catalog in sync with the API and
// serves it read-through from the cache.
type CatalogService struct {
	api      ports.TimetableAPI
	tokens   ports.TokenProvider
	stations ports.StationRepository
	lines    ports.LineRepository
	cache    ports.CacheService
	conn     ports.ConnectivityChecker
}

// NewCatalogService creates a new CatalogService. cache may be nil.
func NewCatalogService(
	api ports.TimetableAPI,
	tokens ports.TokenProvider,
	stations ports.StationRepository,
	lines ports.LineRepository,
	cache ports.CacheService,
	conn ports.ConnectivityChecker,
) *CatalogService {
	return &CatalogService{api: api, tokens: tokens, stations: stations, lines: lines, cache: cache, conn: conn}
}

// Refresh downloads stations and lines and upserts both. Either both land or the
// result is a failure.
func (s *CatalogService) Refresh(ctx context.Context) domain.Result[bool] {
	ctx, span := tracer.Start(ctx, "CatalogService.Refresh")
	defer span.End()

	r := s.refresh(ctx)
	span.SetAttributes(telemetry.AttrResult.String(r.Status().String()))
	metrics.CatalogRefreshes.WithLabelValues(r.Status().String()).Inc()
	return r
}

func (s *CatalogService) refresh(ctx context.Context) domain.Result[bool] {
	token := s.tokens.AccessToken(ctx)
	if token == "" {
		return classify[bool](ctx, s.conn, "catalog refresh", domain.ErrNoAccessToken)
	}

	var (
		stations []domain.Station
		lines    []domain.Line
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if stations, err = s.api.GetStations(gctx, token); err != nil {
			return fmt.Errorf("fetch stations: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if lines, err = s.api.GetLines(gctx, token); err != nil {
			return fmt.Errorf("fetch lines: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return classify[bool](ctx, s.conn, "catalog refresh", err)
	}

	if err := s.stations.UpsertBatch(ctx, stations); err != nil {
		return domain.Error[bool](fmt.Errorf("upsert stations: %w", err))
	}
	if err := s.lines.UpsertBatch(ctx, lines); err != nil {
		return domain.Error[bool](fmt.Errorf("upsert lines: %w", err))
	}

	s.invalidate(ctx, lines)
	slog.InfoContext(ctx, "catalog refreshed", "stations", len(stations), "lines", len(lines))
	return domain.Success(true)
}

// InvalidateCache drops cached catalog reads, e.g. after another instance refreshed.
func (s *CatalogService) InvalidateCache(ctx context.Context) {
	lines, err := s.lines.List(ctx)
	if err != nil {
		slog.WarnContext(ctx, "list lines for cache invalidation", "error", err)
	}
	s.invalidate(ctx, lines)
}

func (s *CatalogService) invalidate(ctx context.Context, lines []domain.Line) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, cacheKeyStations)
	_ = s.cache.Delete(ctx, cacheKeyLines)
	for _, l := range lines {
		_ = s.cache.Delete(ctx, cacheKeyLines+":"+l.ID)
	}
}

// AllStations returns every station ordered by id ascending.
func (s *CatalogService) AllStations(ctx context.Context) ([]domain.Station, error) {
	var stations []domain.Station
	if s.cacheGet(ctx, cacheKeyStations, &stations) {
		return stations, nil
	}

	stations, err := s.stations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	sort.SliceStable(stations, func(i, j int) bool { return stations[i].ID < stations[j].ID })

	if len(stations) > 0 {
		s.cacheSet(ctx, cacheKeyStations, stations)
	}
	return stations, nil
}

// Lines returns every line with its stations.
func (s *CatalogService) Lines(ctx context.Context) ([]domain.Line, error) {
	var lines []domain.Line
	if s.cacheGet(ctx, cacheKeyLines, &lines) {
		return lines, nil
	}
	lines, err := s.lines.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}
	if len(lines) > 0 {
		s.cacheSet(ctx, cacheKeyLines, lines)
	}
	return lines, nil
}

// StationsOfLine returns a line's stations in line order.
func (s *CatalogService) StationsOfLine(ctx context.Context, lineID string) ([]domain.Station, error) {
	key := cacheKeyLines + ":" + lineID
	var stations []domain.Station
	if s.cacheGet(ctx, key, &stations) {
		return stations, nil
	}
	line, err := s.lines.GetByID(ctx, lineID)
	if err != nil {
		return nil, fmt.Errorf("get line %s: %w", lineID, err)
	}
	s.cacheSet(ctx, key, line.Stations)
	return line.Stations, nil
}

// StationByID returns one station.
func (s *CatalogService) StationByID(ctx context.Context, id string) (*domain.Station, error) {
	return s.stations.GetByID(ctx, id)
}

// StationByName finds the first station whose localized name equals zh.
func (s *CatalogService) StationByName(ctx context.Context, zh string) (*domain.Station, error) {
	stations, err := s.AllStations(ctx)
	if err != nil {
		return nil, err
	}
	for i := range stations {
		if stations[i].Name.Zh == zh {
			return &stations[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrStationNotFound, zh)
}

// StationsByCounty groups the catalog by county, dropping stations without one.
func (s *CatalogService) StationsByCounty(ctx context.Context) ([]domain.CountyStations, error) {
	stations, err := s.AllStations(ctx)
	if err != nil {
		return nil, err
	}
	return domain.GroupByCounty(stations), nil
}

func (s *CatalogService) cacheGet(ctx context.Context, key string, v any) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues("catalog").Inc()
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		metrics.CacheMisses.WithLabelValues("catalog").Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues("catalog").Inc()
	return true
}

func (s *CatalogService) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if data, err := json.Marshal(v); err == nil {
		_ = s.cache.Set(ctx, key, data, catalogCacheTTL)
	}
}
