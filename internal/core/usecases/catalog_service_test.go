package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/samirrijal/trainschedule/internal/core/domain"
	"github.com/samirrijal/trainschedule/internal/core/usecases"
)

// --- Mock repositories ---

type mockStationRepo struct {
	mu       sync.Mutex
	stations []domain.Station
	upsertFn func(ctx context.Context, stations []domain.Station) error
}

func (m *mockStationRepo) UpsertBatch(ctx context.Context, stations []domain.Station) error {
	if m.upsertFn != nil {
		if err := m.upsertFn(ctx, stations); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.stations = stations
	m.mu.Unlock()
	return nil
}

func (m *mockStationRepo) List(context.Context) ([]domain.Station, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Station(nil), m.stations...), nil
}

func (m *mockStationRepo) GetByID(_ context.Context, id string) (*domain.Station, error) {
	for _, s := range m.stations {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, domain.ErrStationNotFound
}

type mockLineRepo struct {
	lines []domain.Line
}

func (m *mockLineRepo) UpsertBatch(_ context.Context, lines []domain.Line) error {
	m.lines = lines
	return nil
}

func (m *mockLineRepo) List(context.Context) ([]domain.Line, error) { return m.lines, nil }

func (m *mockLineRepo) GetByID(_ context.Context, id string) (*domain.Line, error) {
	for _, l := range m.lines {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, domain.ErrNotFound
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes int
}

func newMapCache() *mapCache { return &mapCache{entries: map[string][]byte{}} }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ int) error {
	c.mu.Lock()
	c.entries[key] = value
	c.mu.Unlock()
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.deletes++
	c.mu.Unlock()
	return nil
}

// --- Tests ---

func catalogAPI() *mockAPI {
	return &mockAPI{
		getStationsFn: func(context.Context, string) ([]domain.Station, error) {
			return []domain.Station{hsinchu, taipei, taoyuan}, nil
		},
		getLinesFn: func(context.Context, string) ([]domain.Line, error) {
			return []domain.Line{{ID: "WL", Name: domain.Name{En: "Western Line", Zh: "西部幹線"}, Stations: []domain.Station{taipei, taoyuan, hsinchu}}}, nil
		},
	}
}

func TestCatalogService_Refresh(t *testing.T) {
	stationRepo := &mockStationRepo{}
	lineRepo := &mockLineRepo{}
	cache := newMapCache()
	svc := usecases.NewCatalogService(catalogAPI(), staticToken("Bearer x"), stationRepo, lineRepo, cache, connState(true))

	r := svc.Refresh(context.Background())
	if !r.IsSuccess() {
		t.Fatalf("expected success, got %s: %v", r.Status(), r.Err())
	}
	if len(stationRepo.stations) != 3 {
		t.Errorf("expected 3 stations stored, got %d", len(stationRepo.stations))
	}
	if len(lineRepo.lines) != 1 {
		t.Errorf("expected 1 line stored, got %d", len(lineRepo.lines))
	}

	got, err := svc.AllStations(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].ID != "1000" || got[2].ID != "1210" {
		t.Errorf("expected stations ordered by id, got %v", got)
	}
	if _, ok := cache.entries["catalog:stations"]; !ok {
		t.Error("expected station list to be cached")
	}
}

func TestCatalogService_Refresh_OfflineIsFail(t *testing.T) {
	api := catalogAPI()
	api.getStationsFn = func(context.Context, string) ([]domain.Station, error) {
		return nil, errors.New("dial tcp: no route to host")
	}
	stationRepo := &mockStationRepo{}
	svc := usecases.NewCatalogService(api, staticToken("Bearer x"), stationRepo, &mockLineRepo{}, nil, connState(false))

	r := svc.Refresh(context.Background())
	if !r.IsFail() {
		t.Fatalf("expected fail, got %s", r.Status())
	}
	if r.Message() != domain.MsgNotConnected {
		t.Errorf("expected %q, got %q", domain.MsgNotConnected, r.Message())
	}
	if stationRepo.stations != nil {
		t.Error("expected nothing stored")
	}
}

func TestCatalogService_Refresh_OnlineIsError(t *testing.T) {
	api := catalogAPI()
	api.getLinesFn = func(context.Context, string) ([]domain.Line, error) {
		return nil, errors.New("status 500")
	}
	svc := usecases.NewCatalogService(api, staticToken("Bearer x"), &mockStationRepo{}, &mockLineRepo{}, nil, connState(true))

	r := svc.Refresh(context.Background())
	if !r.IsError() {
		t.Fatalf("expected error, got %s", r.Status())
	}
}

func TestCatalogService_Refresh_NoToken(t *testing.T) {
	svc := usecases.NewCatalogService(catalogAPI(), staticToken(""), &mockStationRepo{}, &mockLineRepo{}, nil, connState(true))

	r := svc.Refresh(context.Background())
	if !r.IsError() || !errors.Is(r.Err(), domain.ErrNoAccessToken) {
		t.Fatalf("expected no-token error, got %s: %v", r.Status(), r.Err())
	}
}

func TestCatalogService_StationByName(t *testing.T) {
	repo := &mockStationRepo{stations: []domain.Station{taipei, hsinchu}}
	svc := usecases.NewCatalogService(&mockAPI{}, staticToken(""), repo, &mockLineRepo{}, nil, nil)

	s, err := svc.StationByName(context.Background(), "新竹")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ID != "1210" {
		t.Errorf("expected 1210, got %s", s.ID)
	}
	if _, err := svc.StationByName(context.Background(), "高雄"); !errors.Is(err, domain.ErrStationNotFound) {
		t.Errorf("expected ErrStationNotFound, got %v", err)
	}
}

func TestCatalogService_StationsByCounty(t *testing.T) {
	noCounty := domain.Station{ID: "9999", Name: domain.Name{Zh: "未知"}}
	repo := &mockStationRepo{stations: []domain.Station{taipei, taoyuan, noCounty}}
	svc := usecases.NewCatalogService(&mockAPI{}, staticToken(""), repo, &mockLineRepo{}, nil, nil)

	groups, err := svc.StationsByCounty(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 counties, got %d", len(groups))
	}
	if groups[0].County.Zh != "臺北市" {
		t.Errorf("expected 臺北市 first, got %s", groups[0].County.Zh)
	}
}

func TestCatalogService_StationsOfLine(t *testing.T) {
	lines := &mockLineRepo{lines: []domain.Line{{ID: "WL", Stations: []domain.Station{taipei, hsinchu}}}}
	svc := usecases.NewCatalogService(&mockAPI{}, staticToken(""), &mockStationRepo{}, lines, newMapCache(), nil)

	got, err := svc.StationsOfLine(context.Background(), "WL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[1].ID != "1210" {
		t.Errorf("unexpected stations %v", got)
	}
	if _, err := svc.StationsOfLine(context.Background(), "XX"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalogService_InvalidateCache(t *testing.T) {
	stations := &mockStationRepo{stations: []domain.Station{taipei}}
	lines := &mockLineRepo{lines: []domain.Line{{ID: "WL", Stations: []domain.Station{taipei}}}}
	cache := newMapCache()
	svc := usecases.NewCatalogService(&mockAPI{}, staticToken(""), stations, lines, cache, nil)
	ctx := context.Background()

	if _, err := svc.AllStations(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.StationsOfLine(ctx, "WL"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Another instance refreshed the shared store.
	stations.stations = []domain.Station{taipei, hsinchu}
	if got, _ := svc.AllStations(ctx); len(got) != 1 {
		t.Fatalf("expected cached read of 1 station, got %d", len(got))
	}

	svc.InvalidateCache(ctx)
	if got, _ := svc.AllStations(ctx); len(got) != 2 {
		t.Errorf("expected 2 stations after invalidation, got %d", len(got))
	}
	if _, ok := cache.entries["catalog:lines:WL"]; ok {
		t.Error("expected per-line entry to be dropped")
	}
}
