package usecases_test

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/samirrijal/trainschedule/internal/core/domain"
)

// --- Mock TimetableAPI ---

type mockAPI struct {
	getStationsFn          func(ctx context.Context, token string) ([]domain.Station, error)
	getLinesFn             func(ctx context.Context, token string) ([]domain.Line, error)
	getODTimetablesFn      func(ctx context.Context, token, fromID, toID string, date time.Time) ([]domain.TrainTimetable, error)
	getGeneralTimetablesFn func(ctx context.Context, token, trainNo string) ([]domain.TrainTimetable, error)
	getTodayTimetablesFn   func(ctx context.Context, token string) ([]domain.TrainTimetable, error)
	getODFaresFn           func(ctx context.Context, token, fromID, toID string) ([]domain.ODFare, error)
	getLiveBoardsFn        func(ctx context.Context, token string) ([]domain.StationLiveBoard, error)
}

func (m *mockAPI) GetStations(ctx context.Context, token string) ([]domain.Station, error) {
	if m.getStationsFn != nil {
		return m.getStationsFn(ctx, token)
	}
	return nil, nil
}

func (m *mockAPI) GetLines(ctx context.Context, token string) ([]domain.Line, error) {
	if m.getLinesFn != nil {
		return m.getLinesFn(ctx, token)
	}
	return nil, nil
}

func (m *mockAPI) GetODTimetables(ctx context.Context, token, fromID, toID string, date time.Time) ([]domain.TrainTimetable, error) {
	if m.getODTimetablesFn != nil {
		return m.getODTimetablesFn(ctx, token, fromID, toID, date)
	}
	return nil, nil
}

func (m *mockAPI) GetGeneralTimetables(ctx context.Context, token, trainNo string) ([]domain.TrainTimetable, error) {
	if m.getGeneralTimetablesFn != nil {
		return m.getGeneralTimetablesFn(ctx, token, trainNo)
	}
	return nil, nil
}

func (m *mockAPI) GetTodayTimetables(ctx context.Context, token string) ([]domain.TrainTimetable, error) {
	if m.getTodayTimetablesFn != nil {
		return m.getTodayTimetablesFn(ctx, token)
	}
	return nil, nil
}

func (m *mockAPI) GetODFares(ctx context.Context, token, fromID, toID string) ([]domain.ODFare, error) {
	if m.getODFaresFn != nil {
		return m.getODFaresFn(ctx, token, fromID, toID)
	}
	return nil, nil
}

func (m *mockAPI) GetStationLiveBoards(ctx context.Context, token string) ([]domain.StationLiveBoard, error) {
	if m.getLiveBoardsFn != nil {
		return m.getLiveBoardsFn(ctx, token)
	}
	return nil, nil
}

// --- Small fakes ---

type staticToken string

func (t staticToken) AccessToken(context.Context) string { return string(t) }

type connState bool

func (c connState) IsConnected(context.Context) bool { return bool(c) }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) { c.Set(c.Now().Add(d)) }

type staticCatalog []domain.Station

func (c staticCatalog) AllStations(context.Context) ([]domain.Station, error) { return c, nil }

type memPrefs struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func newPrefs() *memPrefs { return &memPrefs{values: map[string]string{}} }

func (p *memPrefs) Get(_ context.Context, key string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	v, ok := p.values[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (p *memPrefs) Set(_ context.Context, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.values[key] = value
	return nil
}

type mockFetcher struct {
	fetchFn func(ctx context.Context, url string) (*goquery.Document, error)
}

func (m *mockFetcher) FetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	return m.fetchFn(ctx, url)
}

// --- Fixtures ---

var (
	taipei  = domain.Station{ID: "1000", Name: domain.Name{En: "Taipei", Zh: "臺北"}, County: domain.Name{En: "Taipei City", Zh: "臺北市"}}
	taoyuan = domain.Station{ID: "1080", Name: domain.Name{En: "Taoyuan", Zh: "桃園"}, County: domain.Name{En: "Taoyuan City", Zh: "桃園市"}}
	hsinchu = domain.Station{ID: "1210", Name: domain.Name{En: "Hsinchu", Zh: "新竹"}, County: domain.Name{En: "Hsinchu City", Zh: "新竹市"}}

	stations = staticCatalog{taipei, taoyuan, hsinchu}
	day      = time.Date(2024, 3, 1, 0, 0, 0, 0, domain.Taipei)
)

func at(d time.Time, hh, mm int) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), hh, mm, 0, 0, domain.Taipei)
}

func timetable(number, typeZh string, stops ...domain.StopTime) domain.TrainTimetable {
	return domain.TrainTimetable{
		Info:      domain.TrainInfo{Number: number, TypeName: domain.Name{Zh: typeZh}},
		StopTimes: stops,
	}
}

func stopTime(id, arr, dep string) domain.StopTime {
	return domain.StopTime{StationID: id, ArrivalTime: arr, DepartureTime: dep}
}

func formatInt(n int64) string { return strconv.FormatInt(n, 10) }
