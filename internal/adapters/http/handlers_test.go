package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/trainschedule/internal/adapters/http"
	"github.com/samirrijal/trainschedule/internal/adapters/memory"
	"github.com/samirrijal/trainschedule/internal/adapters/netcheck"
	"github.com/samirrijal/trainschedule/internal/core/domain"
	"github.com/samirrijal/trainschedule/internal/core/usecases"
)

// ---- Mock remote API ----

type mockAPI struct {
	odFn         func(fromID, toID string, date time.Time) ([]domain.TrainTimetable, error)
	generalFn    func(trainNo string) ([]domain.TrainTimetable, error)
	liveBoardsFn func() ([]domain.StationLiveBoard, error)
}

func (m *mockAPI) GetStations(context.Context, string) ([]domain.Station, error) { return nil, nil }
func (m *mockAPI) GetLines(context.Context, string) ([]domain.Line, error)       { return nil, nil }
func (m *mockAPI) GetODTimetables(_ context.Context, _, fromID, toID string, date time.Time) ([]domain.TrainTimetable, error) {
	if m.odFn != nil {
		return m.odFn(fromID, toID, date)
	}
	return nil, nil
}
func (m *mockAPI) GetGeneralTimetables(_ context.Context, _, trainNo string) ([]domain.TrainTimetable, error) {
	if m.generalFn != nil {
		return m.generalFn(trainNo)
	}
	return nil, nil
}
func (m *mockAPI) GetTodayTimetables(context.Context, string) ([]domain.TrainTimetable, error) {
	return nil, nil
}
func (m *mockAPI) GetODFares(context.Context, string, string, string) ([]domain.ODFare, error) {
	return nil, nil
}
func (m *mockAPI) GetStationLiveBoards(context.Context, string) ([]domain.StationLiveBoard, error) {
	if m.liveBoardsFn != nil {
		return m.liveBoardsFn()
	}
	return nil, nil
}

type staticToken string

func (t staticToken) AccessToken(context.Context) string { return string(t) }

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

// ---- Fixtures ----

var (
	taipei  = domain.Station{ID: "1000", Name: domain.Name{En: "Taipei", Zh: "臺北"}, County: domain.Name{En: "Taipei City", Zh: "臺北市"}}
	banqiao = domain.Station{ID: "1020", Name: domain.Name{En: "Banqiao", Zh: "板橋"}, County: domain.Name{En: "New Taipei City", Zh: "新北市"}}
	hsinchu = domain.Station{ID: "1210", Name: domain.Name{En: "Hsinchu", Zh: "新竹"}, County: domain.Name{En: "Hsinchu City", Zh: "新竹市"}}

	now = time.Date(2024, 3, 1, 8, 15, 0, 0, domain.Taipei)
)

func directRows() []domain.TrainTimetable {
	row := func(no, typ, dep, arr string) domain.TrainTimetable {
		return domain.TrainTimetable{
			Info: domain.TrainInfo{Number: no, TypeName: domain.Name{Zh: typ}},
			StopTimes: []domain.StopTime{
				{StationID: "1000", ArrivalTime: dep, DepartureTime: dep},
				{StationID: "1210", ArrivalTime: arr, DepartureTime: arr},
			},
		}
	}
	return []domain.TrainTimetable{
		row("1203", "區間", "09:00", "10:20"),
		row("101", "自強", "08:00", "09:10"),
		row("1201", "區間", "07:00", "08:20"),
	}
}

func newDeps(t *testing.T, api *mockAPI, connected bool) *handler.Dependencies {
	t.Helper()
	ctx := context.Background()

	stations := memory.NewStations()
	_ = stations.UpsertBatch(ctx, []domain.Station{hsinchu, taipei, banqiao})
	lines := memory.NewLines()
	_ = lines.UpsertBatch(ctx, []domain.Line{{ID: "WL", Name: domain.Name{En: "Western Line"}, Stations: []domain.Station{taipei, banqiao, hsinchu}}})

	clock := fixedClock(now)
	conn := netcheck.Always(connected)
	tokens := staticToken("Bearer test")

	catalog := usecases.NewCatalogService(api, tokens, stations, lines, memory.NewCache(time.Minute), conn)
	timetables := usecases.NewTimetableService(api, tokens, catalog, conn)
	return &handler.Dependencies{
		Catalog:     catalog,
		Timetables:  timetables,
		Trips:       usecases.NewTripService(timetables, nil),
		Schedules:   usecases.NewScheduleService(api, tokens, catalog, conn),
		Tracker:     usecases.NewTrackerService(api, tokens, clock, nil, usecases.DefaultTrackerConfig()),
		Preferences: usecases.NewPreferenceService(memory.NewPreferences(), memory.NewPaths(), clock),
		Clock:       clock,
	}
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func decodeError(t *testing.T, data []byte) handler.APIError {
	t.Helper()
	var e handler.APIError
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("decode error body %s: %v", data, err)
	}
	return e
}

// ---- Tests ----

func TestHealth(t *testing.T) {
	app := setupApp(newDeps(t, &mockAPI{}, true))
	status, _ := do(t, app, "GET", "/v1/health", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
}

func TestListStations_Pagination(t *testing.T) {
	app := setupApp(newDeps(t, &mockAPI{}, true))

	status, data := do(t, app, "GET", "/v1/stations?offset=1&limit=1", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var body struct {
		Data       []domain.Station   `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Pagination.Total != 3 || len(body.Data) != 1 || body.Data[0].ID != "1020" {
		t.Errorf("unexpected page %+v", body)
	}
}

func TestListStations_ByName(t *testing.T) {
	app := setupApp(newDeps(t, &mockAPI{}, true))

	status, data := do(t, app, "GET", "/v1/stations?name=%E6%96%B0%E7%AB%B9", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var stations []domain.Station
	_ = json.Unmarshal(data, &stations)
	if len(stations) != 1 || stations[0].ID != "1210" {
		t.Errorf("unexpected stations %+v", stations)
	}
}

func TestGetStation_NotFound(t *testing.T) {
	app := setupApp(newDeps(t, &mockAPI{}, true))

	status, data := do(t, app, "GET", "/v1/stations/9999", "")
	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
	if e := decodeError(t, data); e.Code != "not_found" {
		t.Errorf("expected not_found, got %s", e.Code)
	}
}

func TestCounties(t *testing.T) {
	app := setupApp(newDeps(t, &mockAPI{}, true))

	status, data := do(t, app, "GET", "/v1/counties", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var groups []domain.CountyStations
	_ = json.Unmarshal(data, &groups)
	if len(groups) != 3 || groups[0].County.Zh != "臺北市" {
		t.Errorf("unexpected groups %+v", groups)
	}
}

func TestLineStations(t *testing.T) {
	app := setupApp(newDeps(t, &mockAPI{}, true))

	status, data := do(t, app, "GET", "/v1/lines/WL/stations", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var stations []domain.Station
	_ = json.Unmarshal(data, &stations)
	if len(stations) != 3 || stations[1].ID != "1020" {
		t.Errorf("unexpected stations %+v", stations)
	}

	if status, _ := do(t, app, "GET", "/v1/lines/XX/stations", ""); status != 404 {
		t.Errorf("expected 404 for unknown line, got %d", status)
	}
}

func TestSearchTrips(t *testing.T) {
	var gotDate time.Time
	api := &mockAPI{odFn: func(_, _ string, date time.Time) ([]domain.TrainTimetable, error) {
		gotDate = date
		return directRows(), nil
	}}
	app := setupApp(newDeps(t, api, true))

	status, data := do(t, app, "GET", "/v1/trips?from=1000&to=1210&date=2024-03-02&at=08:30", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, data)
	}
	var body handler.TripsResponse
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Trips) != 3 {
		t.Fatalf("expected 3 trips, got %d", len(body.Trips))
	}
	if body.Trips[0].TrainSchedules[0].Train.Number != "1201" {
		t.Errorf("expected trips sorted by departure, got %s first", body.Trips[0].TrainSchedules[0].Train.Number)
	}
	if body.InitialIndex != 2 {
		t.Errorf("expected first trip after 08:30 at index 2, got %d", body.InitialIndex)
	}
	if gotDate.Format(domain.DateLayout) != "2024-03-02" {
		t.Errorf("expected date 2024-03-02, got %s", gotDate)
	}
}

func TestSearchTrips_DefaultsToSavedPathAndFilters(t *testing.T) {
	api := &mockAPI{odFn: func(fromID, toID string, _ time.Time) ([]domain.TrainTimetable, error) {
		if fromID != "1000" || toID != "1210" {
			return nil, errors.New("unexpected path")
		}
		return directRows(), nil
	}}
	app := setupApp(newDeps(t, api, true))

	status, data := do(t, app, "GET", "/v1/trips?types=express&mode=arrival", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, data)
	}
	var body handler.TripsResponse
	_ = json.Unmarshal(data, &body)
	if len(body.Trips) != 1 || body.Trips[0].TrainSchedules[0].Train.Number != "101" {
		t.Errorf("expected only train 101, got %+v", body.Trips)
	}
	if body.Date != "2024-03-01" {
		t.Errorf("expected today's date, got %s", body.Date)
	}
}

func TestSearchTrips_BadRequests(t *testing.T) {
	app := setupApp(newDeps(t, &mockAPI{}, true))

	for _, target := range []string{
		"/v1/trips?from=1000",
		"/v1/trips?date=03-01-2024",
		"/v1/trips?types=maglev",
		"/v1/trips?mode=sideways",
		"/v1/trips?at=8am",
	} {
		if status, _ := do(t, app, "GET", target, ""); status != 400 {
			t.Errorf("%s: expected 400, got %d", target, status)
		}
	}
	if status, _ := do(t, app, "GET", "/v1/trips?from=1000&to=9999", ""); status != 404 {
		t.Errorf("expected 404 for unknown station, got %d", status)
	}
}

func TestSearchTrips_Offline(t *testing.T) {
	api := &mockAPI{odFn: func(string, string, time.Time) ([]domain.TrainTimetable, error) {
		return nil, errors.New("dial tcp: i/o timeout")
	}}

	status, data := do(t, setupApp(newDeps(t, api, false)), "GET", "/v1/trips?from=1000&to=1210", "")
	if status != 503 {
		t.Fatalf("expected 503, got %d", status)
	}
	if e := decodeError(t, data); e.Code != "unavailable" || e.Message != domain.MsgNotConnected {
		t.Errorf("unexpected error %+v", e)
	}

	status, data = do(t, setupApp(newDeps(t, api, true)), "GET", "/v1/trips?from=1000&to=1210", "")
	if status != 502 {
		t.Fatalf("expected 502, got %d", status)
	}
	if e := decodeError(t, data); e.Code != "upstream_error" {
		t.Errorf("expected upstream_error, got %s", e.Code)
	}
}

func TestTrainSchedule(t *testing.T) {
	api := &mockAPI{generalFn: func(trainNo string) ([]domain.TrainTimetable, error) {
		if trainNo != "101" {
			return nil, nil
		}
		return directRows()[1:2], nil
	}}
	app := setupApp(newDeps(t, api, true))

	status, data := do(t, app, "GET", "/v1/trains/101/schedule?from=1000&to=1210&date=2024-03-01", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, data)
	}
	var sched domain.TrainSchedule
	if err := json.Unmarshal(data, &sched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sched.Stops) != 2 || sched.Stops[1].Station.County.Zh != "新竹市" {
		t.Errorf("unexpected schedule %+v", sched)
	}

	if status, _ := do(t, app, "GET", "/v1/trains/9999/schedule", ""); status != 404 {
		t.Errorf("expected 404 for unknown train, got %d", status)
	}
}

func TestTrainLiveBoard(t *testing.T) {
	api := &mockAPI{liveBoardsFn: func() ([]domain.StationLiveBoard, error) {
		return []domain.StationLiveBoard{
			{StationID: "1020", TrainNo: "101", Delay: 4, UpdateTime: now.Add(-time.Minute)},
			{StationID: "1020", TrainNo: "102", Delay: 9, UpdateTime: now},
		}, nil
	}}
	app := setupApp(newDeps(t, api, true))

	status, data := do(t, app, "GET", "/v1/trains/101/liveboard", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var body handler.LiveBoardResponse
	_ = json.Unmarshal(data, &body)
	if body.Delay == nil || *body.Delay != 4 || len(body.LiveBoards) != 1 {
		t.Errorf("unexpected live board %+v", body)
	}
}

func TestPreferences_PathRoundTrip(t *testing.T) {
	app := setupApp(newDeps(t, &mockAPI{}, true))

	status, data := do(t, app, "GET", "/v1/preferences/path", "")
	var path domain.Path
	_ = json.Unmarshal(data, &path)
	if status != 200 || !path.SameAs(domain.DefaultPath()) {
		t.Fatalf("expected default path, got %d %s", status, data)
	}

	if status, data := do(t, app, "PUT", "/v1/preferences/path", `{"from":"1210","to":"1020"}`); status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, data)
	}
	_, data = do(t, app, "GET", "/v1/preferences/path", "")
	_ = json.Unmarshal(data, &path)
	if path.ID() != "1210-1020" || path.ArrivalStation.Name.En != "Banqiao" {
		t.Errorf("unexpected saved path %+v", path)
	}

	if status, _ := do(t, app, "PUT", "/v1/preferences/path", `{"from":"1210"}`); status != 400 {
		t.Errorf("expected 400 for half a path, got %d", status)
	}
}

func TestPreferences_DateTime(t *testing.T) {
	app := setupApp(newDeps(t, &mockAPI{}, true))

	_, data := do(t, app, "GET", "/v1/preferences/datetime", "")
	if !strings.Contains(string(data), "2024-03-01T08:15:00") {
		t.Errorf("expected now when unset, got %s", data)
	}
	if status, _ := do(t, app, "PUT", "/v1/preferences/datetime", `{"date_time":"2024-03-09T18:00:00"}`); status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	_, data = do(t, app, "GET", "/v1/preferences/datetime", "")
	if !strings.Contains(string(data), "2024-03-09T18:00:00") {
		t.Errorf("expected saved date-time, got %s", data)
	}
	if status, _ := do(t, app, "PUT", "/v1/preferences/datetime", `{"date_time":"tomorrow"}`); status != 400 {
		t.Errorf("expected 400, got %d", status)
	}
}

func TestFavorites(t *testing.T) {
	app := setupApp(newDeps(t, &mockAPI{}, true))

	if status, data := do(t, app, "POST", "/v1/favorites", `{"from":"1000","to":"1210"}`); status != 201 {
		t.Fatalf("expected 201, got %d: %s", status, data)
	}
	_, data := do(t, app, "GET", "/v1/favorites/1000/1210", "")
	if !strings.Contains(string(data), `"favorite":true`) {
		t.Errorf("expected favorite, got %s", data)
	}
	_, data = do(t, app, "GET", "/v1/favorites/1210/1000", "")
	if !strings.Contains(string(data), `"favorite":false`) {
		t.Errorf("expected reverse not to be a favorite, got %s", data)
	}

	_, data = do(t, app, "GET", "/v1/favorites", "")
	var paths []domain.Path
	_ = json.Unmarshal(data, &paths)
	if len(paths) != 1 || paths[0].DepartureStation.Name.En != "Taipei" {
		t.Errorf("unexpected favorites %+v", paths)
	}

	if status, _ := do(t, app, "DELETE", "/v1/favorites/1000/1210", ""); status != 204 {
		t.Errorf("expected 204, got %d", status)
	}
	_, data = do(t, app, "GET", "/v1/favorites", "")
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("expected no favorites, got %s", data)
	}
}

func TestGraphQL_Stations(t *testing.T) {
	app := setupApp(newDeps(t, &mockAPI{}, true))

	status, data := do(t, app, "POST", "/graphql", `{"query":"{ stations { id name { en } county { zh } } }"}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var body struct {
		Data struct {
			Stations []struct {
				ID   string `json:"id"`
				Name struct {
					En string `json:"en"`
				} `json:"name"`
			} `json:"stations"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Errors) != 0 || len(body.Data.Stations) != 3 || body.Data.Stations[0].Name.En != "Taipei" {
		t.Errorf("unexpected graphql response %s", data)
	}
}

func TestGraphQL_Trips(t *testing.T) {
	api := &mockAPI{odFn: func(string, string, time.Time) ([]domain.TrainTimetable, error) {
		return directRows(), nil
	}}
	app := setupApp(newDeps(t, api, true))

	query := `{"query":"{ trips(from: \"1000\", to: \"1210\", date: \"2024-03-01\", types: [\"local\"]) { start_time transfers schedules { train { number type } } } }"}`
	status, data := do(t, app, "POST", "/graphql", query)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(data), `"number":"1201"`) || strings.Contains(string(data), `"number":"101"`) {
		t.Errorf("unexpected graphql trips %s", data)
	}
	if !strings.Contains(string(data), `"start_time":"2024-03-01T07:00:00+08:00"`) {
		t.Errorf("expected RFC3339 start time, got %s", data)
	}
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	app := setupApp(newDeps(t, &mockAPI{}, true))
	if status, _ := do(t, app, "GET", "/ws/trains/101", ""); status != fiber.StatusUpgradeRequired {
		t.Errorf("expected 426, got %d", status)
	}
}
