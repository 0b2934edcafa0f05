package tdx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/trainschedule/internal/adapters/tdx"
	"github.com/samirrijal/trainschedule/internal/core/domain"
)

func newServer(t *testing.T, routes map[string]string) (*httptest.Server, *[]*http.Request) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []*http.Request
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		mu.Lock()
		seen = append(seen, r)
		mu.Unlock()
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func client(srv *httptest.Server) *tdx.Client {
	return tdx.New(tdx.Config{BaseURL: srv.URL, ClientID: "id", ClientSecret: "secret", Timeout: 5 * time.Second})
}

func TestFetchToken(t *testing.T) {
	srv, seen := newServer(t, map[string]string{
		"/auth/realms/TDXConnect/protocol/openid-connect/token": `{"access_token":"abc","expires_in":86400,"token_type":"Bearer"}`,
	})

	grant, err := client(srv).FetchToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if grant.AccessToken != "abc" || grant.ExpiresIn != 86400 {
		t.Errorf("unexpected grant %+v", grant)
	}
	req := (*seen)[0]
	if req.Method != http.MethodPost {
		t.Errorf("expected POST, got %s", req.Method)
	}
	if got := req.PostForm.Get("grant_type"); got != "client_credentials" {
		t.Errorf("expected client_credentials grant, got %q", got)
	}
	if got := req.PostForm.Get("client_id"); got != "id" {
		t.Errorf("expected client id, got %q", got)
	}
}

func TestFetchToken_Status(t *testing.T) {
	srv, _ := newServer(t, map[string]string{})
	if _, err := client(srv).FetchToken(context.Background()); err == nil {
		t.Fatal("expected error on 404")
	}
}

func TestGetStations(t *testing.T) {
	srv, seen := newServer(t, map[string]string{
		"/api/basic/v3/Rail/TRA/Station": `{"Stations":[
			{"StationID":"1000","StationName":{"Zh_tw":"臺北","En":"Taipei"},"StationAddress":"100230臺北市中正區黎明里北平西路3號"},
			{"StationID":"1210","StationName":{"Zh_tw":"新竹","En":"Hsinchu"},"StationAddress":"300195新竹市東區榮光里中華路2段445號"},
			{"StationID":"7360","StationName":{"Zh_tw":"宜蘭","En":"Yilan"},"StationAddress":"260宜蘭縣宜蘭市光復路1號"}
		]}`,
	})

	stations, err := client(srv).GetStations(context.Background(), "Bearer abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stations) != 3 {
		t.Fatalf("expected 3 stations, got %d", len(stations))
	}
	if stations[0].Name.Zh != "臺北" || stations[0].County.Zh != "臺北市" {
		t.Errorf("unexpected station %+v", stations[0])
	}
	if stations[2].County.En != "Yilan County" {
		t.Errorf("expected Yilan County, got %+v", stations[2].County)
	}
	req := (*seen)[0]
	if got := req.Header.Get("Authorization"); got != "Bearer abc" {
		t.Errorf("expected authorization header, got %q", got)
	}
	if got := req.URL.Query().Get("$format"); got != "JSON" {
		t.Errorf("expected $format=JSON, got %q", got)
	}
}

func TestGetLines(t *testing.T) {
	srv, _ := newServer(t, map[string]string{
		"/api/basic/v3/Rail/TRA/Line": `{"Lines":[{"LineID":"WL","LineNameZh":"西部幹線","LineNameEn":"Western Line"},{"LineID":"PX","LineNameZh":"平溪線","LineNameEn":"Pingxi Line"}]}`,
		"/api/basic/v3/Rail/TRA/StationOfLine": `{"StationOfLines":[{"LineID":"WL","Stations":[
			{"Sequence":2,"StationID":"1210","StationName":{"Zh_tw":"新竹","En":"Hsinchu"}},
			{"Sequence":1,"StationID":"1000","StationName":{"Zh_tw":"臺北","En":"Taipei"}}
		]}]}`,
	})

	lines, err := client(srv).GetLines(context.Background(), "Bearer abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	wl := lines[0]
	if wl.Name.En != "Western Line" || len(wl.Stations) != 2 || wl.Stations[0].ID != "1000" {
		t.Errorf("unexpected line %+v", wl)
	}
	if len(lines[1].Stations) != 0 {
		t.Errorf("expected no stations for PX, got %d", len(lines[1].Stations))
	}
}

func TestGetODTimetables(t *testing.T) {
	srv, _ := newServer(t, map[string]string{
		"/api/basic/v3/Rail/TRA/DailyTrainTimetable/OD/1000/to/1210/2024-03-01": `{"TrainTimetables":[{
			"TrainInfo":{"TrainNo":"123","TrainTypeName":{"Zh_tw":"自強(3000)","En":"Tze-Chiang"},"OverNightStationID":""},
			"StopTimes":[
				{"StopSequence":1,"StationID":"1000","StationName":{"Zh_tw":"臺北","En":"Taipei"},"ArrivalTime":"08:00","DepartureTime":"08:00"},
				{"StopSequence":2,"StationID":"1210","StationName":{"Zh_tw":"新竹","En":"Hsinchu"},"ArrivalTime":"09:10","DepartureTime":"09:10"}
			]}]}`,
	})

	date := time.Date(2024, 3, 1, 0, 0, 0, 0, domain.Taipei)
	rows, err := client(srv).GetODTimetables(context.Background(), "Bearer abc", "1000", "1210", date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Info.Number != "123" || rows[0].Info.TypeName.Zh != "自強(3000)" {
		t.Errorf("unexpected info %+v", rows[0].Info)
	}
	if rows[0].StopTimes[1].ArrivalTime != "09:10" {
		t.Errorf("unexpected stops %+v", rows[0].StopTimes)
	}
}

func TestGetODFares(t *testing.T) {
	srv, _ := newServer(t, map[string]string{
		"/api/basic/v3/Rail/TRA/ODFare/1000/to/1210": `{"ODFares":[{"Direction":0,"TrainType":3,"Fares":[{"TicketType":1,"FareClass":1,"Price":177}]}]}`,
	})

	fares, err := client(srv).GetODFares(context.Background(), "Bearer abc", "1000", "1210")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := domain.AdultFare(fares, domain.TrainTypeTzeChiang); got != 177 {
		t.Errorf("expected 177, got %d", got)
	}
}

func TestGetStationLiveBoards(t *testing.T) {
	srv, _ := newServer(t, map[string]string{
		"/api/basic/v3/Rail/TRA/StationLiveBoard": `{"StationLiveBoards":[
			{"StationID":"1080","TrainNo":"1234","DelayTime":3,"UpdateTime":"2024-03-01T08:25:00+08:00"},
			{"StationID":"1080","TrainNo":"1235","DelayTime":0,"UpdateTime":"garbage"}
		]}`,
	})

	boards, err := client(srv).GetStationLiveBoards(context.Background(), "Bearer abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(boards) != 1 {
		t.Fatalf("expected unparseable row to be skipped, got %d", len(boards))
	}
	want := time.Date(2024, 3, 1, 8, 25, 0, 0, domain.Taipei)
	if !boards[0].UpdateTime.Equal(want) || boards[0].Delay != 3 {
		t.Errorf("unexpected board %+v", boards[0])
	}
}

func TestGet_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := client(srv).GetTodayTimetables(context.Background(), "Bearer abc"); err == nil {
		t.Fatal("expected error on 429")
	}
}
