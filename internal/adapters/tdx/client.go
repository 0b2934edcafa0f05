// Package tdx is the client for the Transport Data eXchange rail API.
package tdx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	resty "gopkg.in/resty.v1"

	"github.com/samirrijal/trainschedule/internal/core/domain"
	"github.com/samirrijal/trainschedule/internal/pkg/metrics"
)

const (
	DefaultBaseURL = "https://tdx.transportdata.tw"
	tokenPath      = "/auth/realms/TDXConnect/protocol/openid-connect/token"
	railPath       = "/api/basic/v3/Rail/TRA"
)

// Config holds the API credentials and endpoint.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client implements ports.TokenSource and ports.TimetableAPI.
type Client struct {
	http         *resty.Client
	clientID     string
	clientSecret string
}

// New creates a new API client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	http := resty.New().
		SetHostURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: http, clientID: cfg.ClientID, clientSecret: cfg.ClientSecret}
}

// FetchToken requests a client-credentials access token.
func (c *Client) FetchToken(ctx context.Context) (domain.TokenGrant, error) {
	var out tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     c.clientID,
			"client_secret": c.clientSecret,
		}).
		Post(tokenPath)
	if err != nil {
		return domain.TokenGrant{}, fmt.Errorf("token request: %w", err)
	}
	if resp.IsError() {
		return domain.TokenGrant{}, fmt.Errorf("token request: status %d", resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return domain.TokenGrant{}, fmt.Errorf("decode token: %w", err)
	}
	if out.AccessToken == "" {
		return domain.TokenGrant{}, fmt.Errorf("token response without access_token")
	}
	return domain.TokenGrant{AccessToken: out.AccessToken, ExpiresIn: out.ExpiresIn}, nil
}

// get calls a rail endpoint and decodes its JSON body into out.
func (c *Client) get(ctx context.Context, token, endpoint, path string, out any) error {
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", token).
		SetQueryParam("$format", "JSON").
		Get(railPath + path)
	metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequestErrors.WithLabelValues(endpoint).Inc()
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	if resp.IsError() {
		metrics.APIRequestErrors.WithLabelValues(endpoint).Inc()
		return fmt.Errorf("%s: status %d", endpoint, resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		metrics.APIRequestErrors.WithLabelValues(endpoint).Inc()
		return fmt.Errorf("%s: decode: %w", endpoint, err)
	}
	return nil
}

// GetStations returns every station with its county derived from the address.
func (c *Client) GetStations(ctx context.Context, token string) ([]domain.Station, error) {
	var body stationsResponse
	if err := c.get(ctx, token, "station", "/Station", &body); err != nil {
		return nil, err
	}
	out := make([]domain.Station, 0, len(body.Stations))
	for _, s := range body.Stations {
		out = append(out, s.toDomain())
	}
	return out, nil
}

// GetLines returns every line joined with its ordered stations.
func (c *Client) GetLines(ctx context.Context, token string) ([]domain.Line, error) {
	var (
		lines   linesResponse
		members stationOfLineResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.get(gctx, token, "line", "/Line", &lines) })
	g.Go(func() error { return c.get(gctx, token, "station_of_line", "/StationOfLine", &members) })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return joinLines(lines.Lines, members.StationOfLines), nil
}

// GetODTimetables returns the daily timetable rows between two stations on date.
func (c *Client) GetODTimetables(ctx context.Context, token, fromID, toID string, date time.Time) ([]domain.TrainTimetable, error) {
	var body timetablesResponse
	path := fmt.Sprintf("/DailyTrainTimetable/OD/%s/to/%s/%s", fromID, toID, date.Format(domain.DateLayout))
	if err := c.get(ctx, token, "od_timetable", path, &body); err != nil {
		return nil, err
	}
	return body.toDomain(), nil
}

// GetGeneralTimetables returns the general timetable of one train number.
func (c *Client) GetGeneralTimetables(ctx context.Context, token, trainNo string) ([]domain.TrainTimetable, error) {
	var body timetablesResponse
	if err := c.get(ctx, token, "general_timetable", "/GeneralTrainTimetable/TrainNo/"+trainNo, &body); err != nil {
		return nil, err
	}
	return body.toDomain(), nil
}

// GetTodayTimetables returns today's timetable of every train.
func (c *Client) GetTodayTimetables(ctx context.Context, token string) ([]domain.TrainTimetable, error) {
	var body timetablesResponse
	if err := c.get(ctx, token, "today_timetable", "/DailyTrainTimetable/Today", &body); err != nil {
		return nil, err
	}
	return body.toDomain(), nil
}

// GetODFares returns fares between two stations grouped by train type.
func (c *Client) GetODFares(ctx context.Context, token, fromID, toID string) ([]domain.ODFare, error) {
	var body faresResponse
	if err := c.get(ctx, token, "od_fare", fmt.Sprintf("/ODFare/%s/to/%s", fromID, toID), &body); err != nil {
		return nil, err
	}
	out := make([]domain.ODFare, 0, len(body.ODFares))
	for _, f := range body.ODFares {
		fares := make([]domain.Fare, 0, len(f.Fares))
		for _, p := range f.Fares {
			fares = append(fares, domain.Fare{TicketType: p.TicketType, FareClass: p.FareClass, Price: p.Price})
		}
		out = append(out, domain.ODFare{Direction: f.Direction, TrainType: f.TrainType, Fares: fares})
	}
	return out, nil
}

// GetStationLiveBoards returns the live board of every station.
func (c *Client) GetStationLiveBoards(ctx context.Context, token string) ([]domain.StationLiveBoard, error) {
	var body liveBoardsResponse
	if err := c.get(ctx, token, "live_board", "/StationLiveBoard", &body); err != nil {
		return nil, err
	}
	out := make([]domain.StationLiveBoard, 0, len(body.StationLiveBoards))
	for _, b := range body.StationLiveBoards {
		updated, err := time.Parse(time.RFC3339, b.UpdateTime)
		if err != nil {
			slog.WarnContext(ctx, "skip live board row", "train", b.TrainNo, "update_time", b.UpdateTime)
			continue
		}
		out = append(out, domain.StationLiveBoard{
			StationID:  b.StationID,
			TrainNo:    b.TrainNo,
			Delay:      b.DelayTime,
			UpdateTime: updated.In(domain.Taipei),
		})
	}
	return out, nil
}
