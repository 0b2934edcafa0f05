package ports

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/samirrijal/trainschedule/internal/core/domain"
)

// TokenSource obtains a new access token from the remote API.
type TokenSource interface {
	FetchToken(ctx context.Context) (domain.TokenGrant, error)
}

// TimetableAPI is the remote timetable API. Every call takes the bearer token as
// returned by the token manager.
type TimetableAPI interface {
	GetStations(ctx context.Context, token string) ([]domain.Station, error)
	GetLines(ctx context.Context, token string) ([]domain.Line, error)
	GetODTimetables(ctx context.Context, token, fromID, toID string, date time.Time) ([]domain.TrainTimetable, error)
	GetGeneralTimetables(ctx context.Context, token, trainNo string) ([]domain.TrainTimetable, error)
	GetTodayTimetables(ctx context.Context, token string) ([]domain.TrainTimetable, error)
	GetODFares(ctx context.Context, token, fromID, toID string) ([]domain.ODFare, error)
	GetStationLiveBoards(ctx context.Context, token string) ([]domain.StationLiveBoard, error)
}

// DocumentFetcher retrieves and parses an HTML page.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// ConnectivityChecker reports whether the network is reachable right now.
type ConnectivityChecker interface {
	IsConnected(ctx context.Context) bool
}

// Clock supplies wall-clock time.
type Clock interface {
	Now() time.Time
}

// TrackingPublisher fans out live tracking observations.
type TrackingPublisher interface {
	PublishTrackingState(ctx context.Context, state *domain.TrackingState) error
}

// TrackingSubscriber receives tracking observations for one train.
type TrackingSubscriber interface {
	SubscribeTracking(ctx context.Context, trainNo string, handler func(ctx context.Context, state *domain.TrackingState) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// TokenProvider hands out the current bearer token. An empty string means no
// token could be obtained.
type TokenProvider interface {
	AccessToken(ctx context.Context) string
}

// StationCatalog exposes the full station list ordered by id.
type StationCatalog interface {
	AllStations(ctx context.Context) ([]domain.Station, error)
}
