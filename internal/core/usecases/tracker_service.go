package usecases

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/trainschedule/internal/core/domain"
	"github.com/samirrijal/trainschedule/internal/core/ports"
	"github.com/samirrijal/trainschedule/internal/pkg/metrics"
	"github.com/samirrijal/trainschedule/internal/pkg/telemetry"
)

// TrackerConfig tunes live-board polling.
type TrackerConfig struct {
	MinInterval time.Duration
	MaxInterval time.Duration
	// Freshness is the maximum distance between a row's report time and now.
	Freshness time.Duration
}

// DefaultTrackerConfig polls every 20-30 seconds and trusts rows up to 5 hours old.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		MinInterval: 20 * time.Second,
		MaxInterval: 30 * time.Second,
		Freshness:   5 * time.Hour,
	}
}

// TrackerService follows a running train on the live-board feed.
type TrackerService struct {
	api       ports.TimetableAPI
	tokens    ports.TokenProvider
	clock     ports.Clock
	publisher ports.TrackingPublisher
	cfg       TrackerConfig
}

// NewTrackerService creates a new TrackerService. publisher may be nil.
func NewTrackerService(
	api ports.TimetableAPI,
	tokens ports.TokenProvider,
	clock ports.Clock,
	publisher ports.TrackingPublisher,
	cfg TrackerConfig,
) *TrackerService {
	if cfg.MaxInterval < cfg.MinInterval {
		cfg.MaxInterval = cfg.MinInterval
	}
	return &TrackerService{api: api, tokens: tokens, clock: clock, publisher: publisher, cfg: cfg}
}

// FetchLiveBoardOfTrain returns fresh live-board rows for trainNo. Feed errors
// yield an empty slice.
func (s *TrackerService) FetchLiveBoardOfTrain(ctx context.Context, trainNo string) []domain.StationLiveBoard {
	metrics.LiveBoardPolls.Inc()
	token := s.tokens.AccessToken(ctx)
	if token == "" {
		metrics.LiveBoardPollErrors.Inc()
		return []domain.StationLiveBoard{}
	}
	boards, err := s.api.GetStationLiveBoards(ctx, token)
	if err != nil {
		metrics.LiveBoardPollErrors.Inc()
		slog.WarnContext(ctx, "live board poll failed", "train", trainNo, "error", err)
		return []domain.StationLiveBoard{}
	}

	now := s.clock.Now()
	out := []domain.StationLiveBoard{}
	for _, b := range boards {
		if b.TrainNo != trainNo {
			continue
		}
		age := now.Sub(b.UpdateTime)
		if age < 0 {
			age = -age
		}
		if age < s.cfg.Freshness {
			out = append(out, b)
		}
	}
	return out
}

// TrainDelay returns the latest reported delay in minutes, if any row is fresh.
func (s *TrackerService) TrainDelay(ctx context.Context, trainNo string) (int, bool) {
	boards := s.FetchLiveBoardOfTrain(ctx, trainNo)
	if len(boards) == 0 {
		return 0, false
	}
	return boards[0].Delay, true
}

// Track follows schedule until it finishes or ctx is cancelled, emitting a state
// after every check. The channel is closed when tracking stops. A train that has
// not started yet produces a single NotYet state.
func (s *TrackerService) Track(ctx context.Context, schedule domain.TrainSchedule) <-chan domain.TrackingState {
	ch := make(chan domain.TrackingState, 1)
	go s.run(ctx, schedule, ch)
	return ch
}

func (s *TrackerService) run(ctx context.Context, schedule domain.TrainSchedule, ch chan<- domain.TrackingState) {
	defer close(ch)
	ctx, span := tracer.Start(ctx, "TrackerService.Track")
	defer span.End()
	metrics.ActiveTrackers.Inc()
	defer metrics.ActiveTrackers.Dec()

	trainNo := schedule.Train.Number
	state := domain.TrackingState{
		SessionID:  uuid.NewString(),
		TrainNo:    trainNo,
		TrainIndex: -1,
	}
	observed := false
	span.SetAttributes(telemetry.AttrTrainNo.String(trainNo))
	defer func() { span.SetAttributes(telemetry.AttrTrackStatus.String(state.Status.String())) }()

	settle := func() {
		now := s.clock.Now()
		state.UpdatedAt = now
		state.Status = domain.ComputeRunningStatus(schedule, state.Delay, now)
		if state.Status == domain.StatusFinish && !observed {
			state.TrainIndex = len(schedule.Stops) - 1
		}
	}

	settle()
	if !s.emit(ctx, ch, state) {
		return
	}

	for state.Status == domain.StatusRunning {
		boards := s.FetchLiveBoardOfTrain(ctx, trainNo)
		if ctx.Err() != nil {
			return
		}
		if len(boards) > 0 {
			latest := boards[0]
			observed = true
			state.Delay = latest.Delay
			state.LiveBoards = boards
			if idx := schedule.StopIndex(latest.StationID); idx >= 0 {
				state.TrainIndex = idx
			}
		}
		settle()
		if !s.emit(ctx, ch, state) {
			return
		}
		if state.Status != domain.StatusRunning {
			return
		}
		if !s.sleep(ctx) {
			return
		}
	}
}

func (s *TrackerService) emit(ctx context.Context, ch chan<- domain.TrackingState, state domain.TrackingState) bool {
	if s.publisher != nil {
		st := state
		if err := s.publisher.PublishTrackingState(ctx, &st); err != nil {
			slog.WarnContext(ctx, "publish tracking state", "train", state.TrainNo, "error", err)
		}
	}
	select {
	case ch <- state:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *TrackerService) sleep(ctx context.Context) bool {
	d := s.cfg.MinInterval
	if spread := s.cfg.MaxInterval - s.cfg.MinInterval; spread > 0 {
		d += rand.N(spread + 1)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
