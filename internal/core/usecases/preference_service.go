package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/trainschedule/internal/core/domain"
	"github.com/samirrijal/trainschedule/internal/core/ports"
)

// DateTimeLayout is how the selected date-time is persisted.
const DateTimeLayout = "2006-01-02T15:04:05"

// PreferenceService stores the user's current search and favorite paths.
type PreferenceService struct {
	prefs ports.PreferenceStore
	paths ports.PathRepository
	clock ports.Clock
}

// NewPreferenceService creates a new PreferenceService.
func NewPreferenceService(prefs ports.PreferenceStore, paths ports.PathRepository, clock ports.Clock) *PreferenceService {
	return &PreferenceService{prefs: prefs, paths: paths, clock: clock}
}

// SaveCurrentPath persists the path being searched.
func (s *PreferenceService) SaveCurrentPath(ctx context.Context, path domain.Path) domain.Result[domain.Path] {
	data, err := json.Marshal(path)
	if err != nil {
		return domain.Error[domain.Path](fmt.Errorf("encode path: %w", err))
	}
	if err := s.prefs.Set(ctx, PrefCurrentPath, string(data)); err != nil {
		return domain.Error[domain.Path](fmt.Errorf("save current path: %w", err))
	}
	return domain.Success(path)
}

// CurrentPath returns the saved path, or the default path when none was saved.
func (s *PreferenceService) CurrentPath(ctx context.Context) domain.Result[domain.Path] {
	raw, err := s.prefs.Get(ctx, PrefCurrentPath)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Success(domain.DefaultPath())
	}
	if err != nil {
		return domain.Error[domain.Path](fmt.Errorf("load current path: %w", err))
	}
	var path domain.Path
	if err := json.Unmarshal([]byte(raw), &path); err != nil {
		slog.WarnContext(ctx, "discard unreadable current path", "error", err)
		return domain.Success(domain.DefaultPath())
	}
	return domain.Success(path)
}

// SaveSelectedDateTime persists the search date-time in railway time.
func (s *PreferenceService) SaveSelectedDateTime(ctx context.Context, t time.Time) domain.Result[time.Time] {
	t = t.In(domain.Taipei).Truncate(time.Second)
	if err := s.prefs.Set(ctx, PrefSelectedDateTime, t.Format(DateTimeLayout)); err != nil {
		return domain.Error[time.Time](fmt.Errorf("save selected date-time: %w", err))
	}
	return domain.Success(t)
}

// SelectedDateTime returns the saved search date-time, or now when none was saved.
func (s *PreferenceService) SelectedDateTime(ctx context.Context) domain.Result[time.Time] {
	raw, err := s.prefs.Get(ctx, PrefSelectedDateTime)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Success(s.clock.Now())
	}
	if err != nil {
		return domain.Error[time.Time](fmt.Errorf("load selected date-time: %w", err))
	}
	t, err := time.ParseInLocation(DateTimeLayout, raw, domain.Taipei)
	if err != nil {
		slog.WarnContext(ctx, "discard unreadable selected date-time", "value", raw, "error", err)
		return domain.Success(s.clock.Now())
	}
	return domain.Success(t)
}

// InsertPath adds a favorite path.
func (s *PreferenceService) InsertPath(ctx context.Context, path domain.Path) domain.Result[domain.Path] {
	if err := s.paths.Insert(ctx, path); err != nil {
		return domain.Error[domain.Path](fmt.Errorf("insert favorite %s: %w", path.ID(), err))
	}
	return domain.Success(path)
}

// DeletePath removes a favorite path.
func (s *PreferenceService) DeletePath(ctx context.Context, path domain.Path) domain.Result[domain.Path] {
	if err := s.paths.Delete(ctx, path); err != nil {
		return domain.Error[domain.Path](fmt.Errorf("delete favorite %s: %w", path.ID(), err))
	}
	return domain.Success(path)
}

// ListPaths returns every favorite path.
func (s *PreferenceService) ListPaths(ctx context.Context) domain.Result[[]domain.Path] {
	paths, err := s.paths.List(ctx)
	if err != nil {
		return domain.Error[[]domain.Path](fmt.Errorf("list favorites: %w", err))
	}
	if paths == nil {
		paths = []domain.Path{}
	}
	return domain.Success(paths)
}

// IsFavorite reports whether path is saved as a favorite.
func (s *PreferenceService) IsFavorite(ctx context.Context, path domain.Path) domain.Result[bool] {
	ok, err := s.paths.Exists(ctx, path)
	if err != nil {
		return domain.Error[bool](fmt.Errorf("check favorite %s: %w", path.ID(), err))
	}
	return domain.Success(ok)
}

// IsCurrentPathFavorite checks the saved current path.
func (s *PreferenceService) IsCurrentPathFavorite(ctx context.Context) domain.Result[bool] {
	cur := s.CurrentPath(ctx)
	if !cur.IsSuccess() {
		return domain.Convert[bool](cur)
	}
	return s.IsFavorite(ctx, cur.Data())
}

// ToggleFavorite adds path when absent and removes it otherwise, returning the new state.
func (s *PreferenceService) ToggleFavorite(ctx context.Context, path domain.Path) domain.Result[bool] {
	fav := s.IsFavorite(ctx, path)
	if !fav.IsSuccess() {
		return fav
	}
	if fav.Data() {
		return domain.MapResult(s.DeletePath(ctx, path), func(domain.Path) bool { return false })
	}
	return domain.MapResult(s.InsertPath(ctx, path), func(domain.Path) bool { return true })
}
