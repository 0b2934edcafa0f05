package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/samirrijal/trainschedule/internal/core/domain"
)

// Stations implements ports.StationRepository.
type Stations struct {
	mu   sync.RWMutex
	byID map[string]domain.Station
}

func NewStations() *Stations {
	return &Stations{byID: make(map[string]domain.Station)}
}

func (r *Stations) UpsertBatch(_ context.Context, stations []domain.Station) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range stations {
		r.byID[s.ID] = s
	}
	return nil
}

func (r *Stations) List(context.Context) ([]domain.Station, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Station, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Stations) GetByID(_ context.Context, id string) (*domain.Station, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrStationNotFound
	}
	return &s, nil
}

// Lines implements ports.LineRepository.
type Lines struct {
	mu    sync.RWMutex
	byID  map[string]domain.Line
	order []string
}

func NewLines() *Lines {
	return &Lines{byID: make(map[string]domain.Line)}
}

func (r *Lines) UpsertBatch(_ context.Context, lines []domain.Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range lines {
		if _, ok := r.byID[l.ID]; !ok {
			r.order = append(r.order, l.ID)
		}
		r.byID[l.ID] = l
	}
	return nil
}

func (r *Lines) List(context.Context) ([]domain.Line, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Line, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out, nil
}

func (r *Lines) GetByID(_ context.Context, id string) (*domain.Line, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &l, nil
}

// Paths implements ports.PathRepository, keeping insertion order.
type Paths struct {
	mu    sync.RWMutex
	paths []domain.Path
}

func NewPaths() *Paths { return &Paths{} }

func (r *Paths) Insert(_ context.Context, path domain.Path) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.paths {
		if p.SameAs(path) {
			r.paths[i] = path
			return nil
		}
	}
	r.paths = append(r.paths, path)
	return nil
}

func (r *Paths) Delete(_ context.Context, path domain.Path) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.paths[:0]
	for _, p := range r.paths {
		if !p.SameAs(path) {
			out = append(out, p)
		}
	}
	r.paths = out
	return nil
}

func (r *Paths) List(context.Context) ([]domain.Path, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Path{}, r.paths...), nil
}

func (r *Paths) Exists(_ context.Context, path domain.Path) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.paths {
		if p.SameAs(path) {
			return true, nil
		}
	}
	return false, nil
}
