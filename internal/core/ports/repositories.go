package ports

import (
	"context"

	"github.com/samirrijal/trainschedule/internal/core/domain"
)

// StationRepository persists the station catalog.
type StationRepository interface {
	UpsertBatch(ctx context.Context, stations []domain.Station) error
	// List returns every station ordered by id ascending.
	List(ctx context.Context) ([]domain.Station, error)
	GetByID(ctx context.Context, id string) (*domain.Station, error)
}

// LineRepository persists lines and their ordered station membership.
type LineRepository interface {
	UpsertBatch(ctx context.Context, lines []domain.Line) error
	List(ctx context.Context) ([]domain.Line, error)
	GetByID(ctx context.Context, id string) (*domain.Line, error)
}

// PathRepository persists favorite paths. Identity is the ordered station-id pair.
type PathRepository interface {
	Insert(ctx context.Context, path domain.Path) error
	Delete(ctx context.Context, path domain.Path) error
	List(ctx context.Context) ([]domain.Path, error)
	Exists(ctx context.Context, path domain.Path) (bool, error)
}

// PreferenceStore is a string key-value store. Get returns domain.ErrNotFound for
// missing keys.
type PreferenceStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
