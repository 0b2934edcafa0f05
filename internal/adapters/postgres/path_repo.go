package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samirrijal/trainschedule/internal/core/domain"
)

// PathRepo implements ports.PathRepository over favorite_paths.
type PathRepo struct {
	db *DB
}

// NewPathRepo creates a new PathRepo.
func NewPathRepo(db *DB) *PathRepo {
	return &PathRepo{db: db}
}

// Insert saves a favorite. Saving an existing favorite refreshes its names.
func (r *PathRepo) Insert(ctx context.Context, path domain.Path) error {
	data, err := json.Marshal(path)
	if err != nil {
		return fmt.Errorf("encode path: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO favorite_paths (departure_id, arrival_id, path)
		VALUES ($1, $2, $3)
		ON CONFLICT (departure_id, arrival_id) DO UPDATE SET path = EXCLUDED.path
	`, path.DepartureStation.ID, path.ArrivalStation.ID, data)
	return err
}

func (r *PathRepo) Delete(ctx context.Context, path domain.Path) error {
	_, err := r.db.Pool.Exec(ctx, `
		DELETE FROM favorite_paths WHERE departure_id = $1 AND arrival_id = $2
	`, path.DepartureStation.ID, path.ArrivalStation.ID)
	return err
}

// List returns favorites oldest first.
func (r *PathRepo) List(ctx context.Context) ([]domain.Path, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT path FROM favorite_paths ORDER BY created_at, departure_id, arrival_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []domain.Path
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var p domain.Path
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func (r *PathRepo) Exists(ctx context.Context, path domain.Path) (bool, error) {
	var ok bool
	err := r.db.Pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM favorite_paths WHERE departure_id = $1 AND arrival_id = $2)
	`, path.DepartureStation.ID, path.ArrivalStation.ID).Scan(&ok)
	return ok, err
}
