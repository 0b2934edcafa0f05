package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/trainschedule/internal/core/domain"
)

// StationRepo implements ports.StationRepository with pgx.
type StationRepo struct {
	db *DB
}

// NewStationRepo creates a new StationRepo.
func NewStationRepo(db *DB) *StationRepo {
	return &StationRepo{db: db}
}

const upsertStationSQL = `
	INSERT INTO stations (station_id, name_zh, name_en, county_zh, county_en, updated_at)
	VALUES ($1, $2, $3, $4, $5, now())
	ON CONFLICT (station_id) DO UPDATE
	SET name_zh = EXCLUDED.name_zh, name_en = EXCLUDED.name_en,
	    county_zh = EXCLUDED.county_zh, county_en = EXCLUDED.county_en,
	    updated_at = now()
`

// UpsertBatch inserts or updates many stations in one transaction.
func (r *StationRepo) UpsertBatch(ctx context.Context, stations []domain.Station) error {
	if len(stations) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, s := range stations {
			batch.Queue(upsertStationSQL, s.ID, s.Name.Zh, s.Name.En, s.County.Zh, s.County.En)
		}
		br := tx.SendBatch(ctx, batch)
		for range stations {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("batch exec: %w", err)
			}
		}
		return br.Close()
	})
}

// List returns every station ordered by id.
func (r *StationRepo) List(ctx context.Context) ([]domain.Station, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT station_id, name_zh, name_en, county_zh, county_en
		FROM stations ORDER BY station_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []domain.Station
	for rows.Next() {
		var s domain.Station
		if err := rows.Scan(&s.ID, &s.Name.Zh, &s.Name.En, &s.County.Zh, &s.County.En); err != nil {
			return nil, err
		}
		stations = append(stations, s)
	}
	return stations, rows.Err()
}

// GetByID returns one station.
func (r *StationRepo) GetByID(ctx context.Context, id string) (*domain.Station, error) {
	var s domain.Station
	err := r.db.Pool.QueryRow(ctx, `
		SELECT station_id, name_zh, name_en, county_zh, county_en
		FROM stations WHERE station_id = $1
	`, id).Scan(&s.ID, &s.Name.Zh, &s.Name.En, &s.County.Zh, &s.County.En)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrStationNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
