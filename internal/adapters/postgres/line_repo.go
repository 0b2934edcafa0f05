package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/trainschedule/internal/core/domain"
)

// LineRepo implements ports.LineRepository. Line membership lives in
// line_stations keyed by sequence.
type LineRepo struct {
	db *DB
}

// NewLineRepo creates a new LineRepo.
func NewLineRepo(db *DB) *LineRepo {
	return &LineRepo{db: db}
}

// UpsertBatch replaces each line and its station sequence in one transaction.
func (r *LineRepo) UpsertBatch(ctx context.Context, lines []domain.Line) error {
	if len(lines) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, l := range lines {
			batch.Queue(`
				INSERT INTO lines (line_id, name_zh, name_en, updated_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (line_id) DO UPDATE
				SET name_zh = EXCLUDED.name_zh, name_en = EXCLUDED.name_en, updated_at = now()
			`, l.ID, l.Name.Zh, l.Name.En)
			batch.Queue(`DELETE FROM line_stations WHERE line_id = $1`, l.ID)
			for i, s := range l.Stations {
				batch.Queue(`
					INSERT INTO line_stations (line_id, seq, station_id, name_zh, name_en)
					VALUES ($1, $2, $3, $4, $5)
				`, l.ID, i, s.ID, s.Name.Zh, s.Name.En)
			}
		}
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("batch exec: %w", err)
			}
		}
		return br.Close()
	})
}

// List returns every line with its stations.
func (r *LineRepo) List(ctx context.Context) ([]domain.Line, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT line_id, name_zh, name_en FROM lines ORDER BY line_id`)
	if err != nil {
		return nil, err
	}
	var lines []domain.Line
	index := make(map[string]int)
	for rows.Next() {
		var l domain.Line
		if err := rows.Scan(&l.ID, &l.Name.Zh, &l.Name.En); err != nil {
			rows.Close()
			return nil, err
		}
		index[l.ID] = len(lines)
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	members, err := r.db.Pool.Query(ctx, `
		SELECT line_id, station_id, name_zh, name_en
		FROM line_stations ORDER BY line_id, seq
	`)
	if err != nil {
		return nil, err
	}
	defer members.Close()
	for members.Next() {
		var (
			lineID string
			s      domain.Station
		)
		if err := members.Scan(&lineID, &s.ID, &s.Name.Zh, &s.Name.En); err != nil {
			return nil, err
		}
		if i, ok := index[lineID]; ok {
			lines[i].Stations = append(lines[i].Stations, s)
		}
	}
	return lines, members.Err()
}

// GetByID returns one line with its stations in sequence, enriched with the
// station catalog's county when known.
func (r *LineRepo) GetByID(ctx context.Context, id string) (*domain.Line, error) {
	var l domain.Line
	err := r.db.Pool.QueryRow(ctx, `SELECT line_id, name_zh, name_en FROM lines WHERE line_id = $1`, id).
		Scan(&l.ID, &l.Name.Zh, &l.Name.En)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: line %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT ls.station_id, ls.name_zh, ls.name_en,
		       COALESCE(s.county_zh, ''), COALESCE(s.county_en, '')
		FROM line_stations ls
		LEFT JOIN stations s ON s.station_id = ls.station_id
		WHERE ls.line_id = $1
		ORDER BY ls.seq
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s domain.Station
		if err := rows.Scan(&s.ID, &s.Name.Zh, &s.Name.En, &s.County.Zh, &s.County.En); err != nil {
			return nil, err
		}
		l.Stations = append(l.Stations, s)
	}
	return &l, rows.Err()
}
