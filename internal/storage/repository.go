package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"custos/internal/core"

	_ "modernc.org/sqlite"
)

// LoadRecord is the metadata of one dashboard load. Cost rows are never
// stored.
type LoadRecord struct {
	ID         string              `json:"id"`
	Source     string              `json:"source"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	Outcome    string              `json:"outcome"`
	Reason     string              `json:"reason,omitempty"`
	Stats      core.NormalizeStats `json:"stats"`
}

// Duration returns how long the load took.
func (r LoadRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// RecordLoad stores rec, assigning an ID when it has none.
func (r *SQLiteRepository) RecordLoad(ctx context.Context, rec LoadRecord) (LoadRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = r.now()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = rec.FinishedAt
	}

	const q = `INSERT INTO load_history (
		id, source, started_at, finished_at, outcome, reason,
		input_rows, output_rows, dropped_invalid_date, dropped_missing_cost_center,
		defaulted_values, filled_plants
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	s := rec.Stats
	_, err := r.db.ExecContext(ctx, q,
		rec.ID, rec.Source, rec.StartedAt.UTC(), rec.FinishedAt.UTC(), rec.Outcome, rec.Reason,
		s.InputRows, s.OutputRows, s.DroppedInvalidDate, s.DroppedMissingCostCenter,
		s.DefaultedValues, s.FilledPlants,
	)
	if err != nil {
		return LoadRecord{}, fmt.Errorf("insert load record: %w", err)
	}
	return rec, nil
}

// RecentLoads returns up to limit records, newest first.
func (r *SQLiteRepository) RecentLoads(ctx context.Context, limit int) ([]LoadRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	const q = `SELECT id, source, started_at, finished_at, outcome, reason,
		input_rows, output_rows, dropped_invalid_date, dropped_missing_cost_center,
		defaulted_values, filled_plants
	FROM load_history ORDER BY started_at DESC, rowid DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query load history: %w", err)
	}
	defer rows.Close()

	out := make([]LoadRecord, 0, limit)
	for rows.Next() {
		var rec LoadRecord
		s := &rec.Stats
		if err := rows.Scan(
			&rec.ID, &rec.Source, &rec.StartedAt, &rec.FinishedAt, &rec.Outcome, &rec.Reason,
			&s.InputRows, &s.OutputRows, &s.DroppedInvalidDate, &s.DroppedMissingCostCenter,
			&s.DefaultedValues, &s.FilledPlants,
		); err != nil {
			return nil, fmt.Errorf("scan load record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate load history: %w", err)
	}
	return out, nil
}

// PruneBefore deletes records started before t and returns how many went.
func (r *SQLiteRepository) PruneBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM load_history WHERE started_at < ?`, t.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune load history: %w", err)
	}
	return res.RowsAffected()
}
