package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/streetrisk/internal/core/domain"
)

// RunRepo implements ports.ScoreRunRepository.
type RunRepo struct {
	db *DB
}

func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

func (r *RunRepo) Save(ctx context.Context, run *domain.ScoreRun) error {
	streets, err := json.Marshal(run.Streets)
	if err != nil {
		return fmt.Errorf("marshal streets: %w", err)
	}
	counts, err := json.Marshal(run.SampleCounts)
	if err != nil {
		return fmt.Errorf("marshal sample counts: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO score_runs (id, reason, computed_at, min_lat, min_lon, max_lat, max_lon,
		                        duration_ms, fragment_count, street_count, sample_counts, streets)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, run.ID, run.Reason, run.ComputedAt,
		run.Bounds.MinLat, run.Bounds.MinLon, run.Bounds.MaxLat, run.Bounds.MaxLon,
		run.Duration.Milliseconds(), run.FragmentCount, len(run.Streets), counts, streets)
	return err
}

func (r *RunRepo) Latest(ctx context.Context) (*domain.ScoreRun, error) {
	var (
		run            domain.ScoreRun
		durationMS     int64
		counts, street []byte
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, reason, computed_at, min_lat, min_lon, max_lat, max_lon,
		       duration_ms, fragment_count, sample_counts, streets
		FROM score_runs
		ORDER BY computed_at DESC
		LIMIT 1
	`).Scan(&run.ID, &run.Reason, &run.ComputedAt,
		&run.Bounds.MinLat, &run.Bounds.MinLon, &run.Bounds.MaxLat, &run.Bounds.MaxLon,
		&durationMS, &run.FragmentCount, &counts, &street)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	run.Duration = time.Duration(durationMS) * time.Millisecond
	if err := json.Unmarshal(counts, &run.SampleCounts); err != nil {
		return nil, fmt.Errorf("decode sample counts: %w", err)
	}
	if err := json.Unmarshal(street, &run.Streets); err != nil {
		return nil, fmt.Errorf("decode streets: %w", err)
	}
	return &run, nil
}

// Prune deletes all but the newest keep runs and returns how many were removed.
func (r *RunRepo) Prune(ctx context.Context, keep int) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		DELETE FROM score_runs
		WHERE id NOT IN (SELECT id FROM score_runs ORDER BY computed_at DESC LIMIT $1)
	`, keep)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
