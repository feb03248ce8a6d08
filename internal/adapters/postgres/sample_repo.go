package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/streetrisk/internal/core/domain"
)

const sampleBatchSize = 500

// SampleRepo implements ports.SampleRepository and ports.SampleSource.
type SampleRepo struct {
	db *DB
}

func NewSampleRepo(db *DB) *SampleRepo {
	return &SampleRepo{db: db}
}

// ReplaceSource deletes every sample of source and inserts samples in one
// transaction.
func (r *SampleRepo) ReplaceSource(ctx context.Context, source domain.SampleSource, samples []domain.PointSample) (int64, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM point_samples WHERE source = $1`, string(source)); err != nil {
		return 0, fmt.Errorf("delete %s samples: %w", source, err)
	}

	var total int64
	batch := &pgx.Batch{}
	for _, s := range samples {
		batch.Queue(`
			INSERT INTO point_samples (source, location, score)
			VALUES ($1, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, $4)
		`, string(source), s.Location.Lon, s.Location.Lat, s.Score)

		if batch.Len() >= sampleBatchSize {
			if err := flushBatch(ctx, tx, batch); err != nil {
				return 0, err
			}
			total += int64(batch.Len())
			batch = &pgx.Batch{}
		}
	}
	if batch.Len() > 0 {
		if err := flushBatch(ctx, tx, batch); err != nil {
			return 0, err
		}
		total += int64(batch.Len())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}

func (r *SampleRepo) ListBySource(ctx context.Context, source domain.SampleSource) ([]domain.PointSample, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT ST_Y(location::geometry) AS lat, ST_X(location::geometry) AS lon, score
		FROM point_samples
		WHERE source = $1
		ORDER BY id
	`, string(source))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []domain.PointSample
	for rows.Next() {
		s := domain.PointSample{Source: source}
		if err := rows.Scan(&s.Location.Lat, &s.Location.Lon, &s.Score); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

func (r *SampleRepo) CountBySource(ctx context.Context) (map[domain.SampleSource]int, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT source, COUNT(*) FROM point_samples GROUP BY source`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.SampleSource]int)
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, err
		}
		counts[domain.SampleSource(source)] = n
	}
	return counts, rows.Err()
}

// LoadSamples returns one collection per known source in scoring order.
func (r *SampleRepo) LoadSamples(ctx context.Context) ([]domain.SampleCollection, error) {
	out := make([]domain.SampleCollection, 0, len(domain.KnownSources))
	for _, source := range domain.KnownSources {
		samples, err := r.ListBySource(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("list %s samples: %w", source, err)
		}
		out = append(out, domain.SampleCollection{Source: source, Samples: samples})
	}
	return out, nil
}

func flushBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch item %d: %w", i, err)
		}
	}
	return nil
}
