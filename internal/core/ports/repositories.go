package ports

import (
	"context"

	"github.com/samirrijal/streetrisk/internal/core/domain"
)

// SampleRepository persists point samples.
type SampleRepository interface {
	// ReplaceSource atomically swaps every stored sample of one source.
	ReplaceSource(ctx context.Context, source domain.SampleSource, samples []domain.PointSample) (int64, error)
	ListBySource(ctx context.Context, source domain.SampleSource) ([]domain.PointSample, error)
	CountBySource(ctx context.Context) (map[domain.SampleSource]int, error)
}

// ScoreRunRepository persists completed scoring passes.
type ScoreRunRepository interface {
	Save(ctx context.Context, run *domain.ScoreRun) error
	// Latest returns the most recent run, or nil when none exists.
	Latest(ctx context.Context) (*domain.ScoreRun, error)
}
