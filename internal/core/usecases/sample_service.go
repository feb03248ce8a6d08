package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/samirrijal/streetrisk/internal/core/domain"
	"github.com/samirrijal/streetrisk/internal/core/ports"
)

// SampleService moves point samples from a loader into the sample store.
type SampleService struct {
	repo ports.SampleRepository
}

// NewSampleService creates a new SampleService.
func NewSampleService(repo ports.SampleRepository) *SampleService {
	return &SampleService{repo: repo}
}

// Import replaces the stored samples of every loaded source. Sources that
// loaded empty are left untouched so a missing file never wipes the store.
func (s *SampleService) Import(ctx context.Context, loader ports.SampleSource) (map[domain.SampleSource]int64, error) {
	collections, err := loader.LoadSamples(ctx)
	if err != nil {
		return nil, fmt.Errorf("load samples: %w", err)
	}

	written := make(map[domain.SampleSource]int64, len(collections))
	for _, c := range collections {
		valid := ValidSamples(c.Samples)
		if dropped := len(c.Samples) - len(valid); dropped > 0 {
			slog.WarnContext(ctx, "dropped invalid samples", "source", c.Source, "dropped", dropped)
		}
		if len(valid) == 0 {
			slog.WarnContext(ctx, "no samples loaded, keeping stored rows", "source", c.Source)
			continue
		}

		n, err := s.repo.ReplaceSource(ctx, c.Source, valid)
		if err != nil {
			return written, fmt.Errorf("replace %s samples: %w", c.Source, err)
		}
		written[c.Source] = n
		slog.InfoContext(ctx, "samples imported", "source", c.Source, "rows", n)
	}
	return written, nil
}

// Counts returns the number of stored samples per source.
func (s *SampleService) Counts(ctx context.Context) (map[domain.SampleSource]int, error) {
	return s.repo.CountBySource(ctx)
}

// ValidSamples keeps samples with finite scores and coordinates on the globe.
func ValidSamples(samples []domain.PointSample) []domain.PointSample {
	out := make([]domain.PointSample, 0, len(samples))
	for _, smp := range samples {
		lat, lon := smp.Location.Lat, smp.Location.Lon
		switch {
		case math.IsNaN(smp.Score) || math.IsInf(smp.Score, 0):
		case math.IsNaN(lat) || lat < -90 || lat > 90:
		case math.IsNaN(lon) || lon < -180 || lon > 180:
		default:
			out = append(out, smp)
		}
	}
	return out
}
