package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/streetrisk/internal/core/domain"
	"github.com/samirrijal/streetrisk/internal/core/ports"
	"github.com/samirrijal/streetrisk/internal/core/scoring"
	"github.com/samirrijal/streetrisk/internal/pkg/metrics"
	"github.com/samirrijal/streetrisk/internal/pkg/telemetry"
)

// ErrRescoreUnavailable is returned when no event publisher is configured.
var ErrRescoreUnavailable = errors.New("rescore requests are unavailable")

// StreetServiceConfig fixes the scored area and scoring parameters.
type StreetServiceConfig struct {
	Bounds   domain.Bounds
	Options  scoring.Options
	CacheTTL int // seconds; zero disables caching
}

// StreetServiceOption configures optional StreetService collaborators.
type StreetServiceOption func(*StreetService)

// WithCache enables the read-through street cache.
func WithCache(cache ports.CacheService) StreetServiceOption {
	return func(s *StreetService) { s.cache = cache }
}

// WithRunRepository persists every rescore pass.
func WithRunRepository(runs ports.ScoreRunRepository) StreetServiceOption {
	return func(s *StreetService) { s.runs = runs }
}

// WithPublisher publishes run summaries and rescore requests.
func WithPublisher(pub ports.EventPublisher) StreetServiceOption {
	return func(s *StreetService) { s.publisher = pub }
}

// StreetService produces scored streets for the configured area.
type StreetService struct {
	geometry  ports.GeometryProvider
	samples   ports.SampleSource
	cache     ports.CacheService
	runs      ports.ScoreRunRepository
	publisher ports.EventPublisher
	cfg       StreetServiceConfig
	tracer    trace.Tracer
	now       func() time.Time
}

// NewStreetService creates a new StreetService.
func NewStreetService(geometry ports.GeometryProvider, samples ports.SampleSource, cfg StreetServiceConfig, opts ...StreetServiceOption) *StreetService {
	s := &StreetService{
		geometry: geometry,
		samples:  samples,
		cfg:      cfg,
		tracer:   telemetry.Tracer(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bounds returns the scored bounding box.
func (s *StreetService) Bounds() domain.Bounds {
	return s.cfg.Bounds
}

func (s *StreetService) cacheKey() string {
	b := s.cfg.Bounds
	return fmt.Sprintf("streets:%.5f:%.5f:%.5f:%.5f:%.0f",
		b.MinLat, b.MinLon, b.MaxLat, b.MaxLon, s.cfg.Options.Threshold())
}

// Streets returns the scored streets, from cache when possible. A geometry
// failure yields an empty list rather than an error. Results computed while
// geometry or samples were unavailable are not cached.
func (s *StreetService) Streets(ctx context.Context) ([]domain.Street, error) {
	if streets, ok := s.cached(ctx); ok {
		return streets, nil
	}

	run, degraded := s.compute(ctx, "request")
	if !degraded {
		s.store(ctx, run.Streets)
	}
	return run.Streets, nil
}

// Rescore recomputes the streets, refreshes the cache, persists the run and
// publishes its summary. Persistence and publish failures are only logged.
func (s *StreetService) Rescore(ctx context.Context, reason string) *domain.ScoreRun {
	run, degraded := s.compute(ctx, reason)
	if degraded {
		return run
	}
	s.store(ctx, run.Streets)

	if s.runs != nil {
		if err := s.runs.Save(ctx, run); err != nil {
			slog.ErrorContext(ctx, "save score run", "run_id", run.ID, "error", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishStreetsScored(ctx, run.Summary()); err != nil {
			slog.WarnContext(ctx, "publish streets scored", "run_id", run.ID, "error", err)
		}
	}
	return run
}

// LatestRun returns the most recent persisted run, or nil when none exists.
func (s *StreetService) LatestRun(ctx context.Context) (*domain.ScoreRun, error) {
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.Latest(ctx)
}

// RequestRescore asks the rescorer to run a new pass.
func (s *StreetService) RequestRescore(ctx context.Context, reason string) error {
	if s.publisher == nil {
		return ErrRescoreUnavailable
	}
	if reason == "" {
		reason = "manual"
	}
	return s.publisher.PublishRescoreRequest(ctx, reason)
}

// compute runs one scoring pass. degraded reports that geometry or samples
// could not be loaded, so the result must be neither cached nor persisted.
func (s *StreetService) compute(ctx context.Context, reason string) (*domain.ScoreRun, bool) {
	ctx, span := s.tracer.Start(ctx, telemetry.SpanScoringPass,
		trace.WithAttributes(telemetry.AttrRunReason.String(reason)))
	defer span.End()

	start := s.now()
	run := &domain.ScoreRun{
		ID:           uuid.NewString(),
		Reason:       reason,
		ComputedAt:   start.UTC(),
		Bounds:       s.cfg.Bounds,
		SampleCounts: map[domain.SampleSource]int{},
		Streets:      []domain.Street{},
	}

	graph, err := s.geometry.FetchWays(ctx, s.cfg.Bounds)
	if err != nil {
		slog.WarnContext(ctx, "street geometry unavailable, returning no streets", "error", err)
		metrics.DegradedPasses.WithLabelValues("geometry").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "geometry unavailable")
		span.SetAttributes(telemetry.AttrDegraded.Bool(true))
		run.Duration = s.now().Sub(start)
		return run, true
	}
	if graph.Empty() {
		run.Duration = s.now().Sub(start)
		return run, false
	}
	span.SetAttributes(telemetry.AttrWayCount.Int(len(graph.Ways)))

	degraded := false
	sources, err := s.samples.LoadSamples(ctx)
	if err != nil {
		slog.WarnContext(ctx, "samples unavailable, scoring without them", "error", err)
		metrics.DegradedPasses.WithLabelValues("samples").Inc()
		span.RecordError(err)
		span.SetAttributes(telemetry.AttrDegraded.Bool(true))
		sources = nil
		degraded = true
	}
	total := 0
	for _, c := range sources {
		run.SampleCounts[c.Source] += len(c.Samples)
		total += len(c.Samples)
	}

	result := scoring.ComputeStreetScores(graph, sources, s.cfg.Options)
	run.Streets = result.Streets
	run.FragmentCount = result.FragmentCount
	run.Duration = s.now().Sub(start)

	span.SetAttributes(
		telemetry.AttrSampleCount.Int(total),
		telemetry.AttrFragmentCount.Int(result.FragmentCount),
		telemetry.AttrStreetCount.Int(len(result.Streets)),
	)

	samples := make(map[string]int, len(run.SampleCounts))
	for src, n := range run.SampleCounts {
		samples[string(src)] = n
	}
	metrics.ObserveRun(run.Duration, run.FragmentCount, domain.CountBuckets(run.Streets), samples)

	slog.InfoContext(ctx, "scoring pass complete",
		"run_id", run.ID,
		"reason", reason,
		"ways", len(graph.Ways),
		"samples", total,
		"fragments", result.FragmentCount,
		"streets", len(result.Streets),
		"duration", run.Duration,
		"degraded", degraded,
	)
	return run, degraded
}

func (s *StreetService) cached(ctx context.Context) ([]domain.Street, bool) {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return nil, false
	}
	data, err := s.cache.Get(ctx, s.cacheKey())
	if err != nil {
		metrics.CacheMisses.WithLabelValues("streets").Inc()
		return nil, false
	}
	var streets []domain.Street
	if err := json.Unmarshal(data, &streets); err != nil {
		metrics.CacheMisses.WithLabelValues("streets").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("streets").Inc()
	return streets, true
}

func (s *StreetService) store(ctx context.Context, streets []domain.Street) {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(streets)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(), data, s.cfg.CacheTTL); err != nil {
		slog.DebugContext(ctx, "cache set failed", "key", s.cacheKey(), "error", err)
	}
}
