package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/samirrijal/streetrisk/internal/core/domain"
	"github.com/samirrijal/streetrisk/internal/core/scoring"
	"github.com/samirrijal/streetrisk/internal/core/usecases"
)

// --- Mocks ---

type mockGeometry struct {
	calls   int
	fetchFn func(ctx context.Context, b domain.Bounds) (*domain.WayGraph, error)
}

func (m *mockGeometry) FetchWays(ctx context.Context, b domain.Bounds) (*domain.WayGraph, error) {
	m.calls++
	if m.fetchFn != nil {
		return m.fetchFn(ctx, b)
	}
	return &domain.WayGraph{}, nil
}

type mockSamples struct {
	calls  int
	loadFn func(ctx context.Context) ([]domain.SampleCollection, error)
}

func (m *mockSamples) LoadSamples(ctx context.Context) ([]domain.SampleCollection, error) {
	m.calls++
	if m.loadFn != nil {
		return m.loadFn(ctx)
	}
	return nil, nil
}

type mockCache struct {
	data map[string][]byte
	sets int
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("miss")
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	m.sets++
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

type mockRunRepo struct {
	saved    []*domain.ScoreRun
	saveErr  error
	latestFn func(ctx context.Context) (*domain.ScoreRun, error)
}

func (m *mockRunRepo) Save(ctx context.Context, run *domain.ScoreRun) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, run)
	return nil
}

func (m *mockRunRepo) Latest(ctx context.Context) (*domain.ScoreRun, error) {
	if m.latestFn != nil {
		return m.latestFn(ctx)
	}
	return nil, nil
}

type mockPublisher struct {
	summaries  []domain.RunSummary
	requests   []string
	publishErr error
}

func (m *mockPublisher) PublishStreetsScored(ctx context.Context, s domain.RunSummary) error {
	m.summaries = append(m.summaries, s)
	return m.publishErr
}

func (m *mockPublisher) PublishRescoreRequest(ctx context.Context, reason string) error {
	m.requests = append(m.requests, reason)
	return m.publishErr
}

// --- Fixtures ---

// twoStreetGraph has "Pine St" split into two touching ways and a separate
// "1st Ave".
func twoStreetGraph() *domain.WayGraph {
	return &domain.WayGraph{
		Nodes: map[int64]domain.GeoPoint{
			1: {Lat: 47.6000, Lon: -122.3300},
			2: {Lat: 47.6000, Lon: -122.3290},
			3: {Lat: 47.6000, Lon: -122.3280},
			4: {Lat: 47.6100, Lon: -122.3400},
			5: {Lat: 47.6110, Lon: -122.3400},
		},
		Ways: []domain.Way{
			{ID: 10, NodeIDs: []int64{1, 2}, Name: "Pine St"},
			{ID: 11, NodeIDs: []int64{2, 3}, Name: "Pine St"},
			{ID: 12, NodeIDs: []int64{4, 5}, Name: "1st Ave"},
		},
	}
}

func sampleSet() []domain.SampleCollection {
	return []domain.SampleCollection{
		{Source: domain.SourceStreetView, Samples: []domain.PointSample{
			{Location: domain.GeoPoint{Lat: 47.6001, Lon: -122.3295}, Score: 0.8, Source: domain.SourceStreetView},
			{Location: domain.GeoPoint{Lat: 47.6105, Lon: -122.3401}, Score: 0.2, Source: domain.SourceStreetView},
		}},
		{Source: domain.SourceCrime, Samples: []domain.PointSample{
			{Location: domain.GeoPoint{Lat: 47.6001, Lon: -122.3285}, Score: 0.6, Source: domain.SourceCrime},
		}},
	}
}

func newService(geo *mockGeometry, smp *mockSamples, ttl int, opts ...usecases.StreetServiceOption) *usecases.StreetService {
	cfg := usecases.StreetServiceConfig{
		Bounds:   domain.Bounds{MinLat: 47.59, MinLon: -122.35, MaxLat: 47.62, MaxLon: -122.32},
		Options:  scoring.Options{ThresholdMeters: 200, Workers: 1},
		CacheTTL: ttl,
	}
	return usecases.NewStreetService(geo, smp, cfg, opts...)
}

// --- Tests ---

func TestStreetService_Streets(t *testing.T) {
	geo := &mockGeometry{fetchFn: func(ctx context.Context, b domain.Bounds) (*domain.WayGraph, error) {
		return twoStreetGraph(), nil
	}}
	smp := &mockSamples{loadFn: func(ctx context.Context) ([]domain.SampleCollection, error) {
		return sampleSet(), nil
	}}

	svc := newService(geo, smp, 0)
	streets, err := svc.Streets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(streets) != 2 {
		t.Fatalf("expected 2 streets, got %d", len(streets))
	}

	names := map[string]domain.Street{}
	for _, s := range streets {
		names[s.Name] = s
	}
	pine, ok := names["Pine St"]
	if !ok {
		t.Fatal("Pine St missing")
	}
	if len(pine.Coordinates) != 3 {
		t.Errorf("expected merged Pine St with 3 points, got %d", len(pine.Coordinates))
	}
	for _, s := range streets {
		if !s.Bucket.Valid() || s.Color == "" {
			t.Errorf("street %s not classified: %+v", s.Name, s)
		}
	}
}

func TestStreetService_Streets_GeometryFailureIsEmpty(t *testing.T) {
	geo := &mockGeometry{fetchFn: func(ctx context.Context, b domain.Bounds) (*domain.WayGraph, error) {
		return nil, errors.New("all endpoints failed")
	}}
	smp := &mockSamples{}
	cache := newMockCache()

	svc := newService(geo, smp, 300, usecases.WithCache(cache))
	streets, err := svc.Streets(context.Background())
	if err != nil {
		t.Fatalf("geometry failure must not surface as an error: %v", err)
	}
	if len(streets) != 0 {
		t.Errorf("expected no streets, got %d", len(streets))
	}
	if smp.calls != 0 {
		t.Errorf("samples should not be loaded without geometry")
	}
	if cache.sets != 0 {
		t.Errorf("degraded result must not be cached")
	}
}

func TestStreetService_Streets_SampleFailureScoresNothing(t *testing.T) {
	geo := &mockGeometry{fetchFn: func(ctx context.Context, b domain.Bounds) (*domain.WayGraph, error) {
		return twoStreetGraph(), nil
	}}
	smp := &mockSamples{loadFn: func(ctx context.Context) ([]domain.SampleCollection, error) {
		return nil, errors.New("disk gone")
	}}

	cache := newMockCache()
	svc := newService(geo, smp, 300, usecases.WithCache(cache))
	streets, err := svc.Streets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(streets) != 0 {
		t.Errorf("expected no streets without samples, got %d", len(streets))
	}
	if cache.sets != 0 {
		t.Errorf("result scored without samples must not be cached, got %d sets", cache.sets)
	}
}

func TestStreetService_Streets_RecoversAfterSampleFailure(t *testing.T) {
	geo := &mockGeometry{fetchFn: func(ctx context.Context, b domain.Bounds) (*domain.WayGraph, error) {
		return twoStreetGraph(), nil
	}}
	failing := true
	smp := &mockSamples{loadFn: func(ctx context.Context) ([]domain.SampleCollection, error) {
		if failing {
			return nil, errors.New("connection refused")
		}
		return sampleSet(), nil
	}}
	cache := newMockCache()
	svc := newService(geo, smp, 300, usecases.WithCache(cache))

	first, _ := svc.Streets(context.Background())
	if len(first) != 0 {
		t.Fatalf("expected no streets while samples are down, got %d", len(first))
	}

	failing = false
	second, _ := svc.Streets(context.Background())
	if len(second) == 0 {
		t.Fatal("expected streets once samples recover")
	}
	if cache.sets != 1 {
		t.Errorf("expected only the recovered result cached, got %d sets", cache.sets)
	}
}

func TestStreetService_Rescore_SampleFailureNotPersisted(t *testing.T) {
	geo := &mockGeometry{fetchFn: func(ctx context.Context, b domain.Bounds) (*domain.WayGraph, error) {
		return twoStreetGraph(), nil
	}}
	smp := &mockSamples{loadFn: func(ctx context.Context) ([]domain.SampleCollection, error) {
		return nil, errors.New("connection refused")
	}}
	runs := &mockRunRepo{}
	pub := &mockPublisher{}
	svc := newService(geo, smp, 0, usecases.WithRunRepository(runs), usecases.WithPublisher(pub))

	run := svc.Rescore(context.Background(), "schedule")
	if run == nil || len(run.Streets) != 0 {
		t.Fatalf("expected an empty run, got %+v", run)
	}
	if len(runs.saved) != 0 {
		t.Errorf("run scored without samples must not be saved")
	}
	if len(pub.summaries) != 0 {
		t.Errorf("run scored without samples must not be published")
	}
}

func TestStreetService_CacheKeyUsesEffectiveThreshold(t *testing.T) {
	geo := &mockGeometry{fetchFn: func(ctx context.Context, b domain.Bounds) (*domain.WayGraph, error) {
		return twoStreetGraph(), nil
	}}
	smp := &mockSamples{loadFn: func(ctx context.Context) ([]domain.SampleCollection, error) {
		return sampleSet(), nil
	}}
	cache := newMockCache()
	bounds := domain.Bounds{MinLat: 47.59, MinLon: -122.35, MaxLat: 47.62, MaxLon: -122.32}

	explicit := usecases.NewStreetService(geo, smp, usecases.StreetServiceConfig{
		Bounds:   bounds,
		Options:  scoring.Options{ThresholdMeters: scoring.DefaultThresholdMeters, Workers: 1},
		CacheTTL: 300,
	}, usecases.WithCache(cache))
	implicit := usecases.NewStreetService(geo, smp, usecases.StreetServiceConfig{
		Bounds:   bounds,
		Options:  scoring.Options{Workers: 1},
		CacheTTL: 300,
	}, usecases.WithCache(cache))

	if _, err := explicit.Streets(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := implicit.Streets(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(cache.data) != 1 {
		t.Errorf("expected one shared cache entry, got %d", len(cache.data))
	}
	if geo.calls != 1 {
		t.Errorf("expected the default threshold to hit the cached result, got %d fetches", geo.calls)
	}
}

func TestStreetService_Streets_Cached(t *testing.T) {
	geo := &mockGeometry{fetchFn: func(ctx context.Context, b domain.Bounds) (*domain.WayGraph, error) {
		return twoStreetGraph(), nil
	}}
	smp := &mockSamples{loadFn: func(ctx context.Context) ([]domain.SampleCollection, error) {
		return sampleSet(), nil
	}}
	cache := newMockCache()

	svc := newService(geo, smp, 300, usecases.WithCache(cache))
	first, _ := svc.Streets(context.Background())
	second, _ := svc.Streets(context.Background())

	if geo.calls != 1 {
		t.Errorf("expected one geometry fetch, got %d", geo.calls)
	}
	if len(first) != len(second) {
		t.Fatalf("cached result differs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Bucket != second[i].Bucket || first[i].Color != second[i].Color {
			t.Errorf("street %d bucket lost through cache", i)
		}
	}
}

func TestStreetService_Streets_CorruptCacheRecomputes(t *testing.T) {
	geo := &mockGeometry{fetchFn: func(ctx context.Context, b domain.Bounds) (*domain.WayGraph, error) {
		return twoStreetGraph(), nil
	}}
	smp := &mockSamples{loadFn: func(ctx context.Context) ([]domain.SampleCollection, error) {
		return sampleSet(), nil
	}}
	cache := newMockCache()
	svc := newService(geo, smp, 300, usecases.WithCache(cache))

	// Prime the key, then corrupt it.
	_, _ = svc.Streets(context.Background())
	for k := range cache.data {
		cache.data[k] = []byte("{not json")
	}

	streets, _ := svc.Streets(context.Background())
	if geo.calls != 2 {
		t.Errorf("expected recompute after corrupt cache, got %d fetches", geo.calls)
	}
	if len(streets) != 2 {
		t.Errorf("expected 2 streets, got %d", len(streets))
	}
}

func TestStreetService_Rescore(t *testing.T) {
	geo := &mockGeometry{fetchFn: func(ctx context.Context, b domain.Bounds) (*domain.WayGraph, error) {
		return twoStreetGraph(), nil
	}}
	smp := &mockSamples{loadFn: func(ctx context.Context) ([]domain.SampleCollection, error) {
		return sampleSet(), nil
	}}
	cache := newMockCache()
	runs := &mockRunRepo{}
	pub := &mockPublisher{}

	svc := newService(geo, smp, 300,
		usecases.WithCache(cache), usecases.WithRunRepository(runs), usecases.WithPublisher(pub))

	run := svc.Rescore(context.Background(), "schedule")
	if run.ID == "" {
		t.Error("run id not set")
	}
	if run.Reason != "schedule" {
		t.Errorf("reason = %q", run.Reason)
	}
	if run.FragmentCount != 3 {
		t.Errorf("expected 3 fragments, got %d", run.FragmentCount)
	}
	if run.SampleCounts[domain.SourceStreetView] != 2 || run.SampleCounts[domain.SourceCrime] != 1 {
		t.Errorf("sample counts = %v", run.SampleCounts)
	}
	if len(runs.saved) != 1 {
		t.Fatalf("expected run persisted once, got %d", len(runs.saved))
	}
	if len(pub.summaries) != 1 || pub.summaries[0].RunID != run.ID {
		t.Fatalf("expected summary for run %s, got %+v", run.ID, pub.summaries)
	}
	if pub.summaries[0].StreetCount != len(run.Streets) {
		t.Errorf("summary street count = %d", pub.summaries[0].StreetCount)
	}
	if cache.sets != 1 {
		t.Errorf("expected cache refreshed, got %d sets", cache.sets)
	}

	var cached []domain.Street
	for _, v := range cache.data {
		if err := json.Unmarshal(v, &cached); err != nil {
			t.Fatalf("cached value is not JSON: %v", err)
		}
	}
	if len(cached) != len(run.Streets) {
		t.Errorf("cached %d streets, run has %d", len(cached), len(run.Streets))
	}
}

func TestStreetService_Rescore_FailuresAreNotFatal(t *testing.T) {
	geo := &mockGeometry{fetchFn: func(ctx context.Context, b domain.Bounds) (*domain.WayGraph, error) {
		return twoStreetGraph(), nil
	}}
	smp := &mockSamples{loadFn: func(ctx context.Context) ([]domain.SampleCollection, error) {
		return sampleSet(), nil
	}}
	runs := &mockRunRepo{saveErr: errors.New("db down")}
	pub := &mockPublisher{publishErr: errors.New("nats down")}

	svc := newService(geo, smp, 0, usecases.WithRunRepository(runs), usecases.WithPublisher(pub))
	run := svc.Rescore(context.Background(), "manual")
	if len(run.Streets) != 2 {
		t.Errorf("expected streets despite persistence failures, got %d", len(run.Streets))
	}
}

func TestStreetService_Rescore_DegradedSkipsPersistence(t *testing.T) {
	geo := &mockGeometry{fetchFn: func(ctx context.Context, b domain.Bounds) (*domain.WayGraph, error) {
		return nil, errors.New("timeout")
	}}
	runs := &mockRunRepo{}
	pub := &mockPublisher{}

	svc := newService(geo, &mockSamples{}, 0, usecases.WithRunRepository(runs), usecases.WithPublisher(pub))
	run := svc.Rescore(context.Background(), "manual")
	if len(run.Streets) != 0 {
		t.Errorf("expected empty run")
	}
	if len(runs.saved) != 0 || len(pub.summaries) != 0 {
		t.Errorf("degraded run must not be persisted or published")
	}
}

func TestStreetService_LatestRun(t *testing.T) {
	svc := newService(&mockGeometry{}, &mockSamples{}, 0)
	run, err := svc.LatestRun(context.Background())
	if err != nil || run != nil {
		t.Fatalf("expected nil run without repository, got %v, %v", run, err)
	}

	want := &domain.ScoreRun{ID: "run-1"}
	repo := &mockRunRepo{latestFn: func(ctx context.Context) (*domain.ScoreRun, error) { return want, nil }}
	svc = newService(&mockGeometry{}, &mockSamples{}, 0, usecases.WithRunRepository(repo))
	run, err = svc.LatestRun(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run == nil || run.ID != "run-1" {
		t.Errorf("expected run-1, got %+v", run)
	}
}

func TestStreetService_RequestRescore(t *testing.T) {
	svc := newService(&mockGeometry{}, &mockSamples{}, 0)
	if err := svc.RequestRescore(context.Background(), "x"); !errors.Is(err, usecases.ErrRescoreUnavailable) {
		t.Errorf("expected ErrRescoreUnavailable, got %v", err)
	}

	pub := &mockPublisher{}
	svc = newService(&mockGeometry{}, &mockSamples{}, 0, usecases.WithPublisher(pub))
	if err := svc.RequestRescore(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.requests) != 1 || pub.requests[0] != "manual" {
		t.Errorf("expected default reason, got %v", pub.requests)
	}
}
