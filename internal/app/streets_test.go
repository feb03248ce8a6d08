package app

import (
	"math"
	"testing"

	"github.com/samirrijal/streetrisk/internal/adapters/csvsource"
	"github.com/samirrijal/streetrisk/internal/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Overpass: config.OverpassConfig{
			Endpoints:    []string{"http://127.0.0.1:1/api/interpreter"},
			HTTPTimeout:  1,
			QueryTimeout: 1,
		},
		Scoring: config.ScoringConfig{
			CenterLat:       47.6062,
			CenterLon:       -122.3321,
			RadiusDeg:       0.01,
			ThresholdMeters: 200,
		},
		Samples: config.SamplesConfig{Backend: config.BackendCSV},
		Cache:   config.CacheConfig{TTL: 300},
	}
}

func TestBounds(t *testing.T) {
	b := Bounds(testConfig().Scoring)
	if math.Abs(b.MinLat-47.5962) > 1e-9 || math.Abs(b.MaxLon+122.3221) > 1e-9 {
		t.Errorf("unexpected bounds %+v", b)
	}
}

func TestSampleSource_CSV(t *testing.T) {
	src, err := SampleSource(testConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := src.(*csvsource.Loader); !ok {
		t.Errorf("expected csv loader, got %T", src)
	}
}

func TestSampleSource_PostgresNeedsDB(t *testing.T) {
	cfg := testConfig()
	cfg.Samples.Backend = config.BackendPostgres
	if _, err := SampleSource(cfg, nil); err == nil {
		t.Fatal("expected error without database")
	}
	if _, err := NewStreetService(cfg, Infra{}); err == nil {
		t.Fatal("expected error without database")
	}
}

func TestNewStreetService_NoInfra(t *testing.T) {
	svc, err := NewStreetService(testConfig(), Infra{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Bounds() != Bounds(testConfig().Scoring) {
		t.Errorf("bounds not carried through: %+v", svc.Bounds())
	}
}
