//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/streetrisk/internal/adapters/postgres"
	"github.com/samirrijal/streetrisk/internal/core/domain"
	"github.com/samirrijal/streetrisk/internal/pkg/config"
)

// setupTestDB connects to the database configured through STREETRISK_DATABASE_*.
// Migrations must already be applied.
func setupTestDB(t *testing.T) *postgres.DB {
	t.Helper()
	cfg, err := config.Load("streetrisk-test")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestSampleRepo_ReplaceAndLoad(t *testing.T) {
	db := setupTestDB(t)
	repo := postgres.NewSampleRepo(db)
	ctx := context.Background()

	first := []domain.PointSample{
		{Location: domain.GeoPoint{Lat: 47.60, Lon: -122.33}, Score: 1},
		{Location: domain.GeoPoint{Lat: 47.61, Lon: -122.34}, Score: 2},
	}
	n, err := repo.ReplaceSource(ctx, domain.SourceCrime, first)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	second := []domain.PointSample{{Location: domain.GeoPoint{Lat: 47.62, Lon: -122.35}, Score: 3}}
	_, err = repo.ReplaceSource(ctx, domain.SourceCrime, second)
	require.NoError(t, err)

	got, err := repo.ListBySource(ctx, domain.SourceCrime)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 47.62, got[0].Location.Lat, 1e-9)
	assert.InDelta(t, -122.35, got[0].Location.Lon, 1e-9)
	assert.Equal(t, domain.SourceCrime, got[0].Source)

	counts, err := repo.CountBySource(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.SourceCrime])

	cols, err := repo.LoadSamples(ctx)
	require.NoError(t, err)
	require.Len(t, cols, len(domain.KnownSources))
	assert.Equal(t, domain.SourceStreetView, cols[0].Source)
	assert.Equal(t, domain.SourceCrime, cols[1].Source)
}

func TestRunRepo_SaveAndLatest(t *testing.T) {
	db := setupTestDB(t)
	repo := postgres.NewRunRepo(db)
	ctx := context.Background()

	run := &domain.ScoreRun{
		ID:            uuid.NewString(),
		Reason:        "integration",
		ComputedAt:    time.Now().UTC().Add(time.Hour).Truncate(time.Millisecond),
		Bounds:        domain.Bounds{MinLat: 47.59, MinLon: -122.34, MaxLat: 47.61, MaxLon: -122.32},
		Duration:      1500 * time.Millisecond,
		FragmentCount: 2,
		SampleCounts:  map[domain.SampleSource]int{domain.SourceCrime: 4},
		Streets: []domain.Street{{
			ID:          "merged-Pine St-0",
			Name:        "Pine St",
			Coordinates: []domain.GeoPoint{{Lat: 47.6, Lon: -122.33}, {Lat: 47.6, Lon: -122.32}},
			Score:       0.5,
			Bucket:      domain.BucketRed,
			Color:       domain.BucketRed.Color(),
		}},
	}
	require.NoError(t, repo.Save(ctx, run))

	got, err := repo.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Duration, got.Duration)
	assert.Equal(t, 4, got.SampleCounts[domain.SourceCrime])
	require.Len(t, got.Streets, 1)
	assert.Equal(t, domain.BucketRed, got.Streets[0].Bucket)

	_, err = repo.Prune(ctx, 1)
	require.NoError(t, err)
}
