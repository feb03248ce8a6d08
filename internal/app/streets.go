// Package app wires adapters into the street scoring service for the binaries.
package app

import (
	"fmt"
	"log/slog"

	"github.com/samirrijal/streetrisk/internal/adapters/csvsource"
	natsadapter "github.com/samirrijal/streetrisk/internal/adapters/nats"
	"github.com/samirrijal/streetrisk/internal/adapters/overpass"
	"github.com/samirrijal/streetrisk/internal/adapters/postgres"
	"github.com/samirrijal/streetrisk/internal/adapters/valkey"
	"github.com/samirrijal/streetrisk/internal/core/domain"
	"github.com/samirrijal/streetrisk/internal/core/ports"
	"github.com/samirrijal/streetrisk/internal/core/scoring"
	"github.com/samirrijal/streetrisk/internal/core/usecases"
	"github.com/samirrijal/streetrisk/internal/pkg/config"
	"github.com/samirrijal/streetrisk/internal/pkg/geospatial"
)

// Infra holds the optional connections a binary managed to open.
type Infra struct {
	DB        *postgres.DB
	Cache     *valkey.Cache
	Publisher *natsadapter.Publisher
}

// Bounds returns the scored area from the scoring config.
func Bounds(cfg config.ScoringConfig) domain.Bounds {
	return geospatial.SquareAround(domain.GeoPoint{Lat: cfg.CenterLat, Lon: cfg.CenterLon}, cfg.RadiusDeg)
}

// SampleSource picks the configured sample backend.
func SampleSource(cfg *config.Config, db *postgres.DB) (ports.SampleSource, error) {
	switch cfg.Samples.Backend {
	case config.BackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("samples.backend %q needs a database connection", config.BackendPostgres)
		}
		return postgres.NewSampleRepo(db), nil
	default:
		return csvsource.New(csvsource.Config{
			StreetViewDir:  cfg.Samples.StreetViewDir,
			StreetViewGlob: cfg.Samples.StreetViewGlob,
			StreetViewFile: cfg.Samples.StreetViewFile,
			CrimeFile:      cfg.Samples.CrimeFile,
		}), nil
	}
}

// NewStreetService builds the street service over Overpass geometry and the
// configured samples. Absent infrastructure disables the matching feature.
func NewStreetService(cfg *config.Config, infra Infra) (*usecases.StreetService, error) {
	samples, err := SampleSource(cfg, infra.DB)
	if err != nil {
		return nil, err
	}

	geometry := overpass.New(cfg.Overpass.Endpoints, cfg.Overpass.HTTPTimeoutDuration(),
		overpass.WithQueryTimeout(cfg.Overpass.QueryTimeout))

	var opts []usecases.StreetServiceOption
	if infra.Cache != nil {
		opts = append(opts, usecases.WithCache(infra.Cache))
	}
	if infra.DB != nil {
		opts = append(opts, usecases.WithRunRepository(postgres.NewRunRepo(infra.DB)))
	}
	if infra.Publisher != nil {
		opts = append(opts, usecases.WithPublisher(infra.Publisher))
	}

	bounds := Bounds(cfg.Scoring)
	slog.Info("street service configured",
		"bounds", bounds,
		"samples", cfg.Samples.Backend,
		"endpoints", len(cfg.Overpass.Endpoints),
		"cache", infra.Cache != nil,
		"runs", infra.DB != nil,
		"events", infra.Publisher != nil,
	)

	return usecases.NewStreetService(geometry, samples, usecases.StreetServiceConfig{
		Bounds: bounds,
		Options: scoring.Options{
			ThresholdMeters: cfg.Scoring.ThresholdMeters,
			Workers:         cfg.Scoring.Workers,
		},
		CacheTTL: cfg.Cache.TTL,
	}, opts...), nil
}
