// Package csvsource loads point samples from the CSV exports produced by the
// street-view analyzer and the crime dataset.
package csvsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/samirrijal/streetrisk/internal/core/domain"
)

// Config locates the sample files.
type Config struct {
	// StreetViewDir is searched for the newest file matching StreetViewGlob.
	StreetViewDir  string
	StreetViewGlob string
	// StreetViewFile is used when the directory has no usable file.
	StreetViewFile string
	CrimeFile      string
}

// Loader implements ports.SampleSource over local CSV files. Files are
// re-read on every call so fresh analyzer output is picked up.
type Loader struct {
	cfg Config
}

// New creates a Loader.
func New(cfg Config) *Loader {
	if cfg.StreetViewGlob == "" {
		cfg.StreetViewGlob = "seattle_analysis_*.csv"
	}
	return &Loader{cfg: cfg}
}

// LoadSamples returns the street-view and crime collections, in that order.
// Missing or unreadable files produce empty collections.
func (l *Loader) LoadSamples(ctx context.Context) ([]domain.SampleCollection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []domain.SampleCollection{
		{Source: domain.SourceStreetView, Samples: l.loadStreetView(ctx)},
		{Source: domain.SourceCrime, Samples: l.loadCrime(ctx)},
	}, nil
}

func (l *Loader) loadStreetView(ctx context.Context) []domain.PointSample {
	if latest, err := newestMatch(l.cfg.StreetViewDir, l.cfg.StreetViewGlob); err == nil && latest != "" {
		samples, err := parseFile(latest, ParseStreetView)
		if err != nil {
			slog.WarnContext(ctx, "street view csv unreadable", "path", latest, "error", err)
		}
		if len(samples) > 0 {
			slog.InfoContext(ctx, "street view samples loaded", "path", latest, "count", len(samples))
			return samples
		}
	}

	if l.cfg.StreetViewFile == "" {
		return nil
	}
	samples, err := parseFile(l.cfg.StreetViewFile, ParseStreetView)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.WarnContext(ctx, "street view csv unreadable", "path", l.cfg.StreetViewFile, "error", err)
	}
	if len(samples) > 0 {
		slog.InfoContext(ctx, "street view samples loaded", "path", l.cfg.StreetViewFile, "count", len(samples))
	}
	return samples
}

func (l *Loader) loadCrime(ctx context.Context) []domain.PointSample {
	if l.cfg.CrimeFile == "" {
		return nil
	}
	samples, err := parseFile(l.cfg.CrimeFile, ParseCrime)
	if err != nil {
		slog.WarnContext(ctx, "crime csv unreadable", "path", l.cfg.CrimeFile, "error", err)
	}
	slog.InfoContext(ctx, "crime samples loaded", "count", len(samples))
	return samples
}

func parseFile(path string, parse func(io.Reader) ([]domain.PointSample, error)) ([]domain.PointSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	samples, err := parse(f)
	if err != nil {
		return samples, fmt.Errorf("parse %s: %w", path, err)
	}
	return samples, nil
}

// newestMatch returns the most recently modified regular file in dir whose
// name matches pattern, or "" when there is none.
func newestMatch(dir, pattern string) (string, error) {
	if dir == "" {
		return "", nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", err
	}

	var newest string
	var newestMod int64
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest, newestMod = m, mod
		}
	}
	return newest, nil
}
