package domain

import (
	"time"
)

// UnnamedStreet is the display name used for ways without a name tag.
const UnnamedStreet = "Unnamed street"

// SampleSource identifies where a point sample was measured.
type SampleSource string

const (
	// SourceStreetView is the street-level image "discomfort" analysis.
	SourceStreetView SampleSource = "street_view"
	// SourceCrime is the reported-incident dataset.
	SourceCrime SampleSource = "crime"
)

// KnownSources lists the sample sources in scoring order.
var KnownSources = []SampleSource{SourceStreetView, SourceCrime}

// PointSample is a single scored measurement at a location.
type PointSample struct {
	Location GeoPoint     `json:"location"`
	Score    float64      `json:"score"`
	Source   SampleSource `json:"source"`
}

// SampleCollection groups the samples of one source.
type SampleCollection struct {
	Source  SampleSource  `json:"source"`
	Samples []PointSample `json:"samples"`
}

// Street is a scored street polyline. Before merging it is one fragment per
// way; after merging it may be a chain of several fragments sharing a name.
type Street struct {
	ID          string        `json:"street_id"`
	Name        string        `json:"street_name"`
	Coordinates []GeoPoint    `json:"coordinates"`
	Score       float64       `json:"score"`
	Bucket      ColorBucket   `json:"bucket"`
	Color       string        `json:"color,omitempty"`
	Samples     []PointSample `json:"samples,omitempty"`
}

// ScoreRun records one completed scoring pass.
type ScoreRun struct {
	ID            string               `json:"id"`
	Reason        string               `json:"reason,omitempty"`
	ComputedAt    time.Time            `json:"computed_at"`
	Bounds        Bounds               `json:"bounds"`
	Duration      time.Duration        `json:"duration"`
	FragmentCount int                  `json:"fragment_count"`
	SampleCounts  map[SampleSource]int `json:"sample_counts"`
	Streets       []Street             `json:"streets"`
}

// Summary returns the lightweight event form of the run.
func (r *ScoreRun) Summary() RunSummary {
	return RunSummary{
		RunID:         r.ID,
		Reason:        r.Reason,
		ComputedAt:    r.ComputedAt,
		StreetCount:   len(r.Streets),
		FragmentCount: r.FragmentCount,
		BucketCounts:  CountBuckets(r.Streets),
	}
}

// RunSummary is published after every scoring pass.
type RunSummary struct {
	RunID         string         `json:"run_id"`
	Reason        string         `json:"reason,omitempty"`
	ComputedAt    time.Time      `json:"computed_at"`
	StreetCount   int            `json:"street_count"`
	FragmentCount int            `json:"fragment_count"`
	BucketCounts  map[string]int `json:"bucket_counts"`
}

// CountBuckets tallies streets per color bucket name.
func CountBuckets(streets []Street) map[string]int {
	counts := make(map[string]int, len(AllBuckets))
	for _, b := range AllBuckets {
		counts[b.String()] = 0
	}
	for _, s := range streets {
		counts[s.Bucket.String()]++
	}
	return counts
}
