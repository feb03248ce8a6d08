package scoring

import "github.com/samirrijal/streetrisk/internal/core/domain"

// Result is the output of one scoring pass.
type Result struct {
	Streets       []domain.Street
	FragmentCount int
}

// ComputeStreetScores runs the full pipeline: per-way aggregation, merging of
// same-named fragments and percentile coloring. An empty graph or no samples
// yields an empty result.
func ComputeStreetScores(graph *domain.WayGraph, sources []domain.SampleCollection, opts Options) Result {
	fragments := Aggregate(graph, sources, opts)
	streets := MergeByName(fragments)
	Classify(streets)
	if streets == nil {
		streets = []domain.Street{}
	}
	return Result{Streets: streets, FragmentCount: len(fragments)}
}
