package scoring

import (
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/streetrisk/internal/core/domain"
	"github.com/samirrijal/streetrisk/internal/pkg/geospatial"
)

// DefaultThresholdMeters is the maximum sample-to-street distance.
const DefaultThresholdMeters = 200.0

// Options tunes a scoring pass.
type Options struct {
	// ThresholdMeters is the association distance; samples must be strictly closer.
	ThresholdMeters float64
	// Workers bounds the per-way fan-out. Zero means GOMAXPROCS, one means sequential.
	Workers int
}

// DefaultOptions returns the standard 200 m threshold with GOMAXPROCS workers.
func DefaultOptions() Options {
	return Options{ThresholdMeters: DefaultThresholdMeters}
}

// Threshold returns the association distance in effect, defaulting to 200 m.
func (o Options) Threshold() float64 {
	if o.ThresholdMeters <= 0 {
		return DefaultThresholdMeters
	}
	return o.ThresholdMeters
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Workers
}

// Aggregate scores every way of the graph against the sample collections and
// returns one fragment per way that has at least one nearby sample, in way order.
//
// Each source is averaged on its own and the fragment score is the plain mean
// of the source averages, so a source with many samples does not outweigh one
// with few.
func Aggregate(graph *domain.WayGraph, sources []domain.SampleCollection, opts Options) []domain.Street {
	if graph.Empty() || totalSamples(sources) == 0 {
		return nil
	}

	threshold := opts.Threshold()
	slots := make([]*domain.Street, len(graph.Ways))

	var g errgroup.Group
	g.SetLimit(opts.workers())
	for i, way := range graph.Ways {
		g.Go(func() error {
			slots[i] = scoreWay(graph, way, sources, threshold)
			return nil
		})
	}
	_ = g.Wait()

	fragments := make([]domain.Street, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			fragments = append(fragments, *s)
		}
	}
	return fragments
}

// scoreWay builds the fragment for one way, or nil when no sample is near.
func scoreWay(graph *domain.WayGraph, way domain.Way, sources []domain.SampleCollection, threshold float64) *domain.Street {
	pts := graph.Resolve(way)
	if len(pts) < 2 {
		return nil
	}

	var (
		meanSum  float64
		meanN    int
		retained []domain.PointSample
	)
	for _, src := range sources {
		var sum float64
		var n int
		for _, s := range src.Samples {
			if geospatial.PointToPolylineDistance(s.Location, pts) < threshold {
				sum += s.Score
				n++
				retained = append(retained, s)
			}
		}
		if n > 0 {
			meanSum += sum / float64(n)
			meanN++
		}
	}
	if meanN == 0 {
		return nil
	}

	name := way.Name
	if name == "" {
		name = domain.UnnamedStreet
	}
	return &domain.Street{
		ID:          strconv.FormatInt(way.ID, 10),
		Name:        name,
		Coordinates: pts,
		Score:       meanSum / float64(meanN),
		Samples:     retained,
	}
}

func totalSamples(sources []domain.SampleCollection) int {
	n := 0
	for _, s := range sources {
		n += len(s.Samples)
	}
	return n
}
