package scoring

import (
	"math"
	"sort"

	"github.com/samirrijal/streetrisk/internal/core/domain"
)

// Percentile cut points, least to most severe.
var quantiles = [...]float64{0.2, 0.4, 0.6, 0.8}

// Thresholds returns the nearest-rank score thresholds for the light-green,
// yellow, orange and red buckets. It needs at least two scores.
func Thresholds(scores []float64) ([4]float64, bool) {
	var t [4]float64
	n := len(scores)
	if n < 2 {
		return t, false
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	for i, q := range quantiles {
		t[i] = sorted[int(math.Floor(q*float64(n-1)))]
	}
	return t, true
}

// Classify assigns a color bucket to every street in place.
//
// A single street gets the moderate bucket. Otherwise each score is compared
// with >= against the thresholds from the top down, so streets tied at a
// threshold all land in the higher bucket.
func Classify(streets []domain.Street) {
	switch len(streets) {
	case 0:
		return
	case 1:
		setBucket(&streets[0], domain.BucketModerate)
		return
	}

	scores := make([]float64, len(streets))
	for i, s := range streets {
		scores[i] = s.Score
	}
	t, _ := Thresholds(scores)

	for i := range streets {
		setBucket(&streets[i], bucketFor(streets[i].Score, t))
	}
}

func bucketFor(v float64, t [4]float64) domain.ColorBucket {
	switch {
	case v >= t[3]:
		return domain.BucketRed
	case v >= t[2]:
		return domain.BucketOrange
	case v >= t[1]:
		return domain.BucketYellow
	case v >= t[0]:
		return domain.BucketLightGreen
	default:
		return domain.BucketGreen
	}
}

func setBucket(s *domain.Street, b domain.ColorBucket) {
	s.Bucket = b
	s.Color = b.Color()
}
