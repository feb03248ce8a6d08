package geospatial

import (
	"math"

	"github.com/samirrijal/streetrisk/internal/core/domain"
)

// PointToPolylineDistance returns the distance in meters from p to the
// closest point of the polyline.
//
// The closest point on each segment is found by projecting p onto the
// segment in raw lat/lon space (as if planar), clamping to the segment, and
// then measuring the haversine distance to that point. This is only accurate
// at street scale and callers rely on exactly this behavior.
//
// Segments with zero planar length are skipped. A polyline with fewer than
// two points, or only degenerate segments, yields +Inf.
func PointToPolylineDistance(p domain.GeoPoint, line []domain.GeoPoint) float64 {
	best := math.Inf(1)
	for i := 0; i+1 < len(line); i++ {
		a, b := line[i], line[i+1]
		dLat := b.Lat - a.Lat
		dLon := b.Lon - a.Lon
		lenSq := dLat*dLat + dLon*dLon
		if lenSq == 0 {
			continue
		}

		t := ((p.Lat-a.Lat)*dLat + (p.Lon-a.Lon)*dLon) / lenSq
		t = math.Max(0, math.Min(1, t))

		d := Haversine(p.Lat, p.Lon, a.Lat+t*dLat, a.Lon+t*dLon)
		if d < best {
			best = d
		}
	}
	return best
}
