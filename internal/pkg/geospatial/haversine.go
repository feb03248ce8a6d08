package geospatial

import (
	"math"

	"github.com/samirrijal/streetrisk/internal/core/domain"
)

const earthRadiusMeters = 6371000.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// Distance is Haversine over two GeoPoints.
func Distance(a, b domain.GeoPoint) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

// SquareAround returns the box spanning radiusDeg degrees on each side of a center.
func SquareAround(center domain.GeoPoint, radiusDeg float64) domain.Bounds {
	return domain.Bounds{
		MinLat: center.Lat - radiusDeg,
		MinLon: center.Lon - radiusDeg,
		MaxLat: center.Lat + radiusDeg,
		MaxLon: center.Lon + radiusDeg,
	}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
